// Package config provides TOML configuration loading for the engine.
//
// Two documents are decoded by this package: the process-wide EnvConfig
// (frame size, reconnect/recording/cooldown defaults, PTZ defaults) and the
// per-stream StreamConfig (camera credentials, model, safe/patrol areas).
// Both follow the same Load/Default/Validate shape.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvConfig holds the process-wide defaults documented in spec section 6.5.
type EnvConfig struct {
	Frame   FrameConfig   `toml:"frame"`
	Network NetworkConfig `toml:"network"`
	Event   EventConfig   `toml:"event"`
	PTZ     PTZDefaults   `toml:"ptz"`
	Patrol  PatrolDefaults `toml:"patrol"`
}

// FrameConfig holds the fixed capture/processing resolution and queue sizing.
type FrameConfig struct {
	Width          int `toml:"width"`
	Height         int `toml:"height"`
	MaxQueueSize   int `toml:"max_queue_size"`
	FPSQueueSize   int `toml:"fps_queue_size"`
	FrameInterval  int `toml:"frame_interval"`
}

// NetworkConfig holds RTSP/RTMP transport and reconnection tuning.
type NetworkConfig struct {
	RTMPServer         string        `toml:"rtmp_server"`
	StaticDir          string        `toml:"static_dir"`
	ReconnectWait      time.Duration `toml:"reconnect_wait"`
	MaxReconnectWait   time.Duration `toml:"max_reconnect_wait"`
	FrameTimeout       time.Duration `toml:"frame_timeout"`
}

// EventConfig holds recording/cooldown gating defaults.
type EventConfig struct {
	RecordDuration  time.Duration `toml:"record_duration"`
	UnsafeRatio     float64       `toml:"unsafe_ratio_threshold"`
	Cooldown        time.Duration `toml:"cooldown"`
}

// PTZDefaults holds PTZ auto-tracker tuning (spec section 4.6).
type PTZDefaults struct {
	MoveThrottle       time.Duration `toml:"move_throttle"`
	NoObjectTimeout    time.Duration `toml:"no_object_timeout"`
	MinZoom            float64       `toml:"min_zoom"`
	MaxZoom            float64       `toml:"max_zoom"`
	PanVelocity        float64       `toml:"pan_velocity"`
	TiltVelocity       float64       `toml:"tilt_velocity"`
	ZoomVelocity       float64       `toml:"zoom_velocity"`
	CenterToleranceX   float64       `toml:"center_tolerance_x"`
	CenterToleranceY   float64       `toml:"center_tolerance_y"`
	MinTargetAreaRatio float64       `toml:"min_target_area_ratio"`
	MaxTargetAreaRatio float64       `toml:"max_target_area_ratio"`
}

// PatrolDefaults holds patrol engine tuning (spec section 4.7).
type PatrolDefaults struct {
	DwellTime                   time.Duration `toml:"dwell_time"`
	ObjectFocusDuration         time.Duration `toml:"object_focus_duration"`
	MinObjectFocusDuration      time.Duration `toml:"min_object_focus_duration"`
	MinLostDuration             time.Duration `toml:"min_lost_duration"`
	TrackingCooldownDuration    time.Duration `toml:"tracking_cooldown_duration"`
	HomeRestDuration            time.Duration `toml:"home_rest_duration"`
	MinWaypointDwellBeforeFocus time.Duration `toml:"min_waypoint_dwell_before_focus"`
	GridX                       int           `toml:"grid_x"`
	GridY                       int           `toml:"grid_y"`
	PatternRestCycles           int           `toml:"pattern_rest_cycles"`
	FocusMaxZoom                float64       `toml:"focus_max_zoom"`
}

// DefaultEnv returns the default environment configuration, matching the
// literal values in spec section 6.5 and the patrol constants carried over
// from original_source/src/ptz/patrol_mixin.py.
func DefaultEnv() *EnvConfig {
	return &EnvConfig{
		Frame: FrameConfig{
			Width:         1920,
			Height:        1080,
			MaxQueueSize:  10,
			FPSQueueSize:  30,
			FrameInterval: 30,
		},
		Network: NetworkConfig{
			RTMPServer:       "rtmp://localhost/live",
			StaticDir:        "./static",
			ReconnectWait:    5 * time.Second,
			MaxReconnectWait: 60 * time.Second,
			FrameTimeout:     5 * time.Second,
		},
		Event: EventConfig{
			RecordDuration: 10 * time.Second,
			UnsafeRatio:    0.7,
			Cooldown:       30 * time.Second,
		},
		PTZ: PTZDefaults{
			MoveThrottle:       500 * time.Millisecond,
			NoObjectTimeout:    5 * time.Second,
			MinZoom:            0.1,
			MaxZoom:            0.3,
			PanVelocity:        0.8,
			TiltVelocity:       0.8,
			ZoomVelocity:       0.1,
			CenterToleranceX:   0.1,
			CenterToleranceY:   0.1,
			MinTargetAreaRatio: 0.03,
			MaxTargetAreaRatio: 0.1,
		},
		Patrol: PatrolDefaults{
			DwellTime:                   30 * time.Second,
			ObjectFocusDuration:         10 * time.Second,
			MinObjectFocusDuration:      5 * time.Second,
			MinLostDuration:             1 * time.Second,
			TrackingCooldownDuration:    5 * time.Second,
			HomeRestDuration:            30 * time.Second,
			MinWaypointDwellBeforeFocus: 5 * time.Second,
			GridX:                       4,
			GridY:                       3,
			PatternRestCycles:           1,
			FocusMaxZoom:                1.0,
		},
	}
}

// LoadEnv reads and parses a TOML environment configuration file.
// If path is empty or the file does not exist, it returns defaults.
func LoadEnv(path string) (*EnvConfig, error) {
	cfg := DefaultEnv()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading env config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing env config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating env config: %w", err)
	}

	return cfg, nil
}

// Validate checks the environment configuration for invalid values.
func (c *EnvConfig) Validate() error {
	if c.Frame.Width <= 0 || c.Frame.Height <= 0 {
		return fmt.Errorf("frame width/height must be positive, got %dx%d", c.Frame.Width, c.Frame.Height)
	}
	if c.Frame.MaxQueueSize <= 0 {
		return fmt.Errorf("max_queue_size must be positive, got %d", c.Frame.MaxQueueSize)
	}
	if c.Event.UnsafeRatio <= 0 || c.Event.UnsafeRatio > 1 {
		return fmt.Errorf("unsafe_ratio_threshold must be in (0,1], got %f", c.Event.UnsafeRatio)
	}
	if c.PTZ.MinZoom < 0 || c.PTZ.MaxZoom > 1 || c.PTZ.MinZoom >= c.PTZ.MaxZoom {
		return fmt.Errorf("ptz zoom bounds invalid: min=%f max=%f", c.PTZ.MinZoom, c.PTZ.MaxZoom)
	}
	if c.Patrol.GridX < 1 || c.Patrol.GridY < 1 {
		return fmt.Errorf("patrol grid dimensions must be positive, got %dx%d", c.Patrol.GridX, c.Patrol.GridY)
	}
	return nil
}
