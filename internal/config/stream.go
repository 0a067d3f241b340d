package config

import (
	"fmt"
	"time"
)

// ModelName enumerates the detection model bound to a stream.
type ModelName string

// Supported detection models (spec section 3).
const (
	ModelPPE               ModelName = "PPE"
	ModelLadder            ModelName = "Ladder"
	ModelScaffolding       ModelName = "Scaffolding"
	ModelMobileScaffolding ModelName = "MobileScaffolding"
	ModelCuttingWelding    ModelName = "CuttingWelding"
	ModelFire              ModelName = "Fire"
	ModelHeavyEquipment    ModelName = "HeavyEquipment"
)

func (m ModelName) valid() bool {
	switch m {
	case ModelPPE, ModelLadder, ModelScaffolding, ModelMobileScaffolding,
		ModelCuttingWelding, ModelFire, ModelHeavyEquipment:
		return true
	}
	return false
}

// PatrolMode enumerates the patrol strategy for a stream.
type PatrolMode string

// Supported patrol modes.
const (
	PatrolOff     PatrolMode = "off"
	PatrolGrid    PatrolMode = "grid"
	PatrolPattern PatrolMode = "pattern"
)

// PTZCredentials holds ONVIF connection details for a PTZ-capable camera.
type PTZCredentials struct {
	CamIP       string `toml:"cam_ip"`
	PTZPort     int    `toml:"ptz_port"`
	Username    string `toml:"ptz_username"`
	Password    string `toml:"ptz_password"`
	ProfileName string `toml:"profile_name"`
}

// Point2D is a 2D image-coordinate point.
type Point2D struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
}

// Waypoint3D is a PTZ pattern waypoint.
type Waypoint3D struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
	Z float64 `toml:"z"`
}

// PTZPosition is an absolute pan/tilt/zoom position.
type PTZPosition struct {
	Pan  float64 `toml:"pan"`
	Tilt float64 `toml:"tilt"`
	Zoom float64 `toml:"zoom"`
}

// SafeArea holds the user-drawn hazard-zone configuration for a stream.
type SafeArea struct {
	Coords         []Point2D `toml:"coords"`
	StaticMode     bool      `toml:"static_mode"`
	ReferenceImage string    `toml:"reference_image"`
	UpdatedAt      time.Time `toml:"updated_at"`
}

// PatrolArea is the rectangular pan/tilt bounds a grid patrol sweeps.
//
// Invariant: XMin < XMax and YMin < YMax; Normalize enforces this on write.
type PatrolArea struct {
	XMin      float64 `toml:"x_min"`
	XMax      float64 `toml:"x_max"`
	YMin      float64 `toml:"y_min"`
	YMax      float64 `toml:"y_max"`
	ZoomLevel float64 `toml:"zoom_level"`
}

// Normalize swaps bounds as needed so XMin<XMax and YMin<YMax.
func (a *PatrolArea) Normalize() {
	if a.XMin > a.XMax {
		a.XMin, a.XMax = a.XMax, a.XMin
	}
	if a.YMin > a.YMax {
		a.YMin, a.YMax = a.YMax, a.YMin
	}
}

// StreamConfig is the persisted per-stream document described in spec section 3.
type StreamConfig struct {
	StreamID      string    `toml:"stream_id"`
	RTSPLink      string    `toml:"rtsp_link"`
	ModelName     ModelName `toml:"model_name"`
	Location      string    `toml:"location"`
	Description   string    `toml:"description"`
	IsActive      bool      `toml:"is_active"`

	PTZ              PTZCredentials `toml:"ptz"`
	PTZAutotrack     bool           `toml:"ptz_autotrack"`
	IntrusionDetect  bool           `toml:"intrusion_detection"`
	SavingVideo      bool           `toml:"saving_video"`

	SafeArea *SafeArea `toml:"safe_area"`

	PatrolArea               *PatrolArea  `toml:"patrol_area"`
	PatrolPattern             []Waypoint3D `toml:"patrol_pattern"`
	PatrolHomePosition        *PTZPosition `toml:"patrol_home_position"`
	PatrolEnabled             bool         `toml:"patrol_enabled"`
	PatrolMode                PatrolMode   `toml:"patrol_mode"`
	EnableFocusDuringPatrol   bool         `toml:"enable_focus_during_patrol"`
}

// Validate enforces the invariants in spec section 3, normalizing PatrolArea
// bounds in place before checking patrol-mode prerequisites.
func (c *StreamConfig) Validate() error {
	if c.StreamID == "" {
		return fmt.Errorf("stream_id is required")
	}
	if !c.ModelName.valid() {
		return fmt.Errorf("unknown model_name %q", c.ModelName)
	}

	if c.PatrolArea != nil {
		c.PatrolArea.Normalize()
	}

	switch c.PatrolMode {
	case "", PatrolOff:
	case PatrolGrid:
		if c.PatrolArea == nil {
			return fmt.Errorf("patrol_mode=grid requires a patrol_area")
		}
	case PatrolPattern:
		if len(c.PatrolPattern) < 2 {
			return fmt.Errorf("patrol_mode=pattern requires at least 2 waypoints, got %d", len(c.PatrolPattern))
		}
	default:
		return fmt.Errorf("unknown patrol_mode %q", c.PatrolMode)
	}

	return nil
}
