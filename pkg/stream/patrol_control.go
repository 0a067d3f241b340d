package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/isafeguard/engine/internal/config"
	"github.com/isafeguard/engine/pkg/events"
	"github.com/isafeguard/engine/pkg/patrol"
	"github.com/isafeguard/engine/pkg/ptzctl"
)

// ChangeAutotrack toggles ptz_autotrack (spec section 4.8). Engaging
// captures the camera's current live position as the auto-tracker's home,
// and — when the stream's persisted patrol_enabled flag is set — starts
// patrol, preferring pattern mode when a pattern is configured, else grid.
func (e *Engine) ChangeAutotrack(ctx context.Context, enable bool) error {
	e.mu.Lock()
	if e.ptzHandoff == nil {
		e.mu.Unlock()
		return ErrPTZNotConfigured
	}
	e.ptzOn = enable
	e.cfg.PTZAutotrack = enable
	controller := e.ptzController
	cfg := e.cfg
	e.mu.Unlock()

	if enable && controller != nil {
		if pan, tilt, zoom, err := e.captureHomePosition(ctx, controller); err == nil {
			e.ptzHandoff.tracker.SetHome(pan, tilt, zoom)
		} else {
			e.onLog(fmt.Sprintf("stream %s: could not read ptz position for autotrack home: %v", e.streamID, err))
		}

		if cfg.PatrolEnabled {
			mode := config.PatrolGrid
			if len(cfg.PatrolPattern) >= 2 {
				mode = config.PatrolPattern
			}
			if err := e.TogglePatrol(ctx, mode); err != nil {
				e.onLog(fmt.Sprintf("stream %s: patrol autostart on autotrack enable failed: %v", e.streamID, err))
			}
		}
	}

	if e.deps.Bus != nil {
		e.deps.Bus.Publish("ptz-autotrack", events.PTZAutotrackPayload{PTZAutotrack: enable})
		if enable {
			e.deps.Bus.Publish("zoom-level", events.ZoomLevelPayload{Zoom: e.ptzHandoff.tracker.ZoomLevel()})
		}
	}
	return nil
}

// TogglePatrolFocus applies enable_focus_during_patrol in memory.
func (e *Engine) TogglePatrolFocus(enabled bool) {
	e.mu.Lock()
	e.cfg.EnableFocusDuringPatrol = enabled
	e.mu.Unlock()
}

// SavePatrolArea persists a grid patrol area and, if patrol is currently
// running in grid mode, rebuilds it against the new bounds.
func (e *Engine) SavePatrolArea(ctx context.Context, area config.PatrolArea) error {
	area.Normalize()
	e.mu.Lock()
	e.cfg.PatrolArea = &area
	mode := e.cfg.PatrolMode
	e.mu.Unlock()

	if mode == config.PatrolGrid {
		return e.TogglePatrol(ctx, config.PatrolGrid)
	}
	return nil
}

// SavePatrolPattern persists a custom waypoint pattern after validating it
// has at least 2 waypoints (spec section 4.7's start_patrol guard).
func (e *Engine) SavePatrolPattern(ctx context.Context, waypoints []config.Waypoint3D) error {
	wps := make([]patrol.Waypoint, len(waypoints))
	for i, w := range waypoints {
		wps[i] = patrol.Waypoint{Pan: w.X, Tilt: w.Y}
	}
	if err := patrol.ValidatePattern(wps); err != nil {
		return err
	}

	e.mu.Lock()
	e.cfg.PatrolPattern = waypoints
	mode := e.cfg.PatrolMode
	e.mu.Unlock()

	if mode == config.PatrolPattern {
		return e.TogglePatrol(ctx, config.PatrolPattern)
	}
	return nil
}

// PreviewPatrolPattern runs the configured pattern once without blocking,
// publishing patrol-preview-start/-waypoint/-complete/-error events (spec
// section 4.7). Any running patrol is stopped for the duration of the
// preview and restarted afterward with a short settle delay.
func (e *Engine) PreviewPatrolPattern(ctx context.Context) error {
	e.mu.RLock()
	cfg := e.cfg
	controller := e.ptzController
	queue := e.ptzQueue
	wasPatrolling := e.patrolEngine != nil
	e.mu.RUnlock()

	if controller == nil || queue == nil {
		return ErrPTZNotConfigured
	}

	mode := cfg.PatrolMode
	if mode == "" || mode == config.PatrolOff {
		if len(cfg.PatrolPattern) >= 2 {
			mode = config.PatrolPattern
		} else {
			mode = config.PatrolGrid
		}
	}
	pcfg, err := e.buildPatrolConfig(ctx, cfg, mode, controller)
	if err != nil {
		return err
	}
	steps := patrol.Preview(pcfg)

	if wasPatrolling {
		if err := e.TogglePatrol(ctx, config.PatrolOff); err != nil {
			e.onLog(fmt.Sprintf("stream %s: could not pause patrol for preview: %v", e.streamID, err))
		}
	}

	go e.runPreview(ctx, queue, steps, cfg, wasPatrolling, mode)
	return nil
}

func (e *Engine) runPreview(ctx context.Context, queue *ptzctl.CommandQueue, steps []patrol.PreviewStep, cfg config.StreamConfig, resumeAfter bool, resumeMode config.PatrolMode) {
	bus := e.deps.Bus
	topic := func(suffix string) string { return "patrol-preview-" + suffix + "-" + e.streamID }

	if bus != nil {
		bus.Publish(topic("start"), nil)
	}

	for i, step := range steps {
		moveCtx, cancel := context.WithTimeout(ctx, ptzHomeTimeout)
		err := queue.AbsoluteMove(moveCtx, step.Waypoint.Pan, step.Waypoint.Tilt, cfg.PatrolArea.ZoomLevel)
		cancel()
		if err != nil {
			if bus != nil {
				bus.Publish(topic("error"), events.PatrolPreviewErrorPayload{Error: err.Error()})
			}
			return
		}
		if bus != nil {
			bus.Publish(topic("waypoint"), events.PatrolPreviewWaypointPayload{Index: i, Pan: step.Waypoint.Pan, Tilt: step.Waypoint.Tilt})
		}
		time.Sleep(step.Dwell)
	}

	if bus != nil {
		bus.Publish(topic("complete"), nil)
	}

	const settleDelay = 500 * time.Millisecond
	time.Sleep(settleDelay)

	if resumeAfter {
		if err := e.TogglePatrol(ctx, resumeMode); err != nil {
			e.onLog(fmt.Sprintf("stream %s: could not resume patrol after preview: %v", e.streamID, err))
		}
	}
}

// TogglePatrol starts, reconfigures, or stops the patrol engine. mode ==
// config.PatrolOff (or empty) stops any running patrol.
func (e *Engine) TogglePatrol(ctx context.Context, mode config.PatrolMode) error {
	e.mu.RLock()
	controller := e.ptzController
	queue := e.ptzQueue
	cfg := e.cfg
	existing := e.patrolEngine
	e.mu.RUnlock()

	if existing != nil {
		existing.Stop()
		e.mu.Lock()
		e.patrolEngine = nil
		e.mu.Unlock()
	}

	if mode == "" || mode == config.PatrolOff {
		e.mu.Lock()
		e.cfg.PatrolMode = config.PatrolOff
		e.mu.Unlock()
		return nil
	}

	if controller == nil || queue == nil {
		return ErrPTZNotConfigured
	}

	pcfg, err := e.buildPatrolConfig(ctx, cfg, mode, controller)
	if err != nil {
		return err
	}

	// queue, not controller, drives the patrol engine's moves so they
	// serialize through the same single-consumer goroutine as auto-track's
	// continuous corrections (patrol.Mover is satisfied by *ptzctl.CommandQueue).
	pe := patrol.New(pcfg, queue, e.onLog)
	pe.Start(ctx)

	e.mu.Lock()
	e.patrolEngine = pe
	e.cfg.PatrolEnabled = true
	e.cfg.PatrolMode = mode
	e.mu.Unlock()
	return nil
}

// startPatrol is invoked once from initPTZ to auto-start patrol per the
// persisted patrol_enabled flag (spec section 4.8: "optionally auto-start
// patrol per persisted flags").
func (e *Engine) startPatrol(ctx context.Context, cfg config.StreamConfig, controller *ptzctl.Controller) error {
	mode := cfg.PatrolMode
	if mode == "" || mode == config.PatrolOff {
		if len(cfg.PatrolPattern) >= 2 {
			mode = config.PatrolPattern
		} else {
			mode = config.PatrolGrid
		}
	}
	return e.TogglePatrol(ctx, mode)
}

func (e *Engine) buildPatrolConfig(ctx context.Context, cfg config.StreamConfig, mode config.PatrolMode, controller *ptzctl.Controller) (patrol.Config, error) {
	pd := e.env.Patrol
	pcfg := patrol.Config{
		DwellTime:                   pd.DwellTime,
		ObjectFocusDuration:         pd.ObjectFocusDuration,
		MinObjectFocusDuration:      pd.MinObjectFocusDuration,
		MinLostDuration:             pd.MinLostDuration,
		TrackingCooldownDuration:    pd.TrackingCooldownDuration,
		HomeRestDuration:            pd.HomeRestDuration,
		PatternRestCycles:           pd.PatternRestCycles,
		EnableFocusDuringPatrol:     cfg.EnableFocusDuringPatrol,
		PatternMode:                 mode == config.PatrolPattern,
		MinWaypointDwellBeforeFocus: pd.MinWaypointDwellBeforeFocus,
	}

	switch mode {
	case config.PatrolGrid:
		if cfg.PatrolArea == nil {
			return patrol.Config{}, fmt.Errorf("stream %s: %w: grid mode requires a patrol area", e.streamID, ErrPatrolNotConfigured)
		}
		grid := patrol.Grid{
			Area: patrol.Area{
				XMin: cfg.PatrolArea.XMin, XMax: cfg.PatrolArea.XMax,
				YMin: cfg.PatrolArea.YMin, YMax: cfg.PatrolArea.YMax,
			},
			XPositions: pd.GridX,
			YPositions: pd.GridY,
		}
		pcfg.Waypoints = grid.Waypoints(patrol.Horizontal)
		pcfg.Zoom = cfg.PatrolArea.ZoomLevel
	case config.PatrolPattern:
		if len(cfg.PatrolPattern) < 2 {
			return patrol.Config{}, fmt.Errorf("stream %s: %w: pattern mode requires at least 2 waypoints", e.streamID, ErrPatrolNotConfigured)
		}
		wps := make([]patrol.Waypoint, len(cfg.PatrolPattern))
		for i, w := range cfg.PatrolPattern {
			wps[i] = patrol.Waypoint{Pan: w.X, Tilt: w.Y}
		}
		pcfg.Waypoints = wps
		pcfg.Zoom = cfg.PatrolPattern[0].Z
	default:
		return patrol.Config{}, fmt.Errorf("%w: %q", ErrInvalidPatrolMode, mode)
	}

	if cfg.PatrolHomePosition != nil {
		pcfg.HomePan = cfg.PatrolHomePosition.Pan
		pcfg.HomeTilt = cfg.PatrolHomePosition.Tilt
		pcfg.HomeZoom = cfg.PatrolHomePosition.Zoom
	} else if pan, tilt, zoom, err := e.captureHomePosition(ctx, controller); err == nil {
		pcfg.HomePan, pcfg.HomeTilt, pcfg.HomeZoom = pan, tilt, zoom
	}

	return pcfg, nil
}

func (e *Engine) captureHomePosition(ctx context.Context, controller *ptzctl.Controller) (pan, tilt, zoom float64, err error) {
	status, err := controller.Status(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	pan, tilt, zoom, ok := positionOf(status)
	if !ok {
		return 0, 0, 0, fmt.Errorf("camera returned no position")
	}
	return pan, tilt, zoom, nil
}
