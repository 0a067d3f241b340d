// Package stream implements the Stream Engine and Stream Registry (spec
// components C8/C9): the per-stream coordinator owning one Capture
// Pipeline, Hazard-Zone Tracker, Frame Processor, Event Recorder, Output
// Sink, and — when configured — one PTZ Auto-Tracker and Patrol Engine,
// generalizing the teacher's Tracker (pkg/miface/tracker.go) start/stop/
// subscribe idiom from a fixed face-tracking pipeline to a pluggable,
// per-stream safety pipeline.
package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isafeguard/engine/internal/config"
	"github.com/isafeguard/engine/pkg/capture"
	"github.com/isafeguard/engine/pkg/events"
	"github.com/isafeguard/engine/pkg/frame"
	"github.com/isafeguard/engine/pkg/hazard"
	"github.com/isafeguard/engine/pkg/patrol"
	"github.com/isafeguard/engine/pkg/ptzctl"
	"github.com/isafeguard/engine/pkg/recorder"
	"github.com/isafeguard/engine/pkg/sink"
)

// EngineState mirrors the teacher's TrackerState enum, renamed to the
// names used throughout spec section 4.8/5.
type EngineState int

const (
	StateInactive EngineState = iota
	StateStarting
	StateActive
	StateStopping
)

func (s EngineState) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Dependencies bundles the external collaborators one Engine needs,
// injected by cmd/engine so this package never constructs a concrete
// detector, capture backend, clip writer, or output sink itself (spec
// section 6.1's external-collaborator boundary).
type Dependencies struct {
	CaptureFactory    capture.SourceFactory
	Detector          frame.Detector
	ClipWriterFactory recorder.ClipWriterFactory
	EventStore        recorder.EventStore
	Notifier          recorder.Notifier
	SinkFactory       func(streamID string) sink.CommandFactory
	Bus               *events.Bus
}

// Engine drives one stream end to end (spec section 4.8).
type Engine struct {
	streamID string
	env      *config.EnvConfig
	deps     Dependencies
	onLog    func(string)

	mu          sync.RWMutex
	state       EngineState
	cfg         config.StreamConfig
	intrusionOn bool
	savingOn    bool
	ptzOn       bool

	capturePipeline *capture.Pipeline
	hazardTracker   *hazard.Tracker
	processor       *frame.Processor
	recorder        *recorder.Recorder
	sink            *sink.Sink

	ptzHandoff    *ptzHandoff
	ptzController *ptzctl.Controller
	ptzQueue      *ptzctl.CommandQueue
	patrolEngine  *patrol.Engine

	stats *Stats

	lastFrameMu   sync.Mutex
	lastFrameData []byte
	lastFrameW    int
	lastFrameH    int

	subMu       sync.Mutex
	subscribers []chan frame.Output

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an Engine in StateInactive for one persisted StreamConfig.
// It wires the Frame Processor's hazard/alert collaborators eagerly since
// those are cheap and required to start; PTZ/patrol collaborators are
// created lazily in Start, since they depend on a live ONVIF connection.
func New(cfg config.StreamConfig, env *config.EnvConfig, deps Dependencies, onLog func(string)) (*Engine, error) {
	if onLog == nil {
		onLog = func(string) {}
	}

	hazardTracker := hazard.NewTracker(onLog)

	var alerts frame.AlertPublisher
	if deps.Bus != nil {
		alerts = events.IntrusionPublisher{Bus: deps.Bus}
	}

	e := &Engine{
		streamID:    cfg.StreamID,
		env:         env,
		deps:        deps,
		onLog:       onLog,
		state:       StateInactive,
		cfg:         cfg,
		intrusionOn: cfg.IntrusionDetect,
		savingOn:    cfg.SavingVideo,
		ptzOn:       cfg.PTZAutotrack,
		hazardTracker: hazardTracker,
		stats:         NewStats(env.Frame.FPSQueueSize),
	}

	var ptzHand frame.PTZHandoff
	if cfg.PTZ.CamIP != "" {
		e.ptzHandoff = newPTZHandoff(ptzctl.NewAutoTracker(), onLog)
		ptzHand = e.ptzHandoff
	}

	proc, err := frame.NewProcessor(cfg.StreamID, cfg.ModelName, deps.Detector, hazardTracker, ptzHand, alerts)
	if err != nil {
		return nil, fmt.Errorf("stream %s: %w", cfg.StreamID, err)
	}
	e.processor = proc

	recCfg := recorder.Config{
		FrameInterval:  env.Frame.FrameInterval,
		UnsafeRatio:    env.Event.UnsafeRatio,
		Cooldown:       env.Event.Cooldown,
		RecordDuration: env.Event.RecordDuration,
	}
	e.recorder = recorder.New(cfg.StreamID, string(cfg.ModelName), recCfg, deps.ClipWriterFactory, deps.EventStore, deps.Notifier, onLog)

	if deps.SinkFactory != nil {
		e.sink = sink.New(deps.SinkFactory(cfg.StreamID), onLog)
	}

	if cfg.SafeArea != nil {
		e.applySafeAreaLocked(*cfg.SafeArea)
	}

	return e, nil
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Stats returns a snapshot of the rolling statistics (spec section 3).
func (e *Engine) Stats() Snapshot {
	return e.stats.Snapshot()
}

// Start spawns the capture and processing workers, asynchronously
// initializes PTZ if configured, and restores persisted hazard-zone/patrol
// state (spec section 4.8).
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateInactive {
		e.mu.Unlock()
		return ErrAlreadyActive
	}
	e.state = StateStarting
	cfg := e.cfg
	e.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	capCfg := capture.DefaultConfig()
	capCfg.Primary = cfg.RTSPLink
	capCfg.Alternative = capture.AlternativeDescriptor(cfg.RTSPLink)
	capCfg.ReconnectWait = e.env.Network.ReconnectWait
	capCfg.MaxReconnectWait = e.env.Network.MaxReconnectWait
	capCfg.FrameTimeout = e.env.Network.FrameTimeout
	capCfg.QueueSize = e.env.Frame.MaxQueueSize

	e.capturePipeline = capture.New(capCfg, e.deps.CaptureFactory, e.onLog)
	e.capturePipeline.Start(runCtx)

	if cfg.PTZ.CamIP != "" {
		e.wg.Add(1)
		go e.initPTZ(runCtx, cfg)
	}

	e.wg.Add(1)
	go e.processingLoop(runCtx)

	e.wg.Add(1)
	go e.healthWatcher(runCtx)

	e.mu.Lock()
	e.state = StateActive
	e.mu.Unlock()
	return nil
}

// Stop tears down the pipeline, patrol, sinks, and PTZ controller, joining
// workers with a timeout (spec section 4.8/5).
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state == StateInactive {
		e.mu.Unlock()
		return
	}
	e.state = StateStopping
	e.mu.Unlock()

	// Stop patrol before cancelling the stream context: patrol's final Stop
	// move is submitted on the PTZ command queue, whose consumer goroutine
	// is bound to that same context and would otherwise already be gone.
	e.mu.RLock()
	patrolEngine := e.patrolEngine
	e.mu.RUnlock()
	if patrolEngine != nil {
		patrolEngine.Stop()
	}

	if e.cancel != nil {
		e.cancel()
	}

	if e.capturePipeline != nil {
		e.capturePipeline.Stop(5 * time.Second)
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		e.onLog(fmt.Sprintf("stream %s: workers did not stop within timeout", e.streamID))
	}

	e.recorder.Stop()
	if e.sink != nil {
		_ = e.sink.Close()
	}
	e.processor.GCTracks()

	e.mu.Lock()
	e.state = StateInactive
	e.mu.Unlock()
}

// Restart stops then starts the engine using its latest persisted config.
func (e *Engine) Restart(ctx context.Context) error {
	e.Stop()
	return e.Start(ctx)
}

// Subscribe returns a channel receiving every processed frame's Output
// (overlay/status/reasons), generalizing Tracker.Subscribe's
// broadcast-with-drop contract (spec section 4.3 step 6 consumers).
func (e *Engine) Subscribe() <-chan frame.Output {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	ch := make(chan frame.Output, 4)
	e.subscribers = append(e.subscribers, ch)
	return ch
}

func (e *Engine) broadcast(out frame.Output) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subscribers {
		select {
		case ch <- out:
		default:
		}
	}
}

// initPTZ connects to the camera's ONVIF endpoint asynchronously (spec
// section 4.8: "asynchronously initialize PTZ") and, once connected, wires
// the command queue into the frame processor's PTZ hand-off and starts
// patrol if persisted flags request it.
func (e *Engine) initPTZ(ctx context.Context, cfg config.StreamConfig) {
	defer e.wg.Done()

	endpoint := fmt.Sprintf("http://%s:%d/onvif/device_service", cfg.PTZ.CamIP, cfg.PTZ.PTZPort)
	controller, err := ptzctl.NewController(ctx, endpoint, cfg.PTZ.Username, cfg.PTZ.Password)
	if err != nil {
		e.onLog(fmt.Sprintf("stream %s: ptz init failed: %v", e.streamID, err))
		return
	}

	queue := ptzctl.NewCommandQueue(ctx, controller, e.onLog)

	e.mu.Lock()
	e.ptzController = controller
	e.ptzQueue = queue
	e.mu.Unlock()
	e.ptzHandoff.setDevice(queue)

	if cfg.PatrolEnabled {
		if err := e.startPatrol(ctx, cfg, controller); err != nil {
			e.onLog(fmt.Sprintf("stream %s: patrol autostart failed: %v", e.streamID, err))
		}
	}
}

// processingLoop dequeues decoded frames and runs C3→C4→C5 sequentially
// (spec section 5: "No yielding during inference; frame dropping is the
// only backpressure").
func (e *Engine) processingLoop(ctx context.Context) {
	defer e.wg.Done()

	var lastFrame time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-e.capturePipeline.Frames():
			if !ok {
				return
			}
			e.processOne(f, &lastFrame)
		}
	}
}

func (e *Engine) processOne(f capture.Frame, lastFrame *time.Time) {
	now := time.Now()
	fps := 0.0
	if !lastFrame.IsZero() {
		if d := now.Sub(*lastFrame).Seconds(); d > 0 {
			fps = 1 / d
		}
	}
	*lastFrame = now

	e.mu.RLock()
	intrusionOn := e.intrusionOn
	ptzOn := e.ptzOn
	savingOn := e.savingOn
	patrolEngine := e.patrolEngine
	focusEnabled := e.cfg.EnableFocusDuringPatrol
	e.mu.RUnlock()

	out, err := e.processor.Process(f.Data, f.Width, f.Height, intrusionOn, ptzOn, fps)
	if err != nil {
		e.onLog(fmt.Sprintf("stream %s: frame processing error: %v", e.streamID, err))
		return
	}

	if patrolEngine != nil && focusEnabled {
		if len(out.PersonBoxes) > 0 {
			patrolEngine.NotifyObjectDetected()
		} else {
			patrolEngine.NotifyObjectLost()
		}
	}

	if intrusionOn && e.hazardTracker.HasZones() {
		zones := e.hazardTracker.GetTransformedSafeAreas(f.Data, f.Width, f.Height)
		hazard.Draw(f.Data, f.Width, f.Height, zones, [3]byte{0, 255, 255})
	}
	if err := frame.Draw(f.Data, f.Width, f.Height, out); err != nil {
		e.onLog(fmt.Sprintf("stream %s: overlay draw error: %v", e.streamID, err))
	}

	e.stats.Observe(fps, out.Status == frame.StatusUnsafe)
	if e.stats.Snapshot().TotalFrames%int64(e.env.Frame.FrameInterval) == 0 {
		e.stats.ResetUnsafeCount()
	}

	if savingOn {
		e.recorder.Observe(f.Data, f.Width, f.Height, out.Status == frame.StatusUnsafe, out.Reasons, fps)
		if e.recorder.IsRecording() {
			e.stats.NoteEvent(now)
		}
	}

	if e.sink != nil {
		if err := e.sink.Write(f.Data); err != nil {
			e.onLog(fmt.Sprintf("stream %s: output sink write error: %v", e.streamID, err))
		}
	}

	e.lastFrameMu.Lock()
	e.lastFrameData = f.Data
	e.lastFrameW, e.lastFrameH = f.Width, f.Height
	e.lastFrameMu.Unlock()

	e.broadcast(out)
}

// healthWatcher polls capture pipeline health at 1 Hz, logging transitions
// (spec section 4.8: "A health watcher polls pipeline health at 1 Hz").
// The pipeline already reconnects itself on unhealthy detection (see
// pkg/capture's consume loop); the watcher's job here is observability.
func (e *Engine) healthWatcher(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	wasHealthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			healthy := e.capturePipeline.Healthy()
			e.stats.SetHealthy(healthy)
			if healthy != wasHealthy {
				if !healthy {
					e.onLog(fmt.Sprintf("stream %s: capture pipeline unhealthy", e.streamID))
				} else {
					e.onLog(fmt.Sprintf("stream %s: capture pipeline recovered", e.streamID))
				}
				wasHealthy = healthy
			}
		}
	}
}

// GetCurrentFrame returns the most recently captured frame JPEG-encoded
// in memory (spec section 9's Open Question resolution: an in-memory
// handle rather than a file write).
func (e *Engine) GetCurrentFrame() ([]byte, error) {
	e.lastFrameMu.Lock()
	data, w, h := e.lastFrameData, e.lastFrameW, e.lastFrameH
	e.lastFrameMu.Unlock()

	if data == nil {
		return nil, ErrNoFrameYet
	}
	return encodeJPEG(data, w, h)
}

// LatestRawFrame returns the most recently processed annotated frame as a
// packed BGR24 buffer, for local debug preview only (GetCurrentFrame is the
// spec-facing JPEG-encoded accessor, §6.1's get_current_frame).
func (e *Engine) LatestRawFrame() (data []byte, width, height int, ok bool) {
	e.lastFrameMu.Lock()
	defer e.lastFrameMu.Unlock()
	if e.lastFrameData == nil {
		return nil, 0, 0, false
	}
	return e.lastFrameData, e.lastFrameW, e.lastFrameH, true
}

// ToggleIntrusionDetection applies the toggle in memory; persistence is the
// caller's responsibility (cmd/engine writes the updated StreamConfig).
func (e *Engine) ToggleIntrusionDetection(enabled bool) {
	e.mu.Lock()
	e.intrusionOn = enabled
	e.cfg.IntrusionDetect = enabled
	e.mu.Unlock()
}

// ToggleSavingVideo applies the toggle in memory, stopping any in-progress
// clip immediately when disabled.
func (e *Engine) ToggleSavingVideo(enabled bool) {
	e.mu.Lock()
	e.savingOn = enabled
	e.cfg.SavingVideo = enabled
	e.mu.Unlock()
	if !enabled {
		e.recorder.Stop()
	}
}

// SetCameraMode toggles static/dynamic hazard-zone projection.
func (e *Engine) SetCameraMode(static bool) {
	e.hazardTracker.SetStaticMode(static)
}

// SetDangerZone replaces the configured hazard-zone polygons.
func (e *Engine) SetDangerZone(area config.SafeArea, referenceFrame []byte, refWidth, refHeight int) {
	polys := toPolygons(area.Coords)
	e.hazardTracker.SetSafeArea(polys, referenceFrame, refWidth, refHeight, area.StaticMode)

	e.mu.Lock()
	e.cfg.SafeArea = &area
	e.mu.Unlock()
}

func (e *Engine) applySafeAreaLocked(area config.SafeArea) {
	polys := toPolygons(area.Coords)
	e.hazardTracker.SetSafeArea(polys, nil, 0, 0, area.StaticMode)
}

func toPolygons(coords []config.Point2D) []hazard.Polygon {
	if len(coords) == 0 {
		return nil
	}
	poly := make(hazard.Polygon, len(coords))
	for i, c := range coords {
		poly[i] = hazard.Point{X: c.X, Y: c.Y}
	}
	return []hazard.Polygon{poly}
}

// Config returns a snapshot of the stream's current persisted-shape
// configuration, reflecting in-memory toggles applied since Start (spec
// section 4.9: the registry persists this back after lifecycle/toggle
// commands). Callers must not mutate pointer fields in place.
func (e *Engine) Config() config.StreamConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// GetSafeArea returns the currently configured hazard-zone polygons, the
// counterpart to SetDangerZone (spec section 6.1's get_safe_area /
// round-trip property in section 8).
func (e *Engine) GetSafeArea() *config.SafeArea {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.SafeArea
}

// GetCameraMode reports whether hazard-zone projection is in static mode.
func (e *Engine) GetCameraMode() bool {
	return e.hazardTracker.StaticMode()
}

// GetPatrolArea returns the currently configured grid patrol bounds, the
// counterpart to SavePatrolArea (spec section 6.1's get_patrol_area).
func (e *Engine) GetPatrolArea() *config.PatrolArea {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.PatrolArea
}

// GetPatrolPattern returns the currently configured custom waypoint
// pattern, the counterpart to SavePatrolPattern (spec section 6.1's
// get_patrol_pattern).
func (e *Engine) GetPatrolPattern() []config.Waypoint3D {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.PatrolPattern
}

// GetCurrentPTZValues queries the live device position (spec section 6.1:
// "returns {x:pan, y:tilt, z:zoom} from the device").
func (e *Engine) GetCurrentPTZValues(ctx context.Context) (pan, tilt, zoom float64, err error) {
	e.mu.RLock()
	controller := e.ptzController
	e.mu.RUnlock()
	if controller == nil {
		return 0, 0, 0, ErrPTZNotConfigured
	}

	status, err := controller.Status(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	pan, tilt, zoom, ok := positionOf(status)
	if !ok {
		return 0, 0, 0, fmt.Errorf("stream %s: camera returned no position", e.streamID)
	}
	return pan, tilt, zoom, nil
}
