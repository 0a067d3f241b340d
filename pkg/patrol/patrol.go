package patrol

import (
	"context"
	"sync"
	"time"
)

// Default constants carried over exactly from patrol_mixin.py's
// PatrolMixin class attributes.
const (
	DefaultObjectFocusDuration       = 10 * time.Second
	DefaultMinObjectFocusDuration    = 5 * time.Second
	DefaultMinLostDuration           = 1 * time.Second
	DefaultTrackingCooldownDuration  = 5 * time.Second
	DefaultFocusMaxZoom              = 1.0
	DefaultPatrolGridX               = 4
	DefaultPatrolGridY               = 3
	DefaultHomeRestDuration          = 30 * time.Second
	DefaultPatternRestCycles         = 1
	DefaultMinWaypointDwellBeforeFocus = 5 * time.Second
	DefaultDwellTime                 = 30 * time.Second
)

// Mover is the subset of ptzctl.Controller the patrol engine drives.
type Mover interface {
	AbsoluteMove(ctx context.Context, pan, tilt, zoom float64) error
	Stop(ctx context.Context) error
}

// Config tunes one patrol run.
type Config struct {
	Waypoints                []Waypoint
	Zoom                     float64
	DwellTime                time.Duration
	ObjectFocusDuration      time.Duration
	MinObjectFocusDuration   time.Duration
	// MinLostDuration is how long the detector must report zero persons
	// before a focus session ends (original_source's tracker.py
	// _handle_no_objects_during_patrol debounces a single missed-detection
	// frame rather than dropping focus on it immediately).
	MinLostDuration          time.Duration
	TrackingCooldownDuration time.Duration
	HomeRestDuration         time.Duration
	PatternRestCycles        int
	HomePan, HomeTilt        float64
	HomeZoom                 float64

	// EnableFocusDuringPatrol gates every focus hand-off (enable_focus_during_patrol).
	EnableFocusDuringPatrol bool
	// PatternMode is true for a custom-waypoint patrol and false for a grid
	// patrol; grid mode can focus at any waypoint once EnableFocusDuringPatrol
	// holds, pattern mode additionally requires dwell time and a once-per-cycle
	// gate (can_focus_during_patrol, spec section 4.7).
	PatternMode bool
	// MinWaypointDwellBeforeFocus is how long the camera must have been
	// dwelling at the current pattern waypoint before a detection can focus.
	MinWaypointDwellBeforeFocus time.Duration
}

// DefaultConfig returns a grid patrol over area using patrol_mixin.py's
// defaults (4x3 grid, horizontal snake).
func DefaultConfig(area Area) Config {
	grid := Grid{Area: area, XPositions: DefaultPatrolGridX, YPositions: DefaultPatrolGridY}
	return Config{
		Waypoints:                grid.Waypoints(Horizontal),
		Zoom:                     0.3,
		DwellTime:                DefaultDwellTime,
		ObjectFocusDuration:      DefaultObjectFocusDuration,
		MinObjectFocusDuration:   DefaultMinObjectFocusDuration,
		MinLostDuration:          DefaultMinLostDuration,
		TrackingCooldownDuration: DefaultTrackingCooldownDuration,
		HomeRestDuration:         DefaultHomeRestDuration,
		PatternRestCycles:        DefaultPatternRestCycles,
	}
}

// Engine drives a patrol state machine. Background stepping happens via
// Run, a context-scoped goroutine matching the teacher's Tracker
// start/stop/close idiom; the pure advancement logic (advance, in state.go)
// stays independently testable.
type Engine struct {
	cfg   Config
	mover Mover
	onLog func(string)

	mu          sync.Mutex
	state       State
	waypointIdx int
	cycleCount  int
	restCycles  int

	focusStarted      time.Time
	lostSince         time.Time
	cooldownEnd       time.Time
	restEnd           time.Time
	restMoveIssued    bool
	nextAdvanceAt     time.Time
	waypointArrivedAt time.Time
	focusedThisCycle  map[int]bool

	clock func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Engine in StateOff.
func New(cfg Config, mover Mover, onLog func(string)) *Engine {
	if onLog == nil {
		onLog = func(string) {}
	}
	if cfg.PatternRestCycles <= 0 {
		cfg.PatternRestCycles = DefaultPatternRestCycles
	}
	return &Engine{
		cfg:              cfg,
		mover:            mover,
		onLog:            onLog,
		state:            StateOff,
		clock:            time.Now,
		focusedThisCycle: make(map[int]bool),
	}
}

// State reports the engine's current mode.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start transitions Off→Patrolling and launches the background stepping
// goroutine bound to ctx.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.state != StateOff {
		e.mu.Unlock()
		return
	}
	e.state = Transition(e.state, EventStart)
	e.waypointIdx = 0
	e.cycleCount = 0
	e.focusedThisCycle = make(map[int]bool)
	e.lostSince = time.Time{}
	e.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.wg.Add(1)
	go e.run(runCtx)
}

// Stop ends the patrol and waits for the background goroutine to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state == StateOff {
		e.mu.Unlock()
		return
	}
	e.state = Transition(e.state, EventStop)
	e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), onvifStopTimeout)
	defer cancel()
	_ = e.mover.Stop(stopCtx)
}

const onvifStopTimeout = 5 * time.Second

// NotifyObjectDetected hands the patrol off to auto-tracking focus mode.
// Called by the stream engine's processing loop for each frame with a
// detected person while focus during patrol is enabled. Outside
// Patrolling/Focusing the detection is
// ignored (Off, Cooldown, and RestingAtHome all drop detections per spec
// section 4.7); while Patrolling it additionally runs can_focus_during_patrol.
func (e *Engine) NotifyObjectDetected() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePatrolling && e.state != StateFocusing {
		return
	}
	if e.state == StatePatrolling && !e.canFocusDuringPatrolLocked() {
		return
	}
	if e.state != StateFocusing {
		e.focusStarted = e.clock()
		if e.cfg.PatternMode {
			e.focusedThisCycle[e.waypointIdx] = true
		}
	}
	e.lostSince = time.Time{}
	e.state = Transition(e.state, EventObjectDetected)
}

// canFocusDuringPatrolLocked implements can_focus_during_patrol (spec
// section 4.7): focus must be enabled; grid mode may always focus; pattern
// mode additionally requires the camera to be dwelling at the current
// waypoint for at least MinWaypointDwellBeforeFocus and that waypoint to
// not have already focused this cycle. Caller holds e.mu.
func (e *Engine) canFocusDuringPatrolLocked() bool {
	if !e.cfg.EnableFocusDuringPatrol {
		return false
	}
	if !e.cfg.PatternMode {
		return true
	}
	if e.focusedThisCycle[e.waypointIdx] {
		return false
	}
	return e.clock().Sub(e.waypointArrivedAt) >= e.cfg.MinWaypointDwellBeforeFocus
}

// NotifyObjectLost returns the patrol from focus to a cooldown period, but
// only once the object has actually been absent for MinLostDuration *and*
// the minimum focus duration has elapsed (min_object_focus_duration). A
// frame processor calls this once per frame with zero detections, so a
// single transient miss must not end focus on its own — lostSince tracks
// when the absence began and is reset the moment NotifyObjectDetected sees
// the object again.
func (e *Engine) NotifyObjectLost() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateFocusing {
		return
	}
	now := e.clock()
	if e.lostSince.IsZero() {
		e.lostSince = now
	}
	if now.Sub(e.lostSince) < e.cfg.MinLostDuration {
		return
	}
	if now.Sub(e.focusStarted) < e.cfg.MinObjectFocusDuration {
		return
	}
	e.cooldownEnd = now.Add(e.cfg.TrackingCooldownDuration)
	e.state = Transition(e.state, EventObjectLost)
}

// run is the background stepping loop: advances through waypoints while
// Patrolling, watches for cooldown/focus-timeout/rest-elapsed while in
// other states, and issues the corresponding PTZ moves.
const pollInterval = 20 * time.Millisecond

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.step(ctx)
		}
	}
}

func (e *Engine) step(ctx context.Context) {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	switch state {
	case StatePatrolling:
		e.stepPatrolling(ctx)
	case StateFocusing:
		e.stepFocusing()
	case StateCooldown:
		e.stepCooldown()
	case StateRestingAtHome:
		e.stepResting(ctx)
	}
}

func (e *Engine) stepPatrolling(ctx context.Context) {
	e.mu.Lock()
	if len(e.cfg.Waypoints) == 0 {
		e.mu.Unlock()
		return
	}
	if e.clock().Before(e.nextAdvanceAt) {
		e.mu.Unlock()
		return
	}
	wp := e.cfg.Waypoints[e.waypointIdx]
	e.mu.Unlock()

	_ = e.mover.AbsoluteMove(ctx, wp.Pan, wp.Tilt, e.cfg.Zoom)

	e.mu.Lock()
	now := e.clock()
	e.nextAdvanceAt = now.Add(e.cfg.DwellTime)
	e.waypointArrivedAt = now
	e.waypointIdx++
	if e.waypointIdx >= len(e.cfg.Waypoints) {
		e.waypointIdx = 0
		e.cycleCount++
		e.focusedThisCycle = make(map[int]bool)
		if e.cycleCount >= e.cfg.PatternRestCycles {
			e.cycleCount = 0
			e.restEnd = e.clock().Add(e.cfg.HomeRestDuration)
			e.restMoveIssued = false
			e.state = Transition(e.state, EventCycleComplete)
		}
	}
	e.mu.Unlock()
}

// stepFocusing forces focus to end once ObjectFocusDuration is exceeded,
// regardless of whether the object is still being detected — a hard cap
// distinct from the lost-object debounce NotifyObjectLost applies, so it
// bypasses that debounce rather than calling NotifyObjectLost.
func (e *Engine) stepFocusing() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateFocusing {
		return
	}
	maxDuration := e.cfg.ObjectFocusDuration
	if maxDuration <= 0 || e.clock().Sub(e.focusStarted) <= maxDuration {
		return
	}
	e.cooldownEnd = e.clock().Add(e.cfg.TrackingCooldownDuration)
	e.state = Transition(e.state, EventObjectLost)
}

func (e *Engine) stepCooldown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clock().After(e.cooldownEnd) {
		e.state = Transition(e.state, EventCooldownElapsed)
	}
}

func (e *Engine) stepResting(ctx context.Context) {
	e.mu.Lock()
	restEnd := e.restEnd
	needsMove := !e.restMoveIssued
	e.restMoveIssued = true
	e.mu.Unlock()

	if needsMove {
		_ = e.mover.AbsoluteMove(ctx, e.cfg.HomePan, e.cfg.HomeTilt, e.cfg.HomeZoom)
	}

	if e.clock().After(restEnd) {
		e.mu.Lock()
		e.state = Transition(e.state, EventRestElapsed)
		e.mu.Unlock()
	}
}
