// Package ptzctl implements the PTZ auto-tracker (spec component C6):
// pan/tilt/zoom correction that keeps detected people centered in frame,
// throttled movement commands, a single-consumer command queue, and a
// return-to-home behavior once detections stop for a timeout, ported from
// original_source/src/ptz/autotrack.py's PTZAutoTracker.
package ptzctl

import (
	"math"
	"sync"
	"time"
)

// Box is an axis-aligned pixel bounding box; frame.Box satisfies the same
// shape but ptzctl stays decoupled from pkg/frame to avoid an import cycle
// (the stream engine converts between the two).
type Box struct {
	X0, Y0, X1, Y1 float64
}

const (
	defaultCenterToleranceX = 0.1
	defaultCenterToleranceY = 0.1
	defaultPanVelocity      = 0.8
	defaultTiltVelocity     = 0.8
	defaultZoomVelocity     = 0.1
	defaultMinZoom          = 0.1
	defaultMaxZoom          = 0.3
	defaultMoveThrottle     = 500 * time.Millisecond
	defaultNoObjectTimeout  = 5 * time.Second

	minTargetAreaRatio = 0.03
	maxTargetAreaRatio = 0.1
)

// Move is a normalized pan/tilt/zoom velocity command in [-1, 1].
type Move struct {
	Pan  float64
	Tilt float64
	Zoom float64
}

// AutoTracker computes and throttles PTZ corrections that keep the
// tracked person(s) centered, generalizing calculate_movement/track.
type AutoTracker struct {
	mu sync.Mutex

	centerToleranceX float64
	centerToleranceY float64
	panVelocity      float64
	tiltVelocity     float64
	zoomVelocity     float64
	minZoom          float64
	maxZoom          float64
	moveThrottle     time.Duration
	noObjectTimeout  time.Duration

	zoomLevel          float64
	lastMoveTime       time.Time
	lastDetectionTime  time.Time
	isAtDefaultPos     bool
	homePan, homeTilt  float64
	homeZoom           float64
	nowFunc            func() time.Time
}

// NewAutoTracker creates an AutoTracker with autotrack.py's default
// tolerances/velocities/zoom limits.
func NewAutoTracker() *AutoTracker {
	now := time.Now()
	return &AutoTracker{
		centerToleranceX: defaultCenterToleranceX,
		centerToleranceY: defaultCenterToleranceY,
		panVelocity:      defaultPanVelocity,
		tiltVelocity:     defaultTiltVelocity,
		zoomVelocity:     defaultZoomVelocity,
		minZoom:          defaultMinZoom,
		maxZoom:          defaultMaxZoom,
		moveThrottle:     defaultMoveThrottle,
		noObjectTimeout:  defaultNoObjectTimeout,
		zoomLevel:        defaultMinZoom,
		lastMoveTime:     now,
		lastDetectionTime: now,
		homeZoom:         defaultMinZoom,
		nowFunc:          time.Now,
	}
}

// SetHome records the position used when the tracker returns home after
// losing its target.
func (a *AutoTracker) SetHome(pan, tilt, zoom float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.homePan, a.homeTilt, a.homeZoom = pan, tilt, zoom
}

// ZoomLevel returns the tracker's current estimate of the camera's zoom.
func (a *AutoTracker) ZoomLevel() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.zoomLevel
}

// Track evaluates one frame's detections and returns the move to enqueue,
// and whether the tracker should instead return to its home position
// (boxes empty for longer than noObjectTimeout). Mirrors track()'s
// branching: no detections → maybe go home; detections → throttle, compute,
// enqueue or stop.
func (a *AutoTracker) Track(frameWidth, frameHeight int, boxes []Box) (move Move, shouldMove bool, goHome bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.nowFunc()

	if len(boxes) == 0 {
		if now.Sub(a.lastDetectionTime) > a.noObjectTimeout && !a.isAtDefaultPos {
			a.isAtDefaultPos = true
			return Move{}, false, true
		}
		return Move{}, false, false
	}

	a.lastDetectionTime = now
	a.isAtDefaultPos = false

	if now.Sub(a.lastMoveTime) < a.moveThrottle {
		return Move{}, false, false
	}

	m := a.calculateMovement(frameWidth, frameHeight, boxes)
	a.lastMoveTime = now

	if m.Pan == 0 && m.Tilt == 0 && m.Zoom == 0 {
		return Move{}, false, false
	}
	return m, true, false
}

// Home returns the configured home pan/tilt/zoom.
func (a *AutoTracker) Home() (pan, tilt, zoom float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.homePan, a.homeTilt, a.homeZoom
}

func (a *AutoTracker) calculateMovement(frameWidth, frameHeight int, boxes []Box) Move {
	fw, fh := float64(frameWidth), float64(frameHeight)
	centerX, centerY := fw/2, fh/2

	var sumX, sumY float64
	areas := make([]float64, len(boxes))
	centersX := make([]float64, len(boxes))
	centersY := make([]float64, len(boxes))
	for i, b := range boxes {
		w := b.X1 - b.X0
		h := b.Y1 - b.Y0
		cx := b.X0 + w/2
		cy := b.Y0 + h/2
		centersX[i], centersY[i] = cx, cy
		areas[i] = w * h
		sumX += cx
		sumY += cy
	}
	n := float64(len(boxes))
	avgX, avgY := sumX/n, sumY/n

	deltaX := (avgX - centerX) / fw
	deltaY := (avgY - centerY) / fh

	// Tolerances scale with (1 - zoom_level), floored at 0.05 (spec section
	// 4.6); computed from the configured base tolerance each call, not
	// compounded across calls.
	toleranceX := math.Max(0.05, a.centerToleranceX*(1-a.zoomLevel))
	toleranceY := math.Max(0.05, a.centerToleranceY*(1-a.zoomLevel))

	pan := calculatePanTilt(deltaX, toleranceX, a.panVelocity, false)
	tilt := calculatePanTilt(deltaY, toleranceY, a.tiltVelocity, true)
	zoom := a.calculateZoom(fw, fh, areas, centersX, centersY)

	return Move{Pan: pan, Tilt: tilt, Zoom: zoom}
}

func calculatePanTilt(delta, tolerance, velocity float64, invert bool) float64 {
	if math.Abs(delta) <= tolerance {
		return 0
	}
	dir := velocity * delta
	if invert {
		dir = -dir
	}
	return math.Max(-1, math.Min(1, dir))
}

func (a *AutoTracker) calculateZoom(frameWidth, frameHeight float64, areas, centersX, centersY []float64) float64 {
	frameArea := frameWidth * frameHeight
	var totalArea float64
	for _, ar := range areas {
		totalArea += ar
	}
	currentAreaRatio := totalArea / frameArea

	centerX, centerY := frameWidth/2, frameHeight/2
	maxDist := 0.0
	for i := range centersX {
		dx := (centersX[i] - centerX) / frameWidth
		dy := (centersY[i] - centerY) / frameHeight
		d := math.Sqrt(dx*dx + dy*dy)
		if d > maxDist {
			maxDist = d
		}
	}

	zoomInThreshold := minTargetAreaRatio * (1 - a.zoomLevel)
	zoomOutThreshold := maxTargetAreaRatio * (1 + a.zoomLevel)

	zoomDirection := 0.0
	switch {
	case currentAreaRatio < zoomInThreshold && a.zoomLevel < a.maxZoom:
		zoomDirection = a.zoomVelocity * (1 - maxDist)
	case currentAreaRatio > zoomOutThreshold && a.zoomLevel > a.minZoom:
		zoomDirection = -a.zoomVelocity * (1 + maxDist)
	}

	a.zoomLevel = math.Max(a.minZoom, math.Min(a.maxZoom, a.zoomLevel+zoomDirection))
	return zoomDirection
}
