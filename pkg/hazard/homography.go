package hazard

import (
	"sync"
	"time"
)

// Matrix3x3 is a row-major 3x3 projective transform.
type Matrix3x3 [9]float64

// identityMatrix is the no-op projection used whenever a dynamic-mode
// estimate cannot be produced (spec section 4.2: "if none, to identity").
var identityMatrix = Matrix3x3{
	1, 0, 0,
	0, 1, 0,
	0, 0, 1,
}

// apply projects p through h.
func (h Matrix3x3) apply(poly Polygon) Polygon {
	out := make(Polygon, len(poly))
	for i, p := range poly {
		w := h[6]*p.X + h[7]*p.Y + h[8]
		if w == 0 {
			out[i] = p
			continue
		}
		x := (h[0]*p.X + h[1]*p.Y + h[2]) / w
		y := (h[3]*p.X + h[4]*p.Y + h[5]) / w
		out[i] = Point{X: x, Y: y}
	}
	return out
}

// computeHomographyFunc estimates a planar homography mapping points in the
// reference frame to points in the current frame using feature matching. It
// is satisfied by the gocv-backed ORB+BFMatcher implementation when built
// with cgo, and by a fallback that always reports failure otherwise so the
// tracker degrades to the identity transform rather than failing to build.
//
// ok is false when too few correspondences were found to fit a homography.
var computeHomographyFunc func(refFrame []byte, refW, refH int, curFrame []byte, curW, curH int) (m Matrix3x3, ok bool)

// homographyEstimator tracks the last-good estimate so a transient feature-
// matching failure degrades to it rather than to the identity transform
// (spec section 4.2's graceful-degradation contract), and throttles how
// often the expensive feature-matching step reruns.
type homographyEstimator struct {
	mu          sync.Mutex
	lastGood    Matrix3x3
	haveGood    bool
	lastAttempt time.Time
	cached      Matrix3x3
}

func newHomographyEstimator() *homographyEstimator {
	return &homographyEstimator{cached: identityMatrix}
}

func (e *homographyEstimator) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.haveGood = false
	e.lastGood = identityMatrix
	e.cached = identityMatrix
	e.lastAttempt = time.Time{}
}

// estimate returns the homography to apply for this frame and whether the
// caller should surface the one-shot degraded-projection warning. It only
// recomputes via computeHomographyFunc every refreshInterval; in between it
// reuses the cached matrix, since feature matching is the expensive step.
func (e *homographyEstimator) estimate(refFrame []byte, refW, refH int, curFrame []byte, curW, curH int) (Matrix3x3, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lastAttempt.IsZero() && time.Since(e.lastAttempt) < refreshInterval {
		return e.cached, !e.haveGood
	}
	e.lastAttempt = time.Now()

	if computeHomographyFunc == nil || refFrame == nil {
		return e.fallbackLocked()
	}

	m, ok := computeHomographyFunc(refFrame, refW, refH, curFrame, curW, curH)
	if !ok {
		return e.fallbackLocked()
	}

	e.lastGood = m
	e.haveGood = true
	e.cached = m
	return m, false
}

// fallbackLocked must be called with mu held.
func (e *homographyEstimator) fallbackLocked() (Matrix3x3, bool) {
	if e.haveGood {
		e.cached = e.lastGood
		return e.lastGood, false
	}
	e.cached = identityMatrix
	return identityMatrix, true
}
