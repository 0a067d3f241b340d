package hazard

import "sync"

// kalmanFilter is a 1D constant-value Kalman filter, ported from the
// teacher's pkg/miface KalmanFilter used there for landmark smoothing; here
// it smooths a single polygon-vertex coordinate against homography jitter.
type kalmanFilter struct {
	x, p, q, r  float64
	initialized bool
}

func newKalmanFilter(smoothingFactor float64) *kalmanFilter {
	q := 0.1
	r := 1.0 - smoothingFactor*0.9 + 0.1
	return &kalmanFilter{p: 1.0, q: q, r: r}
}

func (kf *kalmanFilter) update(measurement float64) float64 {
	if !kf.initialized {
		kf.x = measurement
		kf.initialized = true
		return measurement
	}
	pPred := kf.p + kf.q
	k := pPred / (pPred + kf.r)
	kf.x = kf.x + k*(measurement-kf.x)
	kf.p = (1 - k) * pPred
	return kf.x
}

func (kf *kalmanFilter) reset() {
	kf.x, kf.p, kf.initialized = 0, 1.0, false
}

// vertexFilter smooths one polygon vertex's X and Y independently.
type vertexFilter struct {
	x, y *kalmanFilter
}

func newVertexFilter(smoothingFactor float64) *vertexFilter {
	return &vertexFilter{x: newKalmanFilter(smoothingFactor), y: newKalmanFilter(smoothingFactor)}
}

func (vf *vertexFilter) update(p Point) Point {
	return Point{X: vf.x.update(p.X), Y: vf.y.update(p.Y)}
}

func (vf *vertexFilter) reset() {
	vf.x.reset()
	vf.y.reset()
}

// polygonSmoother dampens per-vertex jitter introduced by re-estimating the
// dynamic-mode homography every refreshInterval, generalizing the teacher's
// LandmarkSmoother (keyed by landmark index) to polygon index + vertex
// index instead of face-mesh landmark index.
type polygonSmoother struct {
	mu      sync.Mutex
	filters map[[2]int]*vertexFilter
	factor  float64
}

func newPolygonSmoother(smoothingFactor float64) *polygonSmoother {
	return &polygonSmoother{filters: make(map[[2]int]*vertexFilter), factor: smoothingFactor}
}

// Smooth filters polyIdx's projected vertices against their previous
// smoothed positions.
func (s *polygonSmoother) Smooth(polyIdx int, poly Polygon) Polygon {
	if len(poly) == 0 {
		return poly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(Polygon, len(poly))
	for i, p := range poly {
		key := [2]int{polyIdx, i}
		vf, ok := s.filters[key]
		if !ok {
			vf = newVertexFilter(s.factor)
			s.filters[key] = vf
		}
		out[i] = vf.update(p)
	}
	return out
}

// Reset clears all vertex filters, used whenever the polygon set changes so
// stale filter state from a previous configuration never bleeds in.
func (s *polygonSmoother) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, vf := range s.filters {
		vf.reset()
	}
	s.filters = make(map[[2]int]*vertexFilter)
}
