// Package hazard implements the hazard-zone tracker (spec component C2):
// holding a stream's configured safe-area polygons, projecting them onto the
// current frame under static or dynamic camera motion, and drawing them for
// operator overlays.
package hazard

import (
	"sync"
	"time"
)

// Point is a 2D pixel coordinate.
type Point struct {
	X float64
	Y float64
}

// Polygon is an ordered set of vertices defining one hazard/safe area.
type Polygon []Point

// Tracker holds the configured safe-area polygons for one stream and
// projects them onto incoming frames, generalizing the original
// SafeAreaTracker (hazard_service.py's set_safe_area/get_transformed_safe_areas
// contract in spec section 4.2).
type Tracker struct {
	mu sync.Mutex

	polygons       []Polygon
	referenceFrame []byte // packed BGR24, same layout as capture.Frame.Data
	refWidth       int
	refHeight      int
	staticMode     bool

	homography    *homographyEstimator
	smoother      *polygonSmoother
	warnedOnce    bool
	onWarn        func(string)
}

// NewTracker creates an empty hazard-zone tracker. onWarn receives the
// one-shot degraded-homography warning; it may be nil.
func NewTracker(onWarn func(string)) *Tracker {
	if onWarn == nil {
		onWarn = func(string) {}
	}
	return &Tracker{
		staticMode: true,
		homography: newHomographyEstimator(),
		smoother:   newPolygonSmoother(0.35),
		onWarn:     onWarn,
	}
}

// SetSafeArea atomically replaces the polygon set, reference frame, and
// static/dynamic mode (spec section 4.2: "atomically replaces the zone
// set"). referenceFrame is the packed BGR24 frame the polygons were drawn
// against; it is required in dynamic mode and ignored in static mode.
func (t *Tracker) SetSafeArea(polygons []Polygon, referenceFrame []byte, refWidth, refHeight int, staticMode bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.polygons = polygons
	t.referenceFrame = referenceFrame
	t.refWidth = refWidth
	t.refHeight = refHeight
	t.staticMode = staticMode
	t.homography.reset()
	t.smoother.Reset()
	t.warnedOnce = false
}

// SetStaticMode toggles static/dynamic projection without touching the
// configured polygons (hazard_service.py's set_camera_mode).
func (t *Tracker) SetStaticMode(static bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staticMode = static
}

// StaticMode reports the current mode.
func (t *Tracker) StaticMode() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.staticMode
}

// HasZones reports whether any safe-area polygons are configured.
func (t *Tracker) HasZones() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.polygons) > 0
}

// GetTransformedSafeAreas projects the configured polygons onto
// currentFrame's coordinate space. In static mode the polygons are returned
// unchanged. In dynamic mode a planar homography from the reference frame
// to currentFrame is estimated and applied; per spec section 4.2 this
// degrades gracefully to the last good homography, and ultimately to the
// identity transform with a one-shot warning, rather than ever failing the
// call. The lock is held only long enough to snapshot polygons + reference;
// the homography estimate and projection run on that local copy.
func (t *Tracker) GetTransformedSafeAreas(currentFrame []byte, width, height int) []Polygon {
	t.mu.Lock()
	polygons := make([]Polygon, len(t.polygons))
	copy(polygons, t.polygons)
	reference := t.referenceFrame
	refW, refH := t.refWidth, t.refHeight
	static := t.staticMode
	t.mu.Unlock()

	if static || len(polygons) == 0 {
		return polygons
	}

	h, degraded := t.homography.estimate(reference, refW, refH, currentFrame, width, height)
	if degraded {
		t.mu.Lock()
		already := t.warnedOnce
		t.warnedOnce = true
		t.mu.Unlock()
		if !already {
			t.onWarn("hazard tracker: insufficient feature correspondences, falling back to identity projection")
		}
	}

	projected := make([]Polygon, len(polygons))
	for i, poly := range polygons {
		projected[i] = t.smoother.Smooth(i, h.apply(poly))
	}
	return projected
}

// Draw overlays polygons onto an annotated frame buffer in place, drawing
// each edge as a simple line rasterization (spec section 4.2's draw
// contract). frame is packed BGR24 of size width*height*3.
func Draw(frame []byte, width, height int, polygons []Polygon, color [3]byte) {
	for _, poly := range polygons {
		n := len(poly)
		if n < 2 {
			continue
		}
		for i := 0; i < n; i++ {
			a := poly[i]
			b := poly[(i+1)%n]
			drawLine(frame, width, height, a, b, color)
		}
	}
}

func drawLine(frame []byte, width, height int, a, b Point, color [3]byte) {
	x0, y0 := int(a.X), int(a.Y)
	x1, y1 := int(b.X), int(b.Y)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		setPixel(frame, width, height, x0, y0, color)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func setPixel(frame []byte, width, height, x, y int, color [3]byte) {
	if x < 0 || y < 0 || x >= width || y >= height {
		return
	}
	off := (y*width + x) * 3
	if off+2 >= len(frame) {
		return
	}
	frame[off] = color[0]
	frame[off+1] = color[1]
	frame[off+2] = color[2]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// refreshInterval bounds how often dynamic mode re-estimates the homography
// rather than reusing the last good one, since feature matching is the
// expensive step of the projection (spec section 4.2 degrade-gracefully
// note extended with a cadence so a camera held still does not re-run ORB
// every frame).
const refreshInterval = 500 * time.Millisecond
