package hazard

import (
	"testing"
)

func square(x0, y0, side float64) Polygon {
	return Polygon{
		{X: x0, Y: y0},
		{X: x0 + side, Y: y0},
		{X: x0 + side, Y: y0 + side},
		{X: x0, Y: y0 + side},
	}
}

func TestTracker_StaticModeReturnsUnchanged(t *testing.T) {
	tr := NewTracker(nil)
	poly := square(10, 10, 50)
	tr.SetSafeArea([]Polygon{poly}, nil, 0, 0, true)

	got := tr.GetTransformedSafeAreas(nil, 640, 480)
	if len(got) != 1 {
		t.Fatalf("expected 1 polygon, got %d", len(got))
	}
	for i, p := range got[0] {
		if p != poly[i] {
			t.Errorf("vertex %d = %+v, want %+v (static mode must not transform)", i, p, poly[i])
		}
	}
}

func TestTracker_HasZones(t *testing.T) {
	tr := NewTracker(nil)
	if tr.HasZones() {
		t.Error("expected no zones on fresh tracker")
	}
	tr.SetSafeArea([]Polygon{square(0, 0, 10)}, nil, 0, 0, true)
	if !tr.HasZones() {
		t.Error("expected zones after SetSafeArea")
	}
}

func TestTracker_DynamicModeDegradesToIdentityAndWarnsOnce(t *testing.T) {
	var warnings []string
	tr := NewTracker(func(msg string) { warnings = append(warnings, msg) })

	poly := square(10, 10, 50)
	tr.SetSafeArea([]Polygon{poly}, []byte{1, 2, 3}, 2, 1, false)

	got1 := tr.GetTransformedSafeAreas([]byte{1, 2, 3}, 2, 1)
	if len(got1) != 1 || len(got1[0]) != len(poly) {
		t.Fatalf("expected identity-projected polygon of same length, got %+v", got1)
	}
	for i, p := range got1[0] {
		if p != poly[i] {
			t.Errorf("vertex %d = %+v, want identity-mapped %+v", i, p, poly[i])
		}
	}

	// A second call should not add another warning (one-shot).
	tr.GetTransformedSafeAreas([]byte{1, 2, 3}, 2, 1)

	if len(warnings) != 1 {
		t.Errorf("expected exactly one degraded-homography warning, got %d: %v", len(warnings), warnings)
	}
}

func TestTracker_SetStaticMode(t *testing.T) {
	tr := NewTracker(nil)
	if !tr.StaticMode() {
		t.Error("expected static mode by default")
	}
	tr.SetStaticMode(false)
	if tr.StaticMode() {
		t.Error("expected dynamic mode after SetStaticMode(false)")
	}
}

func TestTracker_SetSafeAreaResetsWarningState(t *testing.T) {
	var warnCount int
	tr := NewTracker(func(string) { warnCount++ })
	tr.SetSafeArea([]Polygon{square(0, 0, 10)}, []byte{1}, 1, 1, false)

	tr.GetTransformedSafeAreas([]byte{1}, 1, 1)
	if warnCount != 1 {
		t.Fatalf("expected 1 warning before reset, got %d", warnCount)
	}

	tr.SetSafeArea([]Polygon{square(0, 0, 10)}, []byte{1}, 1, 1, false)
	tr.GetTransformedSafeAreas([]byte{1}, 1, 1)
	if warnCount != 2 {
		t.Errorf("expected a fresh one-shot warning after SetSafeArea, got total %d", warnCount)
	}
}

func TestMatrix3x3_IdentityApply(t *testing.T) {
	poly := square(5, 5, 20)
	out := identityMatrix.apply(poly)
	for i, p := range out {
		if p != poly[i] {
			t.Errorf("identity.apply vertex %d = %+v, want %+v", i, p, poly[i])
		}
	}
}

func TestDraw_DoesNotPanicOnOutOfBoundsPolygon(t *testing.T) {
	frame := make([]byte, 4*4*3)
	polys := []Polygon{square(-5, -5, 100)}
	Draw(frame, 4, 4, polys, [3]byte{0, 0, 255})
}

func TestPolygonSmoother_ConvergesTowardMeasurement(t *testing.T) {
	s := newPolygonSmoother(0.9)
	poly := Polygon{{X: 0, Y: 0}}
	for i := 0; i < 20; i++ {
		poly = s.Smooth(0, Polygon{{X: 100, Y: 100}})
	}
	if poly[0].X < 90 || poly[0].Y < 90 {
		t.Errorf("expected smoothed vertex to converge near measurement, got %+v", poly[0])
	}
}
