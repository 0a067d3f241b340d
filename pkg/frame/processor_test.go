package frame

import (
	"testing"

	"github.com/isafeguard/engine/internal/config"
	"github.com/isafeguard/engine/pkg/hazard"
	"github.com/isafeguard/engine/pkg/reason"
)

type fakeDetector struct {
	dets []Detection
	err  error
}

func (f *fakeDetector) Detect(model config.ModelName, frameData []byte, width, height int) ([]Detection, error) {
	return f.dets, f.err
}

type fakePTZ struct {
	called bool
	boxes  []Box
}

func (f *fakePTZ) Track(w, h int, boxes []Box) {
	f.called = true
	f.boxes = boxes
}

type fakeAlerts struct {
	streamIDs []string
}

func (f *fakeAlerts) PublishIntrusion(streamID string) {
	f.streamIDs = append(f.streamIDs, streamID)
}

func personBox(x0, y0, x1, y1 int) Detection {
	return Detection{Box: Box{X0: x0, Y0: y0, X1: x1, Y1: y1}, ClassName: classPerson, TrackID: -1}
}

func hatBox(x0, y0, x1, y1 int) Detection {
	return Detection{Box: Box{X0: x0, Y0: y0, X1: x1, Y1: y1}, ClassName: classHardHat, TrackID: -1}
}

func TestPPEStrategy_FlagsMissingHelmet(t *testing.T) {
	dets := []Detection{personBox(100, 100, 150, 250)}
	res := PPEStrategy{}.Evaluate(dets)

	if res.Status != StatusUnsafe {
		t.Errorf("expected Unsafe, got %v", res.Status)
	}
	if !res.Reasons.Has(reason.MissingHelmet) {
		t.Error("expected missing_helmet reason")
	}
}

func TestPPEStrategy_SafeWithHelmet(t *testing.T) {
	dets := []Detection{
		personBox(100, 100, 150, 250),
		hatBox(110, 90, 140, 110),
	}
	res := PPEStrategy{}.Evaluate(dets)

	if res.Status != StatusSafe {
		t.Errorf("expected Safe, got %v", res.Status)
	}
	if res.Reasons.Len() != 0 {
		t.Errorf("expected no reasons, got %v", res.Reasons.Tokens())
	}
}

func TestFireStrategy_FlagsFireAndSmoke(t *testing.T) {
	dets := []Detection{
		{Box: Box{0, 0, 10, 10}, ClassName: classFire},
		{Box: Box{20, 20, 30, 30}, ClassName: classSmoke},
	}
	res := FireStrategy{}.Evaluate(dets)

	if res.Status != StatusUnsafe {
		t.Errorf("expected Unsafe, got %v", res.Status)
	}
	if !res.Reasons.Has(reason.FireDetected) || !res.Reasons.Has(reason.SmokeDetected) {
		t.Errorf("expected both fire and smoke reasons, got %v", res.Reasons.Tokens())
	}
}

func TestScaffoldingStrategy_VerticalOverlap(t *testing.T) {
	dets := []Detection{
		{Box: Box{0, 0, 50, 50}, ClassName: classPerson},
		{Box: Box{10, 60, 60, 110}, ClassName: classPerson},
	}
	res := ScaffoldingStrategy{}.Evaluate(dets)

	if !res.Reasons.Has(reason.WorkersVerticalOverlap) {
		t.Errorf("expected workers_vertical_overlap, got %v", res.Reasons.Tokens())
	}
}

func TestHelmetVoter_SuppressesSingleFrameMisdetection(t *testing.T) {
	v := NewHelmetVoter(10, 6, 1500)
	for i := 0; i < 3; i++ {
		if v.Observe(1, false) {
			t.Fatalf("expected no violation before threshold reached, iteration %d", i)
		}
	}
	for i := 0; i < 3; i++ {
		v.Observe(1, false)
	}
	if !v.Observe(1, false) {
		t.Error("expected violation once 6+ of last 10 observations are 'no helmet'")
	}
}

func TestHelmetVoter_TooDistantExemptsSmallBoxes(t *testing.T) {
	v := NewHelmetVoter(10, 6, 1500)
	small := Box{0, 0, 10, 10} // area 100 < 1500
	if !v.TooDistant(small) {
		t.Error("expected small box to be flagged too distant")
	}
}

func TestHeavyEquipmentStrategy_ProximityToMovingVehicle(t *testing.T) {
	s := NewHeavyEquipmentStrategy()

	// Feed vehicle history so it crosses the "moving" displacement
	// threshold across vehicleHistoryLen frames, then check proximity.
	var dets []Detection
	for i := 0; i < vehicleHistoryLen; i++ {
		dets = []Detection{
			{Box: Box{X0: i * 50, Y0: 100, X1: i*50 + 40, Y1: 140}, ClassName: classVehicle, TrackID: 7},
		}
		s.Evaluate(dets)
	}

	lastX := (vehicleHistoryLen - 1) * 50
	dets = []Detection{
		{Box: Box{X0: lastX, Y0: 100, X1: lastX + 40, Y1: 140}, ClassName: classVehicle, TrackID: 7},
		{Box: Box{X0: lastX, Y0: 100, X1: lastX + 30, Y1: 200}, ClassName: classPerson, TrackID: 1},
	}
	res := s.Evaluate(dets)

	if !res.Reasons.Has(reason.ProximityViolation) {
		t.Errorf("expected proximity_violation for worker beside a moving vehicle, got %v", res.Reasons.Tokens())
	}
}

func TestPointInPolygon(t *testing.T) {
	square := hazard.Polygon{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100},
	}
	if !pointInPolygon(50, 50, square) {
		t.Error("expected center point to be inside square")
	}
	if pointInPolygon(200, 200, square) {
		t.Error("expected far point to be outside square")
	}
}

func TestProcessor_Process_IntrusionPublishesAlert(t *testing.T) {
	tracker := hazard.NewTracker(nil)
	tracker.SetSafeArea([]hazard.Polygon{{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 200, Y: 200}, {X: 0, Y: 200}}}, nil, 0, 0, true)

	det := &fakeDetector{dets: []Detection{personBox(50, 50, 90, 150)}}
	ptz := &fakePTZ{}
	alerts := &fakeAlerts{}

	p, err := NewProcessor("stream-1", config.ModelPPE, det, tracker, ptz, alerts)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}

	out, err := p.Process(nil, 640, 480, true, true, 30.0)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if out.Status != StatusUnsafe {
		t.Errorf("expected Unsafe from intrusion, got %v", out.Status)
	}
	found := false
	for _, r := range out.Reasons {
		if r == reason.Intrusion {
			found = true
		}
	}
	if !found {
		t.Errorf("expected intrusion reason, got %v", out.Reasons)
	}
	if len(alerts.streamIDs) != 1 || alerts.streamIDs[0] != "stream-1" {
		t.Errorf("expected one intrusion alert for stream-1, got %v", alerts.streamIDs)
	}
	if !ptz.called {
		t.Error("expected PTZ hand-off to be called when person boxes are present")
	}
}

func TestProcessor_UnknownModel(t *testing.T) {
	_, err := NewProcessor("s", config.ModelName("bogus"), &fakeDetector{}, nil, nil, nil)
	if err == nil {
		t.Error("expected error for unregistered model")
	}
}
