package frame

import (
	"fmt"
	"sync"

	"github.com/isafeguard/engine/internal/config"
	"github.com/isafeguard/engine/pkg/hazard"
	"github.com/isafeguard/engine/pkg/reason"
)

// PTZHandoff is the C6 collaborator; Track must not block (spec section
// 4.3 step 4: "hand them to C6 (non-blocking enqueue)").
type PTZHandoff interface {
	Track(frameWidth, frameHeight int, personBoxes []Box)
}

// AlertPublisher emits the transient alert-{stream_id} event (spec section
// 4.3 step 3 / section 6.2). Kept abstract since event delivery transport
// is owned by pkg/events, not this package.
type AlertPublisher interface {
	PublishIntrusion(streamID string)
}

// Output is what Process hands back to the stream engine for recording,
// overlay, and statistics bookkeeping.
type Output struct {
	Status      Status
	Reasons     []reason.Token
	PersonBoxes []Box
	Annotations []Annotation
	FPS         float64
	WorkerCount int
}

// Stats is the rolling frame-processing statistics Process maintains
// (spec section 4.3 step 6).
type Stats struct {
	FramesProcessed int64
	LastStatus      Status
	LastWorkerCount int
}

// Processor implements the per-frame pipeline (spec section 4.3): one
// Processor is created per active stream so its Strategy's tracked-id
// voting state and stats are never shared across streams, mirroring the
// teacher's per-stream Tracker instances.
type Processor struct {
	streamID string
	model    config.ModelName
	detector Detector
	strategy Strategy

	hazardTracker *hazard.Tracker
	ptz           PTZHandoff
	alerts        AlertPublisher

	mu    sync.Mutex
	stats Stats
}

// NewProcessor selects the Strategy for model and constructs a Processor.
// hazardTracker, ptz, and alerts may be nil to disable the corresponding
// step.
func NewProcessor(streamID string, model config.ModelName, detector Detector, hazardTracker *hazard.Tracker, ptz PTZHandoff, alerts AlertPublisher) (*Processor, error) {
	strategy, err := strategyFor(model)
	if err != nil {
		return nil, err
	}
	return &Processor{
		streamID:      streamID,
		model:         model,
		detector:      detector,
		strategy:      strategy,
		hazardTracker: hazardTracker,
		ptz:           ptz,
		alerts:        alerts,
	}, nil
}

func strategyFor(model config.ModelName) (Strategy, error) {
	switch model {
	case config.ModelPPE:
		return PPEStrategy{}, nil
	case config.ModelLadder:
		return LadderStrategy{}, nil
	case config.ModelScaffolding:
		return ScaffoldingStrategy{}, nil
	case config.ModelMobileScaffolding:
		return MobileScaffoldingStrategy{}, nil
	case config.ModelCuttingWelding:
		return CuttingWeldingStrategy{}, nil
	case config.ModelFire:
		return FireStrategy{}, nil
	case config.ModelHeavyEquipment:
		return NewHeavyEquipmentStrategy(), nil
	default:
		return nil, fmt.Errorf("frame: no strategy registered for model %q", model)
	}
}

// Process runs the six-step pipeline from spec section 4.3 against one
// decoded frame:
//  1. Inference via the bound Detector.
//  2. Strategy evaluation (model-specific rules + annotations).
//  3. Hazard-zone intrusion check, if intrusionEnabled and zones exist.
//  4. PTZ hand-off, if ptzEnabled.
//  5. (Overlay drawing is a separate step; see Draw.)
//  6. Statistics update.
func (p *Processor) Process(frameData []byte, width, height int, intrusionEnabled, ptzEnabled bool, fps float64) (Output, error) {
	dets, err := p.detector.Detect(p.model, frameData, width, height)
	if err != nil {
		return Output{}, fmt.Errorf("frame: detect: %w", err)
	}

	res := p.strategy.Evaluate(dets)

	if intrusionEnabled && p.hazardTracker != nil && p.hazardTracker.HasZones() {
		zones := p.hazardTracker.GetTransformedSafeAreas(frameData, width, height)
		if p.anyIntrusion(zones, res.PersonBoxes) {
			res.Status = StatusUnsafe
			res.Reasons.Add(reason.Intrusion)
			if p.alerts != nil {
				p.alerts.PublishIntrusion(p.streamID)
			}
		}
	}

	if ptzEnabled && p.ptz != nil && len(res.PersonBoxes) > 0 {
		p.ptz.Track(width, height, res.PersonBoxes)
	}

	p.mu.Lock()
	p.stats.FramesProcessed++
	p.stats.LastStatus = res.Status
	p.stats.LastWorkerCount = len(res.PersonBoxes)
	p.mu.Unlock()

	return Output{
		Status:      res.Status,
		Reasons:     res.Reasons.Tokens(),
		PersonBoxes: res.PersonBoxes,
		Annotations: res.Annotations,
		FPS:         fps,
		WorkerCount: len(res.PersonBoxes),
	}, nil
}

// Stats returns a snapshot of the rolling statistics.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// anyIntrusion tests each box's bottom-center point against every
// transformed zone polygon via ray casting (spec section 4.3 step 3).
func (p *Processor) anyIntrusion(zones []hazard.Polygon, boxes []Box) bool {
	for _, b := range boxes {
		x, y := b.BottomCenter()
		for _, poly := range zones {
			if pointInPolygon(x, y, poly) {
				return true
			}
		}
	}
	return false
}

// pointInPolygon implements the standard even-odd ray-casting test.
func pointInPolygon(x, y float64, poly hazard.Polygon) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := poly[i], poly[j]
		if (pi.Y > y) != (pj.Y > y) {
			xIntersect := (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if x < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

// GCTracks clears all tracked-id voting state. stream.Engine.Stop calls this
// (spec section 4.3.1: "garbage-collected on stream stop").
func (p *Processor) GCTracks() {
	if hs, ok := p.strategy.(*HeavyEquipmentStrategy); ok {
		hs.Voter.Reset()
	}
}
