package frame

import (
	"math"
	"sync"

	"github.com/isafeguard/engine/pkg/reason"
)

// dangerDistanceMeters is the proximity threshold for a worker standing
// near a moving vehicle (spec section 4.3 step 2: "within 2 m in world
// coordinates"; DANGER_DIST_METERS in heavy_equipment.py).
const dangerDistanceMeters = 2.0

// vehicleHistoryLen bounds the per-track displacement history used to
// decide whether a vehicle is moving (heavy_equipment.py requires at
// least 10 tracked observations before considering proximity).
const vehicleHistoryLen = 10

// vehicleMovingThresholdMeters is the minimum total displacement, in world
// meters across the retained history, to consider a vehicle "moving"
// rather than parked (heavy_equipment.py's VEHICLE_MOVING_THRESH, applied
// here directly in world units since this module works in meters).
const vehicleMovingThresholdMeters = 0.5

// WorldTransform maps a pixel-space point to ground-plane world-meters
// coordinates. The zero value (nil field) falls back to a fixed
// meters-per-pixel scale, since a real per-site ground-plane calibration
// is outside this module's scope (spec section 4.3 step 2 leaves the
// exact calibration to deployment).
type WorldTransform func(x, y float64) (wx, wy float64)

// HeavyEquipmentStrategy flags workers without helmets (via tracked-id
// voting, since drivers/signalers are seen at long range where single-
// frame helmet detection is unreliable) and workers standing within
// dangerDistanceMeters of a moving vehicle, grounded on
// detection/heavy_equipment.py's detect_heavy_equipment.
type HeavyEquipmentStrategy struct {
	Voter     *HelmetVoter
	Transform WorldTransform

	mu          sync.Mutex
	vehicleHist map[int][]point2
}

type point2 struct{ x, y float64 }

// NewHeavyEquipmentStrategy creates a strategy instance with the default
// helmet-voting parameters (SPEC_FULL.md section 9 Open Question
// resolution: window=10, threshold=6, min_area=1500px²).
func NewHeavyEquipmentStrategy() *HeavyEquipmentStrategy {
	return &HeavyEquipmentStrategy{
		Voter:       NewHelmetVoter(DefaultHelmetVotingWindow, DefaultHelmetVotingThreshold, DefaultMinPersonBoxArea),
		vehicleHist: make(map[int][]point2),
	}
}

func (s *HeavyEquipmentStrategy) toWorld(x, y float64) point2 {
	if s.Transform != nil {
		wx, wy := s.Transform(x, y)
		return point2{wx, wy}
	}
	const metersPerPixel = 0.01
	return point2{x * metersPerPixel, y * metersPerPixel}
}

func (s *HeavyEquipmentStrategy) Evaluate(dets []Detection) Result {
	res := newResult()

	var vehiclePositions []point2
	var workerBoxes []Box
	hats := boxesOfClass(dets, classHardHat)

	s.mu.Lock()
	for _, d := range dets {
		if d.ClassName != classVehicle || d.TrackID < 0 {
			continue
		}
		bx, by := d.Box.BottomCenter()
		w := s.toWorld(bx, by)
		hist := append(s.vehicleHist[d.TrackID], w)
		if len(hist) > vehicleHistoryLen {
			hist = hist[len(hist)-vehicleHistoryLen:]
		}
		s.vehicleHist[d.TrackID] = hist

		res.Annotations = append(res.Annotations, Annotation{Box: d.Box, Label: "vehicle", Color: colorNeutral})

		if len(hist) >= vehicleHistoryLen && displacement(hist) >= vehicleMovingThresholdMeters {
			vehiclePositions = append(vehiclePositions, w)
		}
	}
	s.mu.Unlock()

	for _, d := range dets {
		if d.ClassName != classPerson {
			continue
		}
		box := d.Box
		workerBoxes = append(workerBoxes, box)
		res.PersonBoxes = append(res.PersonBoxes, box)

		if s.Voter.TooDistant(box) {
			res.Annotations = append(res.Annotations, Annotation{Box: box, Label: "worker (too distant)", Color: colorNeutral})
			continue
		}

		hasHelmet := helmetCovers(box, hats)
		violation := s.Voter.Observe(d.TrackID, hasHelmet)

		if violation {
			res.Status = StatusUnsafe
			res.Reasons.Add(reason.MissingHelmet)
			res.Annotations = append(res.Annotations, Annotation{Box: box, Label: "worker without helmet", Color: colorUnsafe})
		} else if hasHelmet {
			res.Annotations = append(res.Annotations, Annotation{Box: box, Label: "worker with helmet", Color: colorSafe})
		} else {
			res.Annotations = append(res.Annotations, Annotation{Box: box, Label: "worker (helmet checking...)", Color: colorUncertain})
		}
	}

	if len(vehiclePositions) > 0 {
		for _, wb := range workerBoxes {
			bx, by := wb.BottomCenter()
			wp := s.toWorld(bx, by)
			for _, vp := range vehiclePositions {
				if distance(wp, vp) <= dangerDistanceMeters {
					res.Status = StatusUnsafe
					res.Reasons.Add(reason.ProximityViolation)
					break
				}
			}
		}
	}

	return res
}

func displacement(hist []point2) float64 {
	if len(hist) < 2 {
		return 0
	}
	first, last := hist[0], hist[len(hist)-1]
	return distance(first, last)
}

func distance(a, b point2) float64 {
	dx, dy := a.x-b.x, a.y-b.y
	return math.Sqrt(dx*dx + dy*dy)
}
