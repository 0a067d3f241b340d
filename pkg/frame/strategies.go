// Package frame implements the frame processor (spec component C3):
// per-frame inference dispatch, per-model rule evaluation, hazard-zone
// intrusion checks, PTZ hand-off, and overlay/statistics bookkeeping.
package frame

import (
	"github.com/isafeguard/engine/pkg/reason"
)

// Status is the overall per-frame safety verdict (spec section 4.3).
type Status int

const (
	StatusSafe Status = iota
	StatusUnsafe
)

func (s Status) String() string {
	if s == StatusUnsafe {
		return "Unsafe"
	}
	return "Safe"
}

// Annotation is one labelled box a strategy wants drawn on the frame,
// deferred from the rule evaluation itself so strategies stay testable
// without a cgo drawing backend (spec section 4.3 step 2's "draws labelled
// boxes", grounded on object_detection_eng.py's per-class
// cv2.rectangle/putText calls, generalized into data the overlay step
// consumes).
type Annotation struct {
	Box   Box
	Label string
	Color [3]byte
}

// Result is one strategy's evaluation of a single frame's detections.
type Result struct {
	Status      Status
	Reasons     *reason.Set
	PersonBoxes []Box
	Annotations []Annotation
}

func newResult() Result {
	return Result{Status: StatusSafe, Reasons: reason.NewSet()}
}

// Strategy evaluates one model's detections for a single frame and
// produces the safety verdict, reasons, person boxes (for intrusion
// checking and PTZ hand-off), and overlay annotations (spec section 4.3
// step 2). One Strategy instance is created per active stream so tracked-
// id voting state (helmet compliance) is never shared across streams.
type Strategy interface {
	Evaluate(dets []Detection) Result
}

// Color palette matching the source material's conventions (BGR order,
// since frames are packed BGR24): green for compliant, red for violation.
var (
	colorSafe      = [3]byte{0, 180, 0}
	colorUnsafe    = [3]byte{0, 0, 255}
	colorNeutral   = [3]byte{255, 255, 0}
	colorUncertain = [3]byte{0, 165, 255}
)

// Normalized class names a Detector is expected to emit. These are the
// model-agnostic vocabulary strategies match against; the detector owns
// the mapping from its own weights' class indices to these names (spec
// section 6.1: "processor never interprets model weights").
const (
	classPerson           = "person"
	classHardHat          = "hard_hat"
	classHook             = "hook"
	classLadder           = "ladder_with_outrigger"
	classLadderNoOutrig   = "ladder_without_outrigger"
	classScaffoldGuardOK  = "scaffold_guardrail"
	classScaffoldNoGuard  = "scaffold_missing_guardrail"
	classScaffoldOutrigOK = "scaffold_outrigger"
	classScaffoldNoOutrig = "scaffold_no_outrigger"
	classSaw              = "saw"
	classFireExtinguisher = "fire_extinguisher"
	classFirePreventNet   = "fire_prevention_net"
	classFire             = "fire"
	classSmoke            = "smoke"
	classVehicle          = "vehicle"
)

// boxesOfClass filters detections down to boxes matching className.
func boxesOfClass(dets []Detection, className string) []Box {
	var out []Box
	for _, d := range dets {
		if d.ClassName == className {
			out = append(out, d.Box)
		}
	}
	return out
}

// helmetCovers reports whether any hat box sits above and within person's
// horizontal span, the bbox-overlap heuristic shared by every PPE-adjacent
// strategy (grounded on object_detection_eng.py's repeated
// `perBox[0] <= (hatBox[0]+hatBox[2])/2 < perBox[2] and hatBox[1] >=
// perBox[1]-20` test across detect_ppe/detect_scaffolding/
// detect_cutting_welding).
func helmetCovers(person Box, hats []Box) bool {
	for _, h := range hats {
		cx := float64(h.X0+h.X1) / 2
		if float64(person.X0) <= cx && cx < float64(person.X1) && h.Y0 >= person.Y0-20 {
			return true
		}
	}
	return false
}

// verticalOverlap reports whether any two boxes in boxes occupy the same
// horizontal lane while stacked at different heights (grounded on
// object_detection_eng.py's detect_scaffolding vertical_person check).
func verticalOverlap(boxes []Box) bool {
	for i := range boxes {
		for j := range boxes {
			if i == j {
				continue
			}
			a, b := boxes[i], boxes[j]
			stacked := a.Y0 > b.Y1 || b.Y0 > a.Y1
			sameLane := a.X0 < b.X1 && a.X1 > b.X0
			if stacked && sameLane {
				return true
			}
		}
	}
	return false
}
