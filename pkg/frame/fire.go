package frame

import "github.com/isafeguard/engine/pkg/reason"

// FireStrategy flags any detected fire or smoke (spec section 4.3 step 2's
// "Fire — fire/smoke presence"), the simplest rule set in the pack since a
// single detection of either class is itself the violation.
type FireStrategy struct{}

func (FireStrategy) Evaluate(dets []Detection) Result {
	res := newResult()

	for _, b := range boxesOfClass(dets, classFire) {
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.FireDetected)
		res.Annotations = append(res.Annotations, Annotation{Box: b, Label: "fire", Color: colorUnsafe})
	}
	for _, b := range boxesOfClass(dets, classSmoke) {
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.SmokeDetected)
		res.Annotations = append(res.Annotations, Annotation{Box: b, Label: "smoke", Color: colorUnsafe})
	}

	return res
}
