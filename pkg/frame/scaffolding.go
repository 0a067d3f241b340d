package frame

import "github.com/isafeguard/engine/pkg/reason"

// ScaffoldingStrategy flags missing tie-off hooks, missing helmets, and
// workers stacked in the same vertical lane (a fall-onto-coworker hazard),
// grounded on object_detection_eng.py's detect_scaffolding.
type ScaffoldingStrategy struct{}

func (ScaffoldingStrategy) Evaluate(dets []Detection) Result {
	res := newResult()

	persons := boxesOfClass(dets, classPerson)
	hats := boxesOfClass(dets, classHardHat)
	hooks := boxesOfClass(dets, classHook)

	missingHooks := len(persons) - len(hooks)
	missingHelmets := 0

	for _, p := range persons {
		res.PersonBoxes = append(res.PersonBoxes, p)
		if helmetCovers(p, hats) {
			res.Annotations = append(res.Annotations, Annotation{Box: p, Label: "worker with helmet", Color: colorSafe})
			continue
		}
		missingHelmets++
		res.Annotations = append(res.Annotations, Annotation{Box: p, Label: "worker without helmet", Color: colorUnsafe})
	}

	if missingHooks > 0 {
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.ScaffoldNoOutrigger)
	}
	if missingHelmets > 0 {
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.MissingHelmet)
	}
	if verticalOverlap(persons) {
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.WorkersVerticalOverlap)
	}

	return res
}
