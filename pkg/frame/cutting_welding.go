package frame

import "github.com/isafeguard/engine/pkg/reason"

// CuttingWeldingStrategy flags hot-work performed without a fire
// extinguisher on hand, without a fire-prevention net when cutting, and
// workers without helmets, grounded on
// object_detection_eng.py's detect_cutting_welding.
type CuttingWeldingStrategy struct{}

func (CuttingWeldingStrategy) Evaluate(dets []Detection) Result {
	res := newResult()

	persons := boxesOfClass(dets, classPerson)
	hats := boxesOfClass(dets, classHardHat)
	sawDetected := len(boxesOfClass(dets, classSaw)) > 0
	extinguisherPresent := len(boxesOfClass(dets, classFireExtinguisher)) > 0
	preventionNetPresent := len(boxesOfClass(dets, classFirePreventNet)) > 0

	for _, p := range persons {
		res.PersonBoxes = append(res.PersonBoxes, p)
		if helmetCovers(p, hats) {
			res.Annotations = append(res.Annotations, Annotation{Box: p, Label: "worker with hard hat", Color: colorSafe})
			continue
		}
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.MissingHelmet)
		res.Annotations = append(res.Annotations, Annotation{Box: p, Label: "worker without hard hat", Color: colorUnsafe})
	}

	if !extinguisherPresent {
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.MissingFireExtinguisher)
	}
	if sawDetected && !preventionNetPresent {
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.MissingFirePreventionNet)
	}

	return res
}
