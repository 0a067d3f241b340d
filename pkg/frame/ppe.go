package frame

import "github.com/isafeguard/engine/pkg/reason"

// PPEStrategy flags any person detected without a hard hat, grounded on
// object_detection_eng.py's detect_ppe.
type PPEStrategy struct{}

func (PPEStrategy) Evaluate(dets []Detection) Result {
	res := newResult()

	persons := boxesOfClass(dets, classPerson)
	hats := boxesOfClass(dets, classHardHat)

	for _, p := range persons {
		res.PersonBoxes = append(res.PersonBoxes, p)
		if helmetCovers(p, hats) {
			res.Annotations = append(res.Annotations, Annotation{Box: p, Label: "worker with helmet", Color: colorSafe})
			continue
		}
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.MissingHelmet)
		res.Annotations = append(res.Annotations, Annotation{Box: p, Label: "worker without helmet", Color: colorUnsafe})
	}

	for _, h := range hats {
		res.Annotations = append(res.Annotations, Annotation{Box: h, Label: "hard hat", Color: colorSafe})
	}

	return res
}
