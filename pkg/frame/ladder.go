package frame

import "github.com/isafeguard/engine/pkg/reason"

// LadderStrategy flags ladders used without outriggers and workers without
// helmets while on a ladder, grounded on
// object_detection_eng.py's detect_ladder.
type LadderStrategy struct{}

func (LadderStrategy) Evaluate(dets []Detection) Result {
	res := newResult()

	laddersOK := boxesOfClass(dets, classLadder)
	laddersBad := boxesOfClass(dets, classLadderNoOutrig)
	persons := boxesOfClass(dets, classPerson)
	hats := boxesOfClass(dets, classHardHat)

	for _, l := range laddersOK {
		res.Annotations = append(res.Annotations, Annotation{Box: l, Label: "ladder with outriggers", Color: colorSafe})
	}
	for _, l := range laddersBad {
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.LadderWithoutOutrigger)
		res.Annotations = append(res.Annotations, Annotation{Box: l, Label: "ladder without outriggers", Color: colorUnsafe})
	}

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

	return res
}
