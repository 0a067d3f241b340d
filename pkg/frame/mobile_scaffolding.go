package frame

import "github.com/isafeguard/engine/pkg/reason"

// maxWorkersOnScaffold is the occupancy limit above which a mobile
// scaffolding platform is considered overloaded (object_detection_eng.py's
// detect_mobile_scaffolding: "total_no_person_on_scaffolding > 2").
const maxWorkersOnScaffold = 2

// MobileScaffoldingStrategy flags missing guardrails, missing outriggers,
// missing helmets, and platform overcrowding, grounded on
// object_detection_eng.py's detect_mobile_scaffolding.
type MobileScaffoldingStrategy struct{}

func (MobileScaffoldingStrategy) Evaluate(dets []Detection) Result {
	res := newResult()

	guardrailMissing := boxesOfClass(dets, classScaffoldNoGuard)
	outriggerOK := boxesOfClass(dets, classScaffoldOutrigOK)
	outriggerMissing := boxesOfClass(dets, classScaffoldNoOutrig)
	helmetOK := boxesOfClass(dets, classHardHat)
	helmetMissing := boxesOfClass(dets, classPerson)

	for _, b := range guardrailMissing {
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.ScaffoldMissingGuardrail)
		res.Annotations = append(res.Annotations, Annotation{Box: b, Label: "missing guardrail", Color: colorUnsafe})
	}
	for _, b := range outriggerMissing {
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.ScaffoldNoOutrigger)
		res.Annotations = append(res.Annotations, Annotation{Box: b, Label: "no outrigger", Color: colorUnsafe})
	}
	for _, b := range outriggerOK {
		res.Annotations = append(res.Annotations, Annotation{Box: b, Label: "outrigger", Color: colorSafe})
	}

	// helmetMissing here models "classPerson" detections the source
	// encodes as a dedicated "worker_without_helmet" class rather than a
	// bbox-overlap test; helmetOK boxes are workers already wearing one.
	if len(helmetMissing) > 0 {
		res.Status = StatusUnsafe
		res.Reasons.Add(reason.MissingHelmet)
		for _, b := range helmetMissing {
			res.PersonBoxes = append(res.PersonBoxes, b)
			res.Annotations = append(res.Annotations, Annotation{Box: b, Label: "worker without helmet", Color: colorUnsafe})
		}
	}
	for _, b := range helmetOK {
		res.PersonBoxes = append(res.PersonBoxes, b)
		res.Annotations = append(res.Annotations, Annotation{Box: b, Label: "worker with helmet", Color: colorSafe})
	}

	onPlatform := 0
	for _, scaffBox := range outriggerOK {
		for _, worker := range helmetOK {
			cx := worker.X0
			if scaffBox.X0 < cx && cx < scaffBox.X1 {
				centerY := (scaffBox.Y0 + scaffBox.Y1) / 2
				if centerY >= worker.Y1-20 {
					onPlatform++
				}
			}
		}
	}
	if onPlatform > maxWorkersOnScaffold {
		res.Status = StatusUnsafe
	}

	return res
}
