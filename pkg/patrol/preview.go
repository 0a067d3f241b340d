package patrol

import "time"

// PreviewStep is one entry of a patrol preview (spec section 6.2's
// patrol-preview-* outbound events): the waypoint and how long the camera
// would dwell there before advancing.
type PreviewStep struct {
	Waypoint Waypoint
	Dwell    time.Duration
}

// Preview materializes the full dwell-annotated sequence a patrol run
// would visit, without touching the camera — used to drive the
// patrol-preview-step/patrol-preview-complete events.
func Preview(cfg Config) []PreviewStep {
	steps := make([]PreviewStep, len(cfg.Waypoints))
	for i, wp := range cfg.Waypoints {
		steps[i] = PreviewStep{Waypoint: wp, Dwell: cfg.DwellTime}
	}
	return steps
}
