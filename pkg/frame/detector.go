package frame

import "github.com/isafeguard/engine/internal/config"

// Detection is a single raw model detection, the atomic unit a Detector
// reports. ClassName is the model's own label space; strategies interpret
// it per spec section 4.3 step 2.
type Detection struct {
	Box        Box
	ClassName  string
	Confidence float64
	TrackID    int // -1 when the detector does not support tracking
}

// Box is a pixel-space bounding box, x0,y0 top-left and x1,y1 bottom-right.
type Box struct {
	X0, Y0, X1, Y1 int
}

// Width returns the box width in pixels.
func (b Box) Width() int { return b.X1 - b.X0 }

// Height returns the box height in pixels.
func (b Box) Height() int { return b.Y1 - b.Y0 }

// Area returns the box area in pixels squared.
func (b Box) Area() int { return b.Width() * b.Height() }

// BottomCenter returns the point used for hazard-zone ray casting (spec
// section 4.3 step 3: "the bottom-center point").
func (b Box) BottomCenter() (float64, float64) {
	return float64(b.X0+b.X1) / 2, float64(b.Y1)
}

// Detector is the sole provider of raw detections (spec section 6.1
// external collaborator); the frame processor never interprets model
// weights itself, matching detection/object_detection_eng.py's detectObj
// dispatch-by-model-name shape but kept abstract here.
type Detector interface {
	// Detect runs inference for model against a packed BGR24 frame and
	// returns raw detections. Detect must not mutate frameData.
	Detect(model config.ModelName, frameData []byte, width, height int) ([]Detection, error)
}

// NullDetector reports no detections for any model, the default collaborator
// cmd/engine wires a stream to when no real model-inference backend is
// configured. Model loading/inference internals are a non-goal of this
// system (spec section 1); this exists only so the processor always has a
// Detector to call, the same role recorder.LogEventStore/LogNotifier play
// for their own external collaborators.
type NullDetector struct{}

// Detect always returns no detections and no error.
func (NullDetector) Detect(model config.ModelName, frameData []byte, width, height int) ([]Detection, error) {
	return nil, nil
}
