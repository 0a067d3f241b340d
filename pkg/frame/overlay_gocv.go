//go:build cgo
// +build cgo

package frame

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Draw overlays a Strategy's annotations plus the status panel onto a
// packed BGR24 frame buffer (spec section 4.3 step 2's "draws labelled
// boxes" and step 5's "overlay status panel"), mirroring
// object_detection_eng.py's per-class cv2.rectangle/putText calls and
// draw_status_info from frame_processor.py.
func Draw(frameData []byte, width, height int, out Output) error {
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, frameData)
	if err != nil {
		return err
	}
	defer mat.Close()

	for _, a := range out.Annotations {
		c := color.RGBA{R: a.Color[2], G: a.Color[1], B: a.Color[0], A: 255}
		rect := image.Rect(a.Box.X0, a.Box.Y0, a.Box.X1, a.Box.Y1)
		gocv.Rectangle(&mat, rect, c, 2)
		if a.Label != "" {
			gocv.PutText(&mat, a.Label, image.Pt(a.Box.X0, a.Box.Y0-10), gocv.FontHersheySimplex, 0.6, c, 2)
		}
	}

	headline := statusPanelColor(out.Status)
	hc := color.RGBA{R: headline[2], G: headline[1], B: headline[0], A: 255}
	for i, line := range statusPanelLines(out) {
		gocv.PutText(&mat, line, image.Pt(20, 30+i*25), gocv.FontHersheySimplex, 0.7, hc, 2)
	}

	return nil
}
