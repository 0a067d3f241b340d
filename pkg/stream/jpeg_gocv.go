//go:build cgo
// +build cgo

package stream

import (
	"fmt"

	"gocv.io/x/gocv"
)

// encodeJPEG packs a BGR24 frame buffer into a JPEG byte slice, backing
// GetCurrentFrame (spec section 9's resolution of the get_current_frame
// Open Question: an in-memory handle instead of a file write).
func encodeJPEG(frameData []byte, width, height int) ([]byte, error) {
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, frameData)
	if err != nil {
		return nil, fmt.Errorf("stream: decoding frame for jpeg encode: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("stream: jpeg encode: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
