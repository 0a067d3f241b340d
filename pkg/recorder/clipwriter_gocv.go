//go:build cgo
// +build cgo

package recorder

import (
	"fmt"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"
)

// gocvClipWriter wraps gocv.VideoWriter, generalizing the teacher's
// gocv-backed camera/recording resource lifecycle (open-on-construct,
// close-releases) to an output clip instead of an input capture.
type gocvClipWriter struct {
	writer *gocv.VideoWriter
	width  int
	height int
}

// NewGoCVClipWriterFactory returns a ClipWriterFactory that writes MP4
// clips named "<streamID>_<model>_<timestamp>.mp4" under outDir, grounded
// on original_source's create_video_writer (recorder.py /
// event_processor.py call through it with stream id, model name, and a
// "%Y%m%d%H%M%S" timestamp).
func NewGoCVClipWriterFactory(outDir, model string) ClipWriterFactory {
	return func(streamID string, width, height int, fps float64, startedAt time.Time) (ClipWriter, string, error) {
		name := fmt.Sprintf("%s_%s_%s.mp4", streamID, model, startedAt.Format("20060102150405"))
		path := filepath.Join(outDir, name)

		w, err := gocv.VideoWriterFile(path, "mp4v", fps, width, height, true)
		if err != nil {
			return nil, "", fmt.Errorf("recorder: opening clip writer: %w", err)
		}
		return &gocvClipWriter{writer: w, width: width, height: height}, path, nil
	}
}

func (w *gocvClipWriter) WriteFrame(frameData []byte) error {
	mat, err := gocv.NewMatFromBytes(w.height, w.width, gocv.MatTypeCV8UC3, frameData)
	if err != nil {
		return fmt.Errorf("recorder: decoding frame for clip write: %w", err)
	}
	defer mat.Close()

	if err := w.writer.Write(mat); err != nil {
		return fmt.Errorf("recorder: broken pipe writing clip frame: %w", err)
	}
	return nil
}

func (w *gocvClipWriter) Close() error {
	return w.writer.Close()
}
