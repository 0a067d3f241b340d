//go:build cgo
// +build cgo

package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// OpenCVSource implements Source using OpenCV via GoCV, decoding an RTSP
// descriptor through FFMPEG rather than the teacher's V4L2 webcam backend.
//
// Thread-safe: mu protects all fields and capture operations, mirroring the
// original OpenCVCamera.
type OpenCVSource struct {
	width, height int

	mu     sync.Mutex
	cap    *gocv.VideoCapture
	opened bool
}

// NewOpenCVSource creates an RTSP capture source targeting the given
// decoded frame resolution.
func NewOpenCVSource(width, height int) *OpenCVSource {
	return &OpenCVSource{width: width, height: height}
}

// Open connects to the RTSP descriptor.
func (s *OpenCVSource) Open(descriptor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return fmt.Errorf("capture source already opened")
	}

	cap, err := gocv.OpenVideoCapture(descriptor)
	if err != nil {
		return fmt.Errorf("opening rtsp descriptor: %w", err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return fmt.Errorf("rtsp descriptor not reachable")
	}

	if s.width > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(s.width))
	}
	if s.height > 0 {
		cap.Set(gocv.VideoCaptureFrameHeight, float64(s.height))
	}

	s.cap = cap
	s.opened = true
	return nil
}

// Read decodes the next frame, returning it as packed BGR24 bytes.
func (s *OpenCVSource) Read() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return Frame{}, fmt.Errorf("capture source not opened")
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := s.cap.Read(&mat); !ok {
		return Frame{}, fmt.Errorf("invalid data found: failed to decode frame")
	}
	if mat.Empty() {
		return Frame{}, fmt.Errorf("invalid data found: captured frame is empty")
	}

	return Frame{
		Data:   mat.ToBytes(),
		Width:  mat.Cols(),
		Height: mat.Rows(),
	}, nil
}

// Close releases capture resources.
func (s *OpenCVSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil
	}
	s.opened = false
	if s.cap != nil {
		return s.cap.Close()
	}
	return nil
}
