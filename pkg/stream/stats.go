package stream

import (
	"sync"
	"time"
)

// Stats is the in-memory per-stream statistics block from spec section 3:
// a rolling FPS window (default 30 samples), total frames, an unsafe-frame
// count reset per recorder interval, and the last recorded-event time.
// Owned by Engine; updated from the processing loop after each
// frame.Processor.Process call.
type Stats struct {
	mu sync.Mutex

	fpsWindow    []float64
	fpsWindowCap int

	totalFrames   int64
	unsafeFrames  int64
	lastEventTime time.Time
	lastFrameTime time.Time
	healthy       bool
}

// NewStats creates a Stats tracker with the given rolling-FPS window size
// (spec section 6.5's FPS_QUEUE_SIZE, default 30).
func NewStats(windowSize int) *Stats {
	if windowSize <= 0 {
		windowSize = 30
	}
	return &Stats{fpsWindowCap: windowSize, healthy: true}
}

// Snapshot is a point-in-time read of Stats.
type Snapshot struct {
	FPS           float64
	TotalFrames   int64
	UnsafeFrames  int64
	LastEventTime time.Time
	LastFrameTime time.Time
	Healthy       bool
}

// Observe records one processed frame's instantaneous FPS (1 / inter-frame
// interval) and whether it was unsafe, advancing the rolling window.
func (s *Stats) Observe(instantFPS float64, unsafe bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalFrames++
	if unsafe {
		s.unsafeFrames++
	}
	s.lastFrameTime = time.Now()

	s.fpsWindow = append(s.fpsWindow, instantFPS)
	if len(s.fpsWindow) > s.fpsWindowCap {
		s.fpsWindow = s.fpsWindow[len(s.fpsWindow)-s.fpsWindowCap:]
	}
}

// ResetUnsafeCount zeroes the unsafe-frame counter; called when the
// recorder's FrameInterval window closes (spec section 3: "unsafe-frame
// count (reset per interval)").
func (s *Stats) ResetUnsafeCount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsafeFrames = 0
}

// NoteEvent records the time a recorded clip started.
func (s *Stats) NoteEvent(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEventTime = t
}

// SetHealthy records the capture pipeline's latest health check result.
func (s *Stats) SetHealthy(h bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = h
}

// Snapshot returns the current rolling average FPS and counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fps float64
	if len(s.fpsWindow) > 0 {
		var sum float64
		for _, v := range s.fpsWindow {
			sum += v
		}
		fps = sum / float64(len(s.fpsWindow))
	}

	return Snapshot{
		FPS:           fps,
		TotalFrames:   s.totalFrames,
		UnsafeFrames:  s.unsafeFrames,
		LastEventTime: s.lastEventTime,
		LastFrameTime: s.lastFrameTime,
		Healthy:       s.healthy,
	}
}
