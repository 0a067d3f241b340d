package recorder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/isafeguard/engine/pkg/reason"
)

type fakeClipWriter struct {
	mu     sync.Mutex
	frames int
	closed bool
	failOn int // fail WriteFrame once this many frames have been written
}

func (w *fakeClipWriter) WriteFrame(frameData []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames++
	if w.failOn > 0 && w.frames >= w.failOn {
		return errors.New("broken pipe")
	}
	return nil
}

func (w *fakeClipWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func newFakeFactory(writers *[]*fakeClipWriter, failOn int) ClipWriterFactory {
	return func(streamID string, width, height int, fps float64, startedAt time.Time) (ClipWriter, string, error) {
		w := &fakeClipWriter{failOn: failOn}
		*writers = append(*writers, w)
		return w, "clip.mp4", nil
	}
}

type fakeStore struct {
	mu     sync.Mutex
	events []Event
}

func (s *fakeStore) Save(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type fakeNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *fakeNotifier) Notify(ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return nil
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRecorder_StartsOnSustainedUnsafeRatio(t *testing.T) {
	var writers []*fakeClipWriter
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	cfg := Config{FrameInterval: 10, UnsafeRatio: 0.7, Cooldown: time.Minute, RecordDuration: time.Hour}
	r := New("s1", "ppe", cfg, newFakeFactory(&writers, 0), store, notifier, nil)

	for i := 0; i < 10; i++ {
		r.Observe(nil, 640, 480, true, []reason.Token{reason.MissingHelmet}, 30.0)
	}

	if !r.IsRecording() {
		t.Fatal("expected recording to start once unsafe ratio reaches threshold")
	}
	waitUntil(t, func() bool { return store.count() == 1 })
}

func TestRecorder_DoesNotStartBelowThreshold(t *testing.T) {
	var writers []*fakeClipWriter
	cfg := Config{FrameInterval: 10, UnsafeRatio: 0.7, Cooldown: time.Minute, RecordDuration: time.Hour}
	r := New("s1", "ppe", cfg, newFakeFactory(&writers, 0), nil, nil, nil)

	for i := 0; i < 10; i++ {
		r.Observe(nil, 640, 480, i < 5, nil, 30.0)
	}

	if r.IsRecording() {
		t.Error("expected no recording below unsafe ratio threshold")
	}
}

func TestRecorder_CooldownBlocksImmediateRestart(t *testing.T) {
	var writers []*fakeClipWriter
	cfg := Config{FrameInterval: 10, UnsafeRatio: 0.7, Cooldown: time.Hour, RecordDuration: 0}
	r := New("s1", "ppe", cfg, newFakeFactory(&writers, 0), nil, nil, nil)

	for i := 0; i < 10; i++ {
		r.Observe(nil, 640, 480, true, nil, 30.0)
	}
	waitUntil(t, func() bool { return !r.IsRecording() })

	for i := 0; i < 10; i++ {
		r.Observe(nil, 640, 480, true, nil, 30.0)
	}

	if r.IsRecording() {
		t.Error("expected cooldown to block a second recording")
	}
	if len(writers) != 1 {
		t.Errorf("expected exactly one clip writer to be opened, got %d", len(writers))
	}
}

func TestRecorder_StopsAfterRecordDuration(t *testing.T) {
	var writers []*fakeClipWriter
	cfg := Config{FrameInterval: 10, UnsafeRatio: 0.7, Cooldown: time.Minute, RecordDuration: 0}
	r := New("s1", "ppe", cfg, newFakeFactory(&writers, 0), nil, nil, nil)

	for i := 0; i < 10; i++ {
		r.Observe(nil, 640, 480, true, nil, 30.0)
	}
	// RecordDuration is zero, so the Observe call that starts the recording
	// also stops it; one more Observe call must leave it stopped.
	r.Observe(nil, 640, 480, false, nil, 30.0)

	if r.IsRecording() {
		t.Error("expected recording to stop once RecordDuration elapses")
	}
	if len(writers) != 1 || !writers[0].closed {
		t.Error("expected the clip writer to be closed")
	}
}

func TestRecorder_OneClipAtATime(t *testing.T) {
	var writers []*fakeClipWriter
	cfg := Config{FrameInterval: 10, UnsafeRatio: 0.7, Cooldown: time.Minute, RecordDuration: time.Hour}
	r := New("s1", "ppe", cfg, newFakeFactory(&writers, 0), nil, nil, nil)

	for i := 0; i < 30; i++ {
		r.Observe(nil, 640, 480, true, nil, 30.0)
	}

	if len(writers) != 1 {
		t.Errorf("expected only one clip writer opened while already recording, got %d", len(writers))
	}
}

func TestRecorder_BrokenPipeStopsImmediately(t *testing.T) {
	var writers []*fakeClipWriter
	cfg := Config{FrameInterval: 10, UnsafeRatio: 0.7, Cooldown: time.Minute, RecordDuration: time.Hour}
	r := New("s1", "ppe", cfg, newFakeFactory(&writers, 2), nil, nil, nil)

	for i := 0; i < 10; i++ {
		r.Observe(nil, 640, 480, true, nil, 30.0)
	}
	if !r.IsRecording() {
		t.Fatal("expected recording to have started")
	}

	// The next couple of frames get written to the now-recording clip;
	// the fake writer fails once it has seen 2 frames.
	r.Observe(nil, 640, 480, false, nil, 30.0)
	r.Observe(nil, 640, 480, false, nil, 30.0)

	if r.IsRecording() {
		t.Error("expected a broken clip pipe to stop recording immediately")
	}
}

func TestRecorder_DeduplicatesReasons(t *testing.T) {
	var writers []*fakeClipWriter
	store := &fakeStore{}
	cfg := Config{FrameInterval: 5, UnsafeRatio: 0.5, Cooldown: time.Minute, RecordDuration: time.Hour}
	r := New("s1", "ppe", cfg, newFakeFactory(&writers, 0), store, nil, nil)

	reasons := []reason.Token{reason.MissingHelmet, reason.MissingHelmet, reason.Intrusion}
	for i := 0; i < 5; i++ {
		r.Observe(nil, 640, 480, true, reasons, 30.0)
	}

	waitUntil(t, func() bool { return store.count() == 1 })
	got := store.events[0].Reasons
	if len(got) != 2 {
		t.Errorf("expected deduplicated reasons, got %v", got)
	}
}

func TestRecorder_NilStoreAndNotifierDoNotPanic(t *testing.T) {
	var writers []*fakeClipWriter
	cfg := Config{FrameInterval: 5, UnsafeRatio: 0.5, Cooldown: time.Minute, RecordDuration: time.Hour}
	r := New("s1", "ppe", cfg, newFakeFactory(&writers, 0), nil, nil, nil)

	for i := 0; i < 5; i++ {
		r.Observe(nil, 640, 480, true, nil, 30.0)
	}
	waitUntil(t, func() bool { return r.IsRecording() })
}

func TestLogEventStoreAndNotifier(t *testing.T) {
	var lines []string
	store := NewLogEventStore(func(s string) { lines = append(lines, s) })
	notifier := NewLogNotifier(func(s string) { lines = append(lines, s) })

	ev := Event{ID: "e1", StreamID: "s1", ModelName: "ppe", Reasons: []reason.Token{reason.MissingHelmet}}
	if err := store.Save(ev); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := notifier.Notify(ev); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(lines) != 2 {
		t.Errorf("expected two log lines, got %d", len(lines))
	}
}
