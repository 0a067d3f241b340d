// Package recorder implements the event recorder (spec component C4):
// deciding when a persistent unsafe condition warrants a recorded clip,
// writing exactly one clip at a time per stream, and dispatching the
// persisted event + notifications asynchronously, generalizing the
// teacher's mutex-guarded lifecycle idiom around
// original_source/src/streaming/processing/event_processor.py and
// recorder.py's gating logic.
package recorder

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isafeguard/engine/pkg/reason"
)

// ClipWriter receives one frame at a time for an in-progress clip
// (clipwriter_gocv.go's gocv.VideoWriter-backed implementation in production).
type ClipWriter interface {
	WriteFrame(frameData []byte) error
	Close() error
}

// ClipWriterFactory opens a new clip file for the given stream/timestamp.
type ClipWriterFactory func(streamID string, width, height int, fps float64, startedAt time.Time) (writer ClipWriter, clipPath string, err error)

// Event is the persisted record of one recorded clip (spec section 4.4:
// "persist an event document with a fresh id and initial reasons").
type Event struct {
	ID        string
	StreamID  string
	ModelName string
	Reasons   []reason.Token
	StartedAt time.Time
	ClipPath  string
}

// EventStore is the external collaborator that persists Event documents
// (spec section 6.1); kept abstract since storage is out of scope.
type EventStore interface {
	Save(ev Event) error
}

// Notifier is the external collaborator that delivers notifications for a
// new event (spec section 4.4: "asynchronously fire notifications (email +
// watch push)"); kept abstract since delivery transport is out of scope.
type Notifier interface {
	Notify(ev Event) error
}

// Config tunes the gating thresholds (spec section 4.4 / 6.5 defaults).
type Config struct {
	FrameInterval  int           // DEFAULT_FRAME_INTERVAL
	UnsafeRatio    float64       // DEFAULT_UNSAFE_RATIO_THRESHOLD
	Cooldown       time.Duration // DEFAULT_EVENT_COOLDOWN
	RecordDuration time.Duration // DEFAULT_RECORD_DURATION
}

// DefaultConfig matches spec section 6.5's defaults.
func DefaultConfig() Config {
	return Config{
		FrameInterval:  30,
		UnsafeRatio:    0.7,
		Cooldown:       30 * time.Second,
		RecordDuration: 10 * time.Second,
	}
}

// Recorder gates clip recording for one stream. It is not safe for
// concurrent Observe calls from multiple goroutines, matching the
// teacher's single-owner-goroutine processing model; start is
// internally synchronized only against concurrent Stop/status reads.
type Recorder struct {
	cfg      Config
	streamID string
	model    string
	factory  ClipWriterFactory
	store    EventStore
	notifier Notifier
	onLog    func(string)

	mu            sync.Mutex
	writer        ClipWriter
	clipPath      string
	recording     bool
	startedAt     time.Time
	lastEventTime time.Time

	unsafeFrames int
	totalFrames  int
}

// New creates a Recorder for one stream.
func New(streamID, model string, cfg Config, factory ClipWriterFactory, store EventStore, notifier Notifier, onLog func(string)) *Recorder {
	if onLog == nil {
		onLog = func(string) {}
	}
	return &Recorder{
		cfg:      cfg,
		streamID: streamID,
		model:    model,
		factory:  factory,
		store:    store,
		notifier: notifier,
		onLog:    onLog,
	}
}

// Observe runs the gating logic for one processed frame (spec section
// 4.4): every cfg.FrameInterval frames, compute unsafe_ratio and reset the
// counter; start recording if gating conditions hold; write the frame if
// a clip is in progress; stop once cfg.RecordDuration has elapsed.
func (r *Recorder) Observe(frameData []byte, width, height int, unsafe bool, reasons []reason.Token, fps float64) {
	r.totalFrames++
	if unsafe {
		r.unsafeFrames++
	}

	if r.totalFrames%r.cfg.FrameInterval == 0 {
		unsafeRatio := float64(r.unsafeFrames) / float64(r.cfg.FrameInterval)
		if r.shouldStart(unsafeRatio) {
			r.start(frameData, width, height, reasons, fps)
		}
		r.unsafeFrames = 0
	}

	if r.isRecording() {
		r.writeFrame(frameData)
	}

	if r.shouldStop() {
		r.Stop()
	}
}

func (r *Recorder) shouldStart(unsafeRatio float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return false
	}
	cooldownElapsed := r.lastEventTime.IsZero() || time.Since(r.lastEventTime) >= r.cfg.Cooldown
	return unsafeRatio >= r.cfg.UnsafeRatio && cooldownElapsed
}

func (r *Recorder) isRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *Recorder) shouldStop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return false
	}
	return time.Since(r.startedAt) >= r.cfg.RecordDuration
}

// start opens a clip writer and asynchronously persists the event and
// fires notifications, matching event_processor.py's three parallel
// threads (Event.save, send_email_notification, send_watch_notification).
func (r *Recorder) start(frameData []byte, width, height int, reasons []reason.Token, fps float64) {
	now := time.Now()
	writer, clipPath, err := r.factory(r.streamID, width, height, fps, now)
	if err != nil {
		r.onLog(fmt.Sprintf("recorder: failed to open clip writer: %v", err))
		return
	}

	dedup := reason.NewSet()
	for _, tok := range reasons {
		dedup.Add(tok)
	}

	r.mu.Lock()
	r.writer = writer
	r.clipPath = clipPath
	r.recording = true
	r.startedAt = now
	r.lastEventTime = now
	r.mu.Unlock()

	ev := Event{
		ID:        uuid.NewString(),
		StreamID:  r.streamID,
		ModelName: r.model,
		Reasons:   dedup.Tokens(),
		StartedAt: now,
		ClipPath:  clipPath,
	}

	go r.persist(ev)
	go r.notify(ev)
}

func (r *Recorder) persist(ev Event) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(ev); err != nil {
		r.onLog(fmt.Sprintf("recorder: failed to persist event %s: %v", ev.ID, err))
	}
}

func (r *Recorder) notify(ev Event) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ev); err != nil {
		r.onLog(fmt.Sprintf("recorder: failed to notify for event %s: %v", ev.ID, err))
	}
}

// writeFrame writes one frame to the in-progress clip. A broken pipe
// stops the recording immediately (spec section 4.4: "On broken writer
// pipe, stop immediately and log").
func (r *Recorder) writeFrame(frameData []byte) {
	r.mu.Lock()
	writer := r.writer
	r.mu.Unlock()

	if writer == nil {
		return
	}
	if err := writer.WriteFrame(frameData); err != nil {
		r.onLog(fmt.Sprintf("recorder: broken clip pipe for %s: %v", r.streamID, err))
		r.Stop()
	}
}

// Stop ends the in-progress recording, if any. Safe to call when not
// recording.
func (r *Recorder) Stop() {
	r.mu.Lock()
	writer := r.writer
	r.writer = nil
	wasRecording := r.recording
	r.recording = false
	r.mu.Unlock()

	if !wasRecording || writer == nil {
		return
	}
	if err := writer.Close(); err != nil {
		r.onLog(fmt.Sprintf("recorder: error closing clip for %s: %v", r.streamID, err))
	}
}

// IsRecording reports whether a clip is currently being written.
func (r *Recorder) IsRecording() bool {
	return r.isRecording()
}
