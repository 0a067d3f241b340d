package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeSource is a scriptable Source for pipeline tests.
type fakeSource struct {
	mu        sync.Mutex
	openErr   error
	readErrs  []error
	reads     int
	closed    bool
	descriptor string
}

func (f *fakeSource) Open(descriptor string) error {
	f.descriptor = descriptor
	return f.openErr
}

func (f *fakeSource) Read() (Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reads < len(f.readErrs) && f.readErrs[f.reads] != nil {
		err := f.readErrs[f.reads]
		f.reads++
		return Frame{}, err
	}
	f.reads++
	return Frame{Data: make([]byte, 12), Width: 2, Height: 2}, nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func TestPipeline_PublishesFrames(t *testing.T) {
	src := &fakeSource{readErrs: []error{nil, nil, errors.New("connection refused")}}
	cfg := DefaultConfig()
	cfg.ReconnectWait = time.Millisecond
	cfg.MaxReconnectWait = 5 * time.Millisecond
	cfg.FrameTimeout = time.Second

	p := New(cfg, func() Source { return src }, nil)
	p.Start(context.Background())
	defer p.Stop(time.Second)

	select {
	case f := <-p.Frames():
		if f.Width != 2 || f.Height != 2 {
			t.Errorf("unexpected frame dims: %dx%d", f.Width, f.Height)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestPipeline_DropsOldestWhenFull(t *testing.T) {
	src := &fakeSource{}
	cfg := DefaultConfig()
	cfg.QueueSize = 2
	cfg.FrameTimeout = time.Minute

	p := New(cfg, func() Source { return src }, nil)
	p.Start(context.Background())
	defer p.Stop(time.Second)

	time.Sleep(50 * time.Millisecond)

	if len(p.Frames()) > cfg.QueueSize {
		t.Errorf("queue exceeded bound: %d > %d", len(p.Frames()), cfg.QueueSize)
	}
}

func TestPipeline_BackoffSwitchesToAlternative(t *testing.T) {
	src := &fakeSource{openErr: errors.New("invalid data found when probing")}
	cfg := DefaultConfig()
	cfg.Primary = "rtsp://primary"
	cfg.Alternative = "rtsp://alternative"
	cfg.ReconnectWait = time.Millisecond
	cfg.MaxReconnectWait = 2 * time.Millisecond
	cfg.DecoderFailureLimit = 2

	var logs []string
	var mu sync.Mutex
	p := New(cfg, func() Source { return src }, func(s string) {
		mu.Lock()
		logs = append(logs, s)
		mu.Unlock()
	})
	p.Start(context.Background())
	defer p.Stop(time.Second)

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, l := range logs {
		if strings.Contains(l, "alternative") {
			found = true
		}
	}
	if !found {
		t.Error("expected at least one log message about reconnect/alternative switch")
	}
}

func TestPipeline_HealthyBeforeFirstFrame(t *testing.T) {
	cfg := DefaultConfig()
	p := New(cfg, func() Source { return &fakeSource{} }, nil)

	if !p.Healthy() {
		t.Error("expected pipeline with no frames yet to be considered healthy")
	}
}

func TestIsDecoderFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("invalid data found when probing"), true},
		{errors.New("could not find codec parameters"), true},
		{errors.New("connection refused"), false},
		{errors.New("i/o timeout"), false},
		{errors.New("no route to host"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsDecoderFailure(tt.err); got != tt.want {
			t.Errorf("IsDecoderFailure(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestBuildRTSPDescriptor_PercentEncodesCredentials(t *testing.T) {
	d := BuildRTSPDescriptor("192.168.1.10", 554, "admin", "p@ss/word", "/stream1")
	if d == "" {
		t.Fatal("expected non-empty descriptor")
	}
	if !strings.HasPrefix(d, "rtsp://admin:") {
		t.Errorf("expected descriptor to start with rtsp://admin:, got %q", d)
	}
	if !strings.HasSuffix(d, "@192.168.1.10:554/stream1") {
		t.Errorf("expected descriptor to end with host/path, got %q", d)
	}
	// The raw special characters must be percent-encoded, not passed through.
	userinfo := strings.TrimSuffix(strings.TrimPrefix(d, "rtsp://"), "@192.168.1.10:554/stream1")
	if strings.ContainsAny(userinfo, "@/") {
		t.Errorf("expected password special characters to be percent-encoded, got userinfo %q", userinfo)
	}
}

func TestAlternativeDescriptor(t *testing.T) {
	got := AlternativeDescriptor("rtsp://host/stream1")
	want := "rtsp://host/stream1?rtsp_transport=tcp&reorder_queue_size=0"
	if got != want {
		t.Errorf("AlternativeDescriptor() = %q, want %q", got, want)
	}

	got = AlternativeDescriptor("rtsp://host/stream1?x=1")
	want = "rtsp://host/stream1?x=1&rtsp_transport=tcp&reorder_queue_size=0"
	if got != want {
		t.Errorf("AlternativeDescriptor() with existing query = %q, want %q", got, want)
	}
}
