package sink

import (
	"os/exec"
	"strings"
	"testing"
)

// catFactory spawns `cat > /dev/null`, a process that reads stdin until
// closed; used to exercise start/write/close without a real ffmpeg binary.
func catFactory() CommandFactory {
	return func() *exec.Cmd {
		return exec.Command("cat")
	}
}

func TestSink_WriteStartsProcessLazily(t *testing.T) {
	s := New(catFactory(), nil)
	if s.Running() {
		t.Fatal("expected process not to be running before first write")
	}
	if err := s.Write([]byte("frame-bytes")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !s.Running() {
		t.Error("expected process to be running after first write")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSink_WriteAfterCloseFails(t *testing.T) {
	s := New(catFactory(), nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Write([]byte("x")); err != ErrClosed {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

func TestSink_RestartsOnBrokenPipe(t *testing.T) {
	attempts := 0
	factory := func() *exec.Cmd {
		attempts++
		return exec.Command("cat")
	}

	var logs []string
	s := New(factory, func(msg string) { logs = append(logs, msg) })

	if err := s.Write([]byte("frame")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected one process started after first write, got %d", attempts)
	}

	// Force a broken pipe deterministically: close the underlying stdin
	// out from under the sink, as a dead subprocess would.
	s.mu.Lock()
	_ = s.stdin.Close()
	s.mu.Unlock()

	if err := s.Write([]byte("frame-after-break")); err != nil {
		t.Fatalf("Write after broken pipe: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected the sink to restart the process once, got %d starts", attempts)
	}

	found := false
	for _, l := range logs {
		if strings.Contains(l, "broken output pipe") {
			found = true
		}
	}
	if !found {
		t.Error("expected a log message about the broken output pipe")
	}

	_ = s.Close()
}

func TestFFmpegRTMPFactory_BuildsExpectedArgs(t *testing.T) {
	factory := FFmpegRTMPFactory("rtmp://media.example.com/live", "cam-1", 1280, 720, 15)
	cmd := factory()
	if cmd.Path == "" {
		t.Fatal("expected a resolved or literal command path")
	}
	joined := strings.Join(cmd.Args, " ")
	for _, want := range []string{"1280x720", "15.00", "rtmp://media.example.com/live/cam-1", "pipe:0"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected ffmpeg args to contain %q, got %q", want, joined)
		}
	}
}
