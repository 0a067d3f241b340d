// Package sink implements the output sink (spec component C5): one
// subprocess per stream that receives raw annotated frame bytes on stdin
// and republishes them (e.g. to RTMP), transparently restarted on a
// broken pipe, generalizing the mutex-guarded-connection lifecycle the
// teacher uses for its VMC UDP sender in pkg/miface/sender.go and the
// process-restart contract of original_source's stream_output.py
// StreamOutputManager.
package sink

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// ErrClosed is returned by Write/Restart once the sink has been closed.
var ErrClosed = errors.New("sink: closed")

// CommandFactory builds the exec.Cmd for one (re)start of the output
// process. Each call must return a fresh, unstarted command.
type CommandFactory func() *exec.Cmd

// Sink owns one external writer subprocess for a stream, generalizing
// StreamOutputManager.get_streamer_process/_restart_streamer_process: the
// process is started lazily on first Write and transparently restarted
// whenever the previous write failed.
type Sink struct {
	mu      sync.Mutex
	factory CommandFactory
	onLog   func(string)

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	enabled bool
}

// New creates a Sink. The subprocess is not started until the first Write.
func New(factory CommandFactory, onLog func(string)) *Sink {
	if onLog == nil {
		onLog = func(string) {}
	}
	return &Sink{factory: factory, onLog: onLog, enabled: true}
}

// Write sends one frame's bytes to the output process, starting it on
// first use and restarting it once if the pipe was broken, mirroring
// stream_frame's "write, catch BrokenPipeError, restart, retry once"
// contract.
func (s *Sink) Write(frameData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return ErrClosed
	}

	if s.stdin == nil {
		if err := s.startLocked(); err != nil {
			return err
		}
	}

	if _, err := s.stdin.Write(frameData); err != nil {
		s.onLog(fmt.Sprintf("sink: broken output pipe: %v, restarting", err))
		s.stopLocked()
		if err := s.startLocked(); err != nil {
			return err
		}
		if _, err := s.stdin.Write(frameData); err != nil {
			return fmt.Errorf("sink: write failed after restart: %w", err)
		}
	}

	return nil
}

func (s *Sink) startLocked() error {
	cmd := s.factory()
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("sink: obtaining stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("sink: starting output process: %w", err)
	}
	s.cmd = cmd
	s.stdin = stdin
	return nil
}

func (s *Sink) stopLocked() {
	if s.stdin != nil {
		_ = s.stdin.Close()
		s.stdin = nil
	}
	if s.cmd != nil {
		_ = s.cmd.Wait()
		s.cmd = nil
	}
}

// Close stops the output process and marks the sink unusable.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return nil
	}
	s.enabled = false
	s.stopLocked()
	return nil
}

// Running reports whether the output process is currently started.
func (s *Sink) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stdin != nil
}
