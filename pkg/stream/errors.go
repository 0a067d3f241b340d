package stream

import "errors"

// Sentinel errors for the stream engine and registry, following the
// teacher's ErrTrackerClosed/ErrTrackerRunning style: plain errors.New
// values, wrapped with fmt.Errorf("...: %w") at call sites that need to
// attach a stream id.
var (
	ErrAlreadyActive       = errors.New("stream: already active")
	ErrNotActive           = errors.New("stream: not active")
	ErrPTZNotConfigured    = errors.New("stream: ptz not configured for this stream")
	ErrPatrolNotConfigured = errors.New("stream: patrol not configured for this stream")
	ErrInvalidPatrolMode   = errors.New("stream: invalid patrol mode")
	ErrNoFrameYet          = errors.New("stream: no frame captured yet")
	ErrNotFound            = errors.New("stream: not registered")
	ErrAlreadyRegistered   = errors.New("stream: already registered")
	ErrInvalidConfig       = errors.New("stream: invalid configuration")
)
