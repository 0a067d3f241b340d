package frame

import (
	"sync"
	"time"
)

// Exported helmet-voting defaults resolve the "helmet-voting constants"
// Open Question (SPEC_FULL.md section 9): the source material's
// HELMET_TRACKING_WINDOW / confidence threshold / minimum person-box area
// become exported Strategy configuration instead of private constants.
const (
	// DefaultHelmetVotingWindow is the number of most-recent observations
	// kept per tracked person.
	DefaultHelmetVotingWindow = 10
	// DefaultHelmetVotingThreshold is the minimum count, out of
	// DefaultHelmetVotingWindow observations, that must agree on "no
	// helmet" before a violation is reported (spec section 4.3.1).
	DefaultHelmetVotingThreshold = 6
	// DefaultMinPersonBoxArea is the minimum bbox area, in pixels squared,
	// below which a person is "too distant" and exempt from helmet
	// evaluation (spec section 4.3.1).
	DefaultMinPersonBoxArea = 1500
	// trackStaleAfter bounds how long an unseen track is kept before
	// garbage collection; actual GC also happens in bulk on stream stop
	// (spec section 4.3.1: "garbage-collected on stream stop").
	trackStaleAfter = 5 * time.Minute
)

// helmetObservation is one frame's helmet-presence reading for a track.
type helmetObservation struct {
	hasHelmet bool
	lastSeen  time.Time
}

// HelmetVoter maintains per-track-id helmet observation history and
// suppresses single-frame misdetections by requiring a minimum count of
// "no helmet" observations in the window before reporting a violation,
// generalizing the source's HelmetTracker (referenced from
// detection/heavy_equipment.py: helmet_tracker.update/is_violation).
type HelmetVoter struct {
	mu        sync.Mutex
	window    int
	threshold int
	minArea   int
	history   map[int][]bool
	lastSeen  map[int]time.Time
}

// NewHelmetVoter creates a voter with the given window/threshold/min-area.
// Pass the Default* constants for the source's original behavior.
func NewHelmetVoter(window, threshold, minArea int) *HelmetVoter {
	return &HelmetVoter{
		window:    window,
		threshold: threshold,
		minArea:   minArea,
		history:   make(map[int][]bool),
		lastSeen:  make(map[int]time.Time),
	}
}

// TooDistant reports whether box is below the minimum area for reliable
// helmet evaluation (spec section 4.3.1: "exempt from helmet evaluation").
func (v *HelmetVoter) TooDistant(box Box) bool {
	return box.Area() < v.minArea
}

// Observe records one frame's helmet reading for trackID and reports
// whether the accumulated window now constitutes a violation.
func (v *HelmetVoter) Observe(trackID int, hasHelmet bool) bool {
	if trackID < 0 {
		// Untracked detections can't accumulate a window; treat the
		// single observation as its own one-frame "vote".
		return !hasHelmet
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	hist := append(v.history[trackID], hasHelmet)
	if len(hist) > v.window {
		hist = hist[len(hist)-v.window:]
	}
	v.history[trackID] = hist
	v.lastSeen[trackID] = time.Now()

	noHelmetVotes := 0
	for _, h := range hist {
		if !h {
			noHelmetVotes++
		}
	}
	return noHelmetVotes >= v.threshold
}

// GC drops tracks not seen within trackStaleAfter. On stream stop the
// voter is cleared with Reset instead (through Processor.GCTracks), which
// drops every track (spec section 4.3.1: "garbage-collected on stream stop").
func (v *HelmetVoter) GC() {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := time.Now()
	for id, ts := range v.lastSeen {
		if now.Sub(ts) > trackStaleAfter {
			delete(v.history, id)
			delete(v.lastSeen, id)
		}
	}
}

// Reset clears all tracked state unconditionally.
func (v *HelmetVoter) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.history = make(map[int][]bool)
	v.lastSeen = make(map[int]time.Time)
}
