package stream

import (
	"context"
	"sync"
	"time"

	"github.com/isafeguard/engine/pkg/frame"
	"github.com/isafeguard/engine/pkg/ptzctl"
)

// ptzHandoff adapts ptzctl.AutoTracker + ptzctl.CommandQueue to
// frame.PTZHandoff (spec section 4.3 step 4's "hand them to C6
// (non-blocking enqueue)"), converting frame.Box to ptzctl.Box at the
// boundary since the two packages intentionally don't share a box type to
// avoid an import cycle.
//
// tracker is created unconditionally for any PTZ-configured stream, since
// it's pure computation; queue is filled in once the ONVIF connection
// completes (spec section 4.8: "asynchronously initialize PTZ"), so Track
// is a no-op until then rather than blocking Start. Every device call,
// including the return-to-home move below, goes through this one queue so
// it never dials the underlying Controller concurrently with auto-track's
// continuous corrections or the patrol engine's waypoint moves.
type ptzHandoff struct {
	tracker *ptzctl.AutoTracker
	onLog   func(string)

	mu    sync.Mutex
	queue *ptzctl.CommandQueue
}

func newPTZHandoff(tracker *ptzctl.AutoTracker, onLog func(string)) *ptzHandoff {
	return &ptzHandoff{tracker: tracker, onLog: onLog}
}

func (h *ptzHandoff) setDevice(queue *ptzctl.CommandQueue) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = queue
}

const ptzHomeTimeout = 5 * time.Second

// Track satisfies frame.PTZHandoff.
func (h *ptzHandoff) Track(frameWidth, frameHeight int, personBoxes []frame.Box) {
	boxes := make([]ptzctl.Box, len(personBoxes))
	for i, b := range personBoxes {
		boxes[i] = ptzctl.Box{X0: float64(b.X0), Y0: float64(b.Y0), X1: float64(b.X1), Y1: float64(b.Y1)}
	}

	move, shouldMove, goHome := h.tracker.Track(frameWidth, frameHeight, boxes)

	h.mu.Lock()
	queue := h.queue
	h.mu.Unlock()

	if queue == nil {
		return
	}

	switch {
	case goHome:
		pan, tilt, zoom := h.tracker.Home()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), ptzHomeTimeout)
			defer cancel()
			if err := queue.AbsoluteMove(ctx, pan, tilt, zoom); err != nil {
				h.onLog("ptzctl: return-to-home failed: " + err.Error())
			}
		}()
	case shouldMove:
		queue.Enqueue(move)
	}
}
