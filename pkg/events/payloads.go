package events

// AlertPayload is the payload for alert-{stream_id} events (spec section
// 6.2), emitted per frame with any hazard-zone intrusion.
type AlertPayload struct {
	Type string `json:"type"`
}

// PTZAutotrackPayload is the payload for the ptz-autotrack event, published
// on change.
type PTZAutotrackPayload struct {
	PTZAutotrack bool `json:"ptz_autotrack"`
}

// ZoomLevelPayload is the payload for the zoom-level event, published when
// a viewer joins a PTZ room.
type ZoomLevelPayload struct {
	Zoom float64 `json:"zoom"`
}

// PatrolPreviewWaypointPayload annotates one waypoint visited during a
// patrol pattern preview run.
type PatrolPreviewWaypointPayload struct {
	Index int     `json:"index"`
	Pan   float64 `json:"pan"`
	Tilt  float64 `json:"tilt"`
}

// PatrolPreviewErrorPayload carries the reason a preview run could not
// complete.
type PatrolPreviewErrorPayload struct {
	Error string `json:"error"`
}

// IntrusionPublisher adapts a Bus to frame.AlertPublisher (defined in
// pkg/frame) without importing that package — the method set alone
// satisfies the interface, keeping pkg/events and pkg/frame decoupled.
type IntrusionPublisher struct {
	Bus *Bus
}

// PublishIntrusion publishes the alert-{streamID} event.
func (p IntrusionPublisher) PublishIntrusion(streamID string) {
	if p.Bus == nil {
		return
	}
	p.Bus.Publish("alert-"+streamID, AlertPayload{Type: "intrusion"})
}
