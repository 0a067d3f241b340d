package stream

import "github.com/0x524A/go-onvif"

// positionOf extracts pan/tilt/zoom from an ONVIF GetStatus response,
// reporting ok=false if the camera omitted position data.
func positionOf(status *onvif.PTZStatus) (pan, tilt, zoom float64, ok bool) {
	if status == nil || status.Position == nil {
		return 0, 0, 0, false
	}
	if status.Position.PanTilt != nil {
		pan = status.Position.PanTilt.X
		tilt = status.Position.PanTilt.Y
	}
	if status.Position.Zoom != nil {
		zoom = status.Position.Zoom.X
	}
	return pan, tilt, zoom, true
}
