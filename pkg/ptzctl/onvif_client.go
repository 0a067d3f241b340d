package ptzctl

import (
	"context"
	"fmt"
	"time"

	"github.com/0x524A/go-onvif"
)

// Controller drives one physical PTZ camera over ONVIF, replacing the
// Python onvif-zeep client (original_source's `ONVIFCamera`) with the
// retrieval pack's github.com/0x524A/go-onvif SOAP client.
//
// Controller itself holds no lock: every call that can reach a live
// Controller for a given stream — continuous moves, absolute moves, stop —
// is funneled through that stream's one CommandQueue, whose single
// consumer goroutine is the only caller of these methods. Do not call
// Controller's methods directly from another goroutine; go through the
// queue instead.
type Controller struct {
	client       *onvif.Client
	profileToken string
	isMoving     bool
}

// NewController connects to the camera at endpoint, authenticates, and
// resolves the first media profile token, mirroring PTZAutoTracker's
// constructor (ONVIFCamera → create_ptz_service/create_media_service →
// GetProfiles()[0].token).
func NewController(ctx context.Context, endpoint, username, password string) (*Controller, error) {
	client, err := onvif.NewClient(endpoint, onvif.WithCredentials(username, password))
	if err != nil {
		return nil, fmt.Errorf("ptzctl: creating ONVIF client: %w", err)
	}
	if err := client.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("ptzctl: initializing ONVIF client: %w", err)
	}

	profiles, err := client.GetProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("ptzctl: fetching media profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("ptzctl: camera returned no media profiles")
	}

	return &Controller{client: client, profileToken: profiles[0].Token}, nil
}

// ContinuousMove issues a velocity-space pan/tilt/zoom command.
func (c *Controller) ContinuousMove(ctx context.Context, pan, tilt, zoom float64) error {
	velocity := &onvif.PTZSpeed{
		PanTilt: &onvif.Vector2D{X: pan, Y: tilt},
		Zoom:    &onvif.Vector1D{X: zoom},
	}
	if err := c.client.ContinuousMove(ctx, c.profileToken, velocity, nil); err != nil {
		return fmt.Errorf("ptzctl: continuous move: %w", err)
	}
	c.isMoving = true
	return nil
}

// AbsoluteMove issues a position-space pan/tilt/zoom command.
func (c *Controller) AbsoluteMove(ctx context.Context, pan, tilt, zoom float64) error {
	position := &onvif.PTZVector{
		PanTilt: &onvif.Vector2D{X: pan, Y: tilt},
		Zoom:    &onvif.Vector1D{X: zoom},
	}
	if err := c.client.AbsoluteMove(ctx, c.profileToken, position, nil); err != nil {
		return fmt.Errorf("ptzctl: absolute move: %w", err)
	}
	return nil
}

// Stop halts any in-progress pan/tilt/zoom movement.
func (c *Controller) Stop(ctx context.Context) error {
	if !c.isMoving {
		return nil
	}
	if err := c.client.Stop(ctx, c.profileToken, true, true); err != nil {
		return fmt.Errorf("ptzctl: stop: %w", err)
	}
	c.isMoving = false
	return nil
}

// Status fetches the camera's current PTZ position, used by pkg/stream to
// capture home positions and to report the current PTZ values.
func (c *Controller) Status(ctx context.Context) (*onvif.PTZStatus, error) {
	status, err := c.client.GetStatus(ctx, c.profileToken)
	if err != nil {
		return nil, fmt.Errorf("ptzctl: get status: %w", err)
	}
	return status, nil
}

// onvifTimeout bounds every ONVIF SOAP round trip issued by the command
// queue, so a wedged camera cannot stall the single-consumer goroutine.
const onvifTimeout = 5 * time.Second
