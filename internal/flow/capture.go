package flow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Camera is the platform photo capability. Capture returns a reference to
// the stored photo. Implementations signal ErrPermissionDenied when camera
// access is not granted and ErrUserCancelled when the user aborts.
type Camera interface {
	Capture(ctx context.Context) (string, error)
}

// EvidenceCapture produces photo references with immutable capture metadata.
// Position fields are populated best-effort from the location collector and
// may be absent; absence is not an error.
type EvidenceCapture struct {
	camera   Camera
	location *LocationCollector
	device   string
	grace    time.Duration
	now      func() time.Time
}

// NewEvidenceCapture wires a camera with an optional location collector.
// grace bounds how long capture waits for a position sample to appear.
func NewEvidenceCapture(camera Camera, location *LocationCollector, device string, grace time.Duration) *EvidenceCapture {
	return &EvidenceCapture{
		camera:   camera,
		location: location,
		device:   device,
		grace:    grace,
		now:      time.Now,
	}
}

// Capture takes a photo and assembles its evidence metadata. Platform
// failures other than permission denial and user cancellation are wrapped
// into ErrCaptureFailed.
func (e *EvidenceCapture) Capture(ctx context.Context) (*Evidence, error) {
	photoRef, err := e.camera.Capture(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrUserCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	md := EvidenceMetadata{
		CapturedAt: e.now(),
		Device:     e.device,
	}
	if pos, ok := e.awaitPosition(ctx); ok {
		md.Position = &pos
	}

	return &Evidence{PhotoRef: photoRef, Metadata: md}, nil
}

// awaitPosition polls the collector for up to the grace period. A missing
// sample degrades metadata fidelity but never fails the capture.
func (e *EvidenceCapture) awaitPosition(ctx context.Context) (Position, bool) {
	if e.location == nil {
		return Position{}, false
	}
	if pos, err := e.location.Current(); err == nil {
		return pos, true
	}
	if e.grace <= 0 {
		return Position{}, false
	}

	deadline := time.NewTimer(e.grace)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return Position{}, false
		case <-deadline.C:
			return Position{}, false
		case <-tick.C:
			if pos, err := e.location.Current(); err == nil {
				return pos, true
			}
		}
	}
}
