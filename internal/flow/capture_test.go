package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCamera struct {
	ref string
	err error
}

func (c *fakeCamera) Capture(ctx context.Context) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.ref, nil
}

type fakeSampler struct {
	positions []Position
	err       error
}

func (s *fakeSampler) Subscribe(ctx context.Context) (<-chan Position, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan Position)
	go func() {
		defer close(ch)
		for _, p := range s.positions {
			select {
			case ch <- p:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return ch, nil
}

func TestEvidenceCapture(t *testing.T) {
	ctx := context.Background()

	t.Run("successful capture without location", func(t *testing.T) {
		ec := NewEvidenceCapture(&fakeCamera{ref: "photos/1.jpg"}, nil, "pixel-8/safeshipper-2.4", 0)
		ev, err := ec.Capture(ctx)
		require.NoError(t, err)
		assert.Equal(t, "photos/1.jpg", ev.PhotoRef)
		assert.Equal(t, "pixel-8/safeshipper-2.4", ev.Metadata.Device)
		assert.Nil(t, ev.Metadata.Position)
		assert.False(t, ev.Metadata.CapturedAt.IsZero())
	})

	t.Run("position attached when a sample is available", func(t *testing.T) {
		sampler := &fakeSampler{positions: []Position{{Latitude: -33.86, Longitude: 151.2, Accuracy: 8}}}
		lc, err := StartLocationCollector(ctx, sampler)
		require.NoError(t, err)
		defer lc.Close()

		require.Eventually(t, func() bool {
			_, err := lc.Current()
			return err == nil
		}, time.Second, 5*time.Millisecond)

		ec := NewEvidenceCapture(&fakeCamera{ref: "photos/2.jpg"}, lc, "test", 100*time.Millisecond)
		ev, err := ec.Capture(ctx)
		require.NoError(t, err)
		require.NotNil(t, ev.Metadata.Position)
		assert.InDelta(t, -33.86, ev.Metadata.Position.Latitude, 0.001)
		assert.InDelta(t, 8, ev.Metadata.Position.Accuracy, 0.001)
	})

	t.Run("missing position within grace period is not an error", func(t *testing.T) {
		lc, err := StartLocationCollector(ctx, &fakeSampler{})
		require.NoError(t, err)
		defer lc.Close()

		ec := NewEvidenceCapture(&fakeCamera{ref: "photos/3.jpg"}, lc, "test", 20*time.Millisecond)
		ev, err := ec.Capture(ctx)
		require.NoError(t, err)
		assert.Nil(t, ev.Metadata.Position)
	})

	t.Run("permission denial is passed through", func(t *testing.T) {
		ec := NewEvidenceCapture(&fakeCamera{err: ErrPermissionDenied}, nil, "test", 0)
		_, err := ec.Capture(ctx)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("user cancellation is passed through", func(t *testing.T) {
		ec := NewEvidenceCapture(&fakeCamera{err: ErrUserCancelled}, nil, "test", 0)
		_, err := ec.Capture(ctx)
		assert.ErrorIs(t, err, ErrUserCancelled)
	})

	t.Run("platform failures map to capture error", func(t *testing.T) {
		ec := NewEvidenceCapture(&fakeCamera{err: errors.New("sensor busy")}, nil, "test", 0)
		_, err := ec.Capture(ctx)
		assert.ErrorIs(t, err, ErrCaptureFailed)
		assert.Contains(t, err.Error(), "sensor busy")
	})
}

func TestLocationCollector(t *testing.T) {
	ctx := context.Background()

	t.Run("no sample before the first fix", func(t *testing.T) {
		lc, err := StartLocationCollector(ctx, &fakeSampler{})
		require.NoError(t, err)
		defer lc.Close()

		_, err = lc.Current()
		assert.ErrorIs(t, err, ErrNoSample)
	})

	t.Run("keeps the latest sample", func(t *testing.T) {
		sampler := &fakeSampler{positions: []Position{
			{Latitude: 1, Longitude: 1},
			{Latitude: 2, Longitude: 2},
		}}
		lc, err := StartLocationCollector(ctx, sampler)
		require.NoError(t, err)
		defer lc.Close()

		require.Eventually(t, func() bool {
			pos, err := lc.Current()
			return err == nil && pos.Latitude == 2
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("subscribe failure surfaces", func(t *testing.T) {
		_, err := StartLocationCollector(ctx, &fakeSampler{err: errors.New("location services disabled")})
		assert.Error(t, err)
	})

	t.Run("close is idempotent and stops collection", func(t *testing.T) {
		lc, err := StartLocationCollector(ctx, &fakeSampler{})
		require.NoError(t, err)
		lc.Close()
		lc.Close()
	})
}
