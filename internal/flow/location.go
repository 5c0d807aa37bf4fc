package flow

import (
	"context"
	"sync"
)

// Sampler is the platform location capability. Subscribe returns a channel of
// position samples that closes when the given context is cancelled.
type Sampler interface {
	Subscribe(ctx context.Context) (<-chan Position, error)
}

// LocationCollector maintains a best-effort current-position sample from a
// background subscription. Current never blocks waiting for a fix; callers
// must tolerate ErrNoSample.
type LocationCollector struct {
	mu     sync.RWMutex
	sample *Position

	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// StartLocationCollector subscribes to the sampler and begins collecting in
// the background. The subscription runs until Close is called or the parent
// context is cancelled.
func StartLocationCollector(ctx context.Context, sampler Sampler) (*LocationCollector, error) {
	ctx, cancel := context.WithCancel(ctx)
	ch, err := sampler.Subscribe(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	c := &LocationCollector{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.collect(ch)
	return c, nil
}

func (c *LocationCollector) collect(ch <-chan Position) {
	defer close(c.done)
	for pos := range ch {
		p := pos
		c.mu.Lock()
		c.sample = &p
		c.mu.Unlock()
	}
}

// Current returns the last known sample, or ErrNoSample if none has arrived
// yet.
func (c *LocationCollector) Current() (Position, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sample == nil {
		return Position{}, ErrNoSample
	}
	return *c.sample, nil
}

// Close tears down the subscription and waits for the collection goroutine
// to finish. Safe to call more than once.
func (c *LocationCollector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	<-c.done
}
