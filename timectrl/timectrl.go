package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how a Controller paces its steps.
type Mode int

const (
	// RealTime fires one step per Interval of wall-clock time.
	RealTime Mode = iota
	// Accelerated fires steps back to back, ignoring Interval.
	Accelerated
)

// Interval converts a rate in steps per second to a step interval.
func Interval(perSecond float64) time.Duration {
	if perSecond <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / perSecond)
}

// Listener is invoked on every step with the loop's context, which is
// derived from the context passed to Start, and the 1-based step count
// since the controller was created.
type Listener func(ctx context.Context, step int)

// Controller drives a fixed-cadence loop and notifies registered listeners
// on every step. Tick and render cadences each get their own Controller,
// so the two never wait on one another.
type Controller struct {
	mu       sync.Mutex
	Interval time.Duration
	Mode     Mode

	steps     int
	listeners []Listener

	cancel context.CancelFunc
	done   chan struct{}
}

// NewController constructs a stopped controller.
func NewController(interval time.Duration, mode Mode) *Controller {
	return &Controller{
		Interval: interval,
		Mode:     mode,
	}
}

// AddListener registers a callback invoked on every step.
func (c *Controller) AddListener(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Start runs the loop in a separate goroutine until ctx is cancelled, Stop
// is called, or limit steps have fired (limit <= 0 means unbounded). It
// returns a channel closed when the loop exits. Starting a running
// controller returns the existing loop's channel.
func (c *Controller) Start(ctx context.Context, limit int) <-chan struct{} {
	c.mu.Lock()
	if c.done != nil {
		done := c.done
		c.mu.Unlock()
		return done
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			c.mu.Lock()
			if c.done == done {
				c.done = nil
				c.cancel = nil
			}
			c.mu.Unlock()
			close(done)
		}()

		var tick <-chan time.Time
		if c.Mode == RealTime && c.Interval > 0 {
			ticker := time.NewTicker(c.Interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for fired := 0; limit <= 0 || fired < limit; fired++ {
			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			} else if ctx.Err() != nil {
				return
			}
			c.step(ctx)
		}
	}()
	return done
}

func (c *Controller) step(ctx context.Context) {
	c.mu.Lock()
	c.steps++
	step := c.steps
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, step)
	}
}

// Stop halts the loop. It is safe to call on a stopped controller and from
// inside a listener; it does not wait for the loop to exit.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Running reports whether the loop is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done != nil
}

// Steps returns how many steps have fired.
func (c *Controller) Steps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steps
}
