package admission

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultCapacity is the number of requests a client may make per window.
	DefaultCapacity = 1000
	// DefaultWindow is the length of one rate limit window.
	DefaultWindow = time.Hour

	defaultKey = "default"
)

// Admitter decides whether a request identified by key may proceed.
type Admitter interface {
	Admit(ctx context.Context, key string) bool
}

type bucket struct {
	tokens      int
	windowStart time.Time
}

// Controller is an in-process fixed window limiter. Each key gets capacity
// tokens per window; the bucket refills completely once the window has passed.
type Controller struct {
	capacity int
	window   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController builds a limiter. Non-positive values fall back to the defaults.
func NewController(capacity int, window time.Duration, opts ...Option) *Controller {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	c := &Controller{
		capacity: capacity,
		window:   window,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Admit consumes one token for key and reports whether one was available.
func (c *Controller) Admit(_ context.Context, key string) bool {
	if key == "" {
		key = defaultKey
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[key]
	if !ok {
		b = &bucket{tokens: c.capacity, windowStart: now}
		c.buckets[key] = b
	}
	if !now.Before(b.windowStart.Add(c.window)) {
		b.tokens = c.capacity
		b.windowStart = now
	}
	if b.tokens == 0 {
		return false
	}
	b.tokens--
	return true
}

// Sweep drops buckets whose window has elapsed. A dropped key starts over
// with a full bucket, which is what it would have got anyway.
func (c *Controller) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, b := range c.buckets {
		if !now.Before(b.windowStart.Add(c.window)) {
			delete(c.buckets, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Len returns the number of tracked keys.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}
