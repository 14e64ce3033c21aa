// Package throttle implements the admission control applied to requests
// that have to touch the spatial datastore. Requests are never rejected,
// only delayed: the delay grows exponentially with the number of
// in-flight datastore-bound requests and is capped, so a burst pays a
// congestion signal without risking an unbounded stall.
package throttle

import (
	"sync"
	"time"

	"github.com/karttaworks/tile-grid-cache/internal/core/observability"
)

const (
	DefaultBaseDelay = 100 * time.Millisecond
	DefaultMaxDelay  = 10 * time.Second
)

// Throttle is an owned, injectable component: construct one per process
// and hand it to the request handlers. The sleep function is a seam for
// deterministic tests.
type Throttle struct {
	mu       sync.Mutex
	inflight map[uint64]struct{}
	nextID   uint64

	base  time.Duration
	max   time.Duration
	sleep func(time.Duration)
}

type Option func(*Throttle)

func WithDelays(base, max time.Duration) Option {
	return func(t *Throttle) {
		if base > 0 {
			t.base = base
		}
		if max > 0 {
			t.max = max
		}
	}
}

func WithSleep(fn func(time.Duration)) Option {
	return func(t *Throttle) { t.sleep = fn }
}

func New(opts ...Option) *Throttle {
	t := &Throttle{
		inflight: make(map[uint64]struct{}),
		base:     DefaultBaseDelay,
		max:      DefaultMaxDelay,
		sleep:    time.Sleep,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Admit allocates a request id, counts it in-flight, and suspends the
// caller for min(base * 2^(n-1), max) where n includes this request.
// Once the sleep starts the request runs to completion; there is no
// cancellation, the cap bounds the stall instead.
func (t *Throttle) Admit() (requestID uint64, delayApplied time.Duration) {
	t.mu.Lock()
	t.nextID++
	requestID = t.nextID
	t.inflight[requestID] = struct{}{}
	n := len(t.inflight)
	t.mu.Unlock()

	observability.SetInflight(n)

	delayApplied = t.delayFor(n)
	if delayApplied > 0 {
		t.sleep(delayApplied)
	}
	observability.ObserveThrottleDelay(delayApplied.Seconds())
	return requestID, delayApplied
}

// Release removes the request from the in-flight set immediately; the
// next Admit observes a smaller count and a smaller delay.
func (t *Throttle) Release(requestID uint64) {
	t.mu.Lock()
	delete(t.inflight, requestID)
	n := len(t.inflight)
	t.mu.Unlock()

	observability.SetInflight(n)
}

// Active reports the current in-flight count.
func (t *Throttle) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

// delayFor computes min(base * 2^(n-1), max) for n in-flight requests
// including the caller. An uncontended admission pays no delay at all:
// the delay models backing-store congestion, and with one request there
// is none.
func (t *Throttle) delayFor(n int) time.Duration {
	if n <= 1 {
		return 0
	}
	d := t.base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= t.max {
			return t.max
		}
	}
	return d
}
