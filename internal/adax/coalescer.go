package adax

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/muurk/adax/internal/logging"
)

// MinFlushDelay is the smallest delay before a scheduled flush, even when the
// rate limit would allow sending at once. It gives rapid edits a chance to merge.
const MinFlushDelay = 100 * time.Millisecond

// flushFunc sends one batch. It is never called concurrently.
type flushFunc func(ctx context.Context, batch []pendingRoom) error

// cycle is the one-shot notification for one flush. done is closed exactly
// once, after err is set.
type cycle struct {
	id   string
	done chan struct{}
	err  error
}

func newCycle() *cycle {
	return &cycle{id: uuid.NewString(), done: make(chan struct{})}
}

// coalescer merges setpoint edits into a single control request.
//
// Idle -> Scheduled: an edit arrives and a timer is armed.
// Scheduled -> Scheduled: a newer edit stops the timer and arms a new one;
// the generation counter turns any callback that already fired into a no-op.
// Scheduled -> Flushing: the timer fires, the pending set becomes the batch.
// Flushing -> Idle: the batch completes and its cycle is released. Edits that
// arrived meanwhile already belong to the next cycle.
type coalescer struct {
	governor *Governor
	flush    flushFunc
	minDelay time.Duration
	metrics  *Metrics

	mu       sync.Mutex
	pending  []pendingRoom
	timer    *time.Timer
	gen      uint64
	flushing bool
	next     *cycle
}

func newCoalescer(governor *Governor, flush flushFunc, metrics *Metrics) *coalescer {
	return &coalescer{
		governor: governor,
		flush:    flush,
		minDelay: MinFlushDelay,
		metrics:  metrics,
	}
}

// Submit records u, replacing any pending edit for the same room, and blocks
// until the flush carrying it has completed. The flush error is returned to
// every caller of that cycle. If ctx ends first the edit is still sent.
func (c *coalescer) Submit(ctx context.Context, u RoomUpdate) error {
	entry := u.toPending()

	c.mu.Lock()
	before := len(c.pending)
	c.pending = slices.DeleteFunc(c.pending, func(p pendingRoom) bool { return p.ID == entry.ID })
	if len(c.pending) != before {
		c.metrics.coalesced()
	}
	c.pending = append(c.pending, entry)

	if c.next == nil {
		c.next = newCycle()
	}
	wait := c.next
	c.scheduleLocked(c.delay())
	c.mu.Unlock()

	select {
	case <-wait.done:
		return wait.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Busy reports whether a write is pending, scheduled or in flight.
func (c *coalescer) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending) > 0 || c.timer != nil || c.flushing
}

func (c *coalescer) delay() time.Duration {
	d := c.governor.Delay()
	if d < c.minDelay {
		return c.minDelay
	}
	return d
}

// scheduleLocked cancels the armed timer, if any, and arms a new one.
func (c *coalescer) scheduleLocked(d time.Duration) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	logging.LogFlush(c.next.id, "scheduled", len(c.pending))
	c.timer = time.AfterFunc(d, func() { c.fire(gen) })
}

func (c *coalescer) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		// superseded by a newer edit after the timer had already fired
		c.mu.Unlock()
		return
	}
	c.timer = nil

	if c.flushing {
		// picked up again when the in-flight flush completes
		c.mu.Unlock()
		return
	}
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	if d := c.governor.Delay(); d > 0 {
		c.scheduleLocked(d)
		c.mu.Unlock()
		return
	}

	batch := c.pending
	c.pending = nil
	cyc := c.next
	c.next = nil
	c.flushing = true
	c.mu.Unlock()

	logging.LogFlush(cyc.id, "dispatch", len(batch))
	err := c.flush(context.Background(), batch)
	if err != nil {
		c.metrics.flush("failed")
		logging.LogFlush(cyc.id, "failed", len(batch))
	} else {
		c.metrics.flush("success")
		logging.LogFlush(cyc.id, "complete", len(batch))
	}

	c.mu.Lock()
	c.flushing = false
	cyc.err = err
	close(cyc.done)
	if len(c.pending) > 0 && c.timer == nil {
		c.scheduleLocked(c.delay())
	}
	c.mu.Unlock()
}

// Stop cancels a scheduled flush without sending it and releases its waiters
// with errStopped. An in-flight flush is left to complete.
func (c *coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.pending = nil
	if c.next != nil {
		c.next.err = errStopped
		close(c.next.done)
		c.next = nil
	}
}
