package engine

import "sync/atomic"

// Clock is a monotonic logical clock for completion ordering.
//
// All records are stamped with a strictly increasing seq number from this
// clock. This ensures deterministic ordering regardless of wall time and
// makes causal relationships explicit in the trace.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though the runtime's cooperative design means a single goroutine
// typically calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
