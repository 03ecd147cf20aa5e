package engine

import "sync/atomic"

// Clock hands out audit sequence numbers for one run. A run and the
// children it spawns share a Clock, so seq alone orders every record
// the run produced; wall time plays no part.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a Clock whose first Next is 1.
func NewClock() *Clock { return new(Clock) }

// Next stamps one record.
func (c *Clock) Next() int64 { return c.last.Add(1) }

// Current is the most recent stamp, 0 before the first Next.
func (c *Clock) Current() int64 { return c.last.Load() }
