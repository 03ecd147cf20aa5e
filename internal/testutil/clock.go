// Package testutil holds deterministic stand-ins for run IDs, audit
// sequence numbers and wall time.
package testutil

import (
	"sync/atomic"

	"github.com/algox/ruling-class-sub004/internal/engine"
)

// DeterministicClock is an engine.Sequencer that can be rewound, so a
// scenario replayed on the same clock stamps the same seq values.
type DeterministicClock struct {
	clock atomic.Pointer[engine.Clock]
}

// NewDeterministicClock returns a clock whose first Next is 1.
func NewDeterministicClock() *DeterministicClock {
	c := &DeterministicClock{}
	c.Reset()
	return c
}

// Next implements engine.Sequencer.
func (c *DeterministicClock) Next() int64 { return c.clock.Load().Next() }

// Current returns the last stamp handed out.
func (c *DeterministicClock) Current() int64 { return c.clock.Load().Current() }

// Reset rewinds to 0. Stamps already in flight on another goroutine
// land on the old sequence.
func (c *DeterministicClock) Reset() { c.clock.Store(engine.NewClock()) }
