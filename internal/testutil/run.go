package testutil

import (
	"sync/atomic"
	"time"
)

// DefaultRunID is used when a scenario names no run ID.
const DefaultRunID = "test-run-default"

// FixedRunIDGenerator returns the same run ID every time, so repeated
// runs of a scenario produce byte-identical audit trails.
//
// Unlike engine.FixedGenerator, which hands out a list of IDs and then
// panics, this generator never runs out.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator returns a generator for id, or DefaultRunID
// when id is empty.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate implements engine.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}

// Epoch is the instant a FrozenClock starts at.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// FrozenClock is a wall clock that only moves when told to. Its Now
// method fits engine.WithNow; with a frozen clock every recorded
// duration is zero.
type FrozenClock struct {
	nanos atomic.Int64
}

// NewFrozenClock returns a clock stopped at Epoch.
func NewFrozenClock() *FrozenClock {
	return &FrozenClock{}
}

// Now returns the current frozen instant.
func (c *FrozenClock) Now() time.Time {
	return Epoch.Add(time.Duration(c.nanos.Load()))
}

// Advance moves the clock forward by d.
func (c *FrozenClock) Advance(d time.Duration) {
	c.nanos.Add(int64(d))
}
