package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/algox/ruling-class-sub004/internal/engine"
)

var (
	_ engine.RunIDGenerator = (*FixedRunIDGenerator)(nil)
	_ engine.Sequencer      = (*DeterministicClock)(nil)
)

func TestFixedRunIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedRunIDGenerator("run-abc")
	for i := 0; i < 10; i++ {
		assert.Equal(t, "run-abc", gen.Generate())
	}
}

func TestFixedRunIDGenerator_EmptyDefault(t *testing.T) {
	assert.Equal(t, DefaultRunID, NewFixedRunIDGenerator("").Generate())
}

func TestFixedRunIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedRunIDGenerator("run-concurrent")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "run-concurrent", gen.Generate())
		}()
	}
	wg.Wait()
}

func TestFrozenClock(t *testing.T) {
	c := NewFrozenClock()
	assert.Equal(t, Epoch, c.Now())
	assert.Equal(t, c.Now(), c.Now())

	c.Advance(time.Second)
	assert.Equal(t, Epoch.Add(time.Second), c.Now())
}

func TestFrozenClock_DrivesContext(t *testing.T) {
	clock := NewFrozenClock()
	c, err := engine.NewContext(nil,
		engine.WithNow(clock.Now),
		engine.WithRunIDGenerator(NewFixedRunIDGenerator("")),
		engine.WithSequencer(NewDeterministicClock()),
	)
	assert.NoError(t, err)
	assert.Equal(t, DefaultRunID, c.RunID())
}
