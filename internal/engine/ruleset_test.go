package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algox/ruling-class-sub004/internal/bind"
	"github.com/algox/ruling-class-sub004/internal/match"
)

func passingRule(cs *calls, name string) *Rule {
	return NewRule(name).Given(True()).Then(cs.action(name)).MustBuild()
}

func TestRuleSet_RunsRulesInOrder(t *testing.T) {
	var cs calls
	rs := NewRuleSet("rs").
		PreAction(cs.action("pre")).
		Rules(passingRule(&cs, "r1"), passingRule(&cs, "r2"), passingRule(&cs, "r3")).
		PostAction(cs.action("post")).
		MustBuild()

	c, _ := newTestContext(t, nil)
	outcome, err := c.Run(rs)
	require.NoError(t, err)
	assert.Equal(t, Pass, outcome)
	assert.Equal(t, []string{"pre", "r1", "r2", "r3", "post"}, []string(cs))
}

func TestRuleSet_StopCondition(t *testing.T) {
	var cs calls
	counter := 0
	count := func(name string) *Rule {
		return NewRule(name).Given(True()).Then(NewAction(name, func(Args) error {
			counter++
			cs = append(cs, name)
			return nil
		})).MustBuild()
	}
	stop := NewCondition("afterTwo", func(Args) (bool, error) { return counter >= 2, nil })

	rs := NewRuleSet("rs").
		Rules(count("r1"), count("r2"), count("r3")).
		StopCondition(stop).
		PostAction(cs.action("post")).
		MustBuild()

	c, _ := newTestContext(t, nil)
	outcome, err := c.Run(rs)
	require.NoError(t, err)
	assert.Equal(t, Stopped, outcome)
	assert.Equal(t, []string{"r1", "r2", "post"}, []string(cs), "r3 never executes")
}

func TestRuleSet_PreConditionSkips(t *testing.T) {
	var cs calls
	rs := NewRuleSet("rs").
		PreCondition(greaterThan10()).
		PreAction(cs.action("pre")).
		Rule(passingRule(&cs, "r1")).
		PostAction(cs.action("post")).
		MustBuild()

	c, _ := newTestContext(t, map[string]any{"y": 3})
	outcome, err := c.Run(rs)
	require.NoError(t, err)
	assert.Equal(t, Skipped, outcome)
	assert.Empty(t, cs)

	c, _ = newTestContext(t, map[string]any{"y": 30})
	outcome, err = c.Run(rs)
	require.NoError(t, err)
	assert.Equal(t, Pass, outcome)
	assert.Equal(t, []string{"pre", "r1", "post"}, []string(cs))
}

func TestRuleSet_ErrorPath(t *testing.T) {
	cause := errors.New("action exploded")
	build := func(cs *calls, errCond Condition) *RuleSet {
		failing := NewRule("r2").Given(True()).Then(NewAction("explode", func(Args) error {
			return cause
		})).MustBuild()

		b := NewRuleSet("rs").
			Rules(passingRule(cs, "r1"), failing, passingRule(cs, "r3")).
			PostAction(cs.action("post"))
		if errCond != nil {
			b.ErrorCondition(errCond)
		}
		return b.MustBuild()
	}

	t.Run("error condition true recovers", func(t *testing.T) {
		var cs calls
		c, _ := newTestContext(t, nil)
		outcome, err := c.Run(build(&cs, True()))
		require.NoError(t, err)
		assert.Equal(t, Recovered, outcome)
		assert.Equal(t, []string{"r1", "post"}, []string(cs), "r3 skipped, post still runs")
	})

	t.Run("no error condition propagates", func(t *testing.T) {
		var cs calls
		c, _ := newTestContext(t, nil)
		outcome, err := c.Run(build(&cs, nil))
		require.Error(t, err)
		assert.Equal(t, Error, outcome)
		assert.ErrorIs(t, err, cause)
		assert.True(t, IsRuleExecutionError(err))
		assert.Equal(t, []string{"r1"}, []string(cs), "post does not run")
	})

	t.Run("error condition false propagates", func(t *testing.T) {
		var cs calls
		c, _ := newTestContext(t, nil)
		_, err := c.Run(build(&cs, False()))
		require.ErrorIs(t, err, cause)
		assert.Equal(t, []string{"r1"}, []string(cs))
	})

	t.Run("error condition sees the error", func(t *testing.T) {
		var cs calls
		var seen error
		inspect := NewCondition("isExplosion", func(a Args) (bool, error) {
			seen = Arg[error](a, 0)
			return errors.Is(seen, cause), nil
		}, match.Param[error]("error"))

		c, _ := newTestContext(t, nil)
		outcome, err := c.Run(build(&cs, inspect))
		require.NoError(t, err)
		assert.Equal(t, Recovered, outcome)
		assert.ErrorIs(t, seen, cause)
		assert.False(t, c.Bindings().Contains(bind.ErrorName))
	})

	t.Run("error condition failing joins errors", func(t *testing.T) {
		var cs calls
		second := errors.New("inspection failed")
		broken := NewCondition("broken", func(Args) (bool, error) { return false, second })

		c, _ := newTestContext(t, nil)
		_, err := c.Run(build(&cs, broken))
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.ErrorIs(t, err, second)
	})
}

func TestRuleSet_RecoversResolutionErrors(t *testing.T) {
	var cs calls
	rs := NewRuleSet("rs").
		Rule(NewRule("needsY").Given(greaterThan10()).MustBuild()).
		ErrorCondition(NewCondition("unresolved", func(a Args) (bool, error) {
			return match.IsUnresolvedError(Arg[error](a, 0)), nil
		}, match.Param[error]("error"))).
		PostAction(cs.action("post")).
		MustBuild()

	c, _ := newTestContext(t, nil)
	outcome, err := c.Run(rs)
	require.NoError(t, err)
	assert.Equal(t, Recovered, outcome)
	assert.Equal(t, []string{"post"}, []string(cs))
}

func TestRuleSet_NestedSharesBindings(t *testing.T) {
	setX := NewRule("setX").Given(True()).Then(BindAction("x", 42)).MustBuild()
	inner := NewRuleSet("inner").Rule(setX).MustBuild()

	var got int
	readX := NewRule("readX").Given(True()).Then(NewAction("read", func(a Args) error {
		got = Arg[int](a, 0)
		return nil
	}, match.Param[int]("x"))).MustBuild()

	outer := NewRuleSet("outer").Rules(inner, readX).MustBuild()

	c, _ := newTestContext(t, nil)
	outcome, err := c.Run(outer)
	require.NoError(t, err)
	assert.Equal(t, Pass, outcome)
	assert.Equal(t, 42, got)
	assert.True(t, c.Bindings().Contains("x"), "rule sets add no scope")
}

func TestRuleSet_OutcomeOfHandledRuleErrorDoesNotStopSet(t *testing.T) {
	var cs calls
	handled := NewRule("handled").
		Given(NewCondition("bad", func(Args) (bool, error) { return false, errors.New("x") })).
		OnError(cs.action("cleanup")).
		MustBuild()

	rs := NewRuleSet("rs").Rules(handled, passingRule(&cs, "next")).MustBuild()
	c, _ := newTestContext(t, nil)
	outcome, err := c.Run(rs)
	require.NoError(t, err)
	assert.Equal(t, Pass, outcome)
	assert.Equal(t, []string{"cleanup", "next"}, []string(cs))
}

func TestRuleSetBuilder_Validation(t *testing.T) {
	r := NewRule("r").Given(True()).MustBuild()

	tests := []struct {
		name    string
		builder *RuleSetBuilder
	}{
		{"no name", NewRuleSet("")},
		{"nil member", NewRuleSet("rs").Rule(nil)},
		{"duplicate member", NewRuleSet("rs").Rules(r, r)},
		{"self named member", NewRuleSet("r").Rule(r)},
		{"bad pre-condition", NewRuleSet("rs").PreCondition(NewCondition("c", nil))},
		{"bad post action", NewRuleSet("rs").PostAction(NewAction("a", nil))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			require.Error(t, err)
			assert.True(t, IsInvalidDefinitionError(err))
		})
	}
}

func TestRuleSet_BuilderIsolation(t *testing.T) {
	r1 := NewRule("r1").Given(True()).MustBuild()
	r2 := NewRule("r2").Given(True()).MustBuild()

	b := NewRuleSet("rs").Rule(r1)
	first := b.MustBuild()
	b.Rule(r2)
	second := b.MustBuild()

	assert.Len(t, first.Members(), 1)
	assert.Len(t, second.Members(), 2)
}
