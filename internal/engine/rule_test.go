package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algox/ruling-class-sub004/internal/bind"
	"github.com/algox/ruling-class-sub004/internal/match"
)

func TestRule_FiresOnPassOnly(t *testing.T) {
	var got []int
	reward := NewAction("reward", func(a Args) error {
		got = append(got, Arg[int](a, 0))
		return nil
	}, match.Param[int]("z"))

	rule, err := NewRule("bigSpender").Given(greaterThan10()).Then(reward).Build()
	require.NoError(t, err)

	t.Run("condition holds", func(t *testing.T) {
		got = nil
		c, _ := newTestContext(t, map[string]any{"y": 17, "z": 200})
		outcome, err := c.Run(rule)
		require.NoError(t, err)
		assert.Equal(t, Pass, outcome)
		assert.Equal(t, []int{200}, got)
	})

	t.Run("condition fails", func(t *testing.T) {
		got = nil
		c, _ := newTestContext(t, map[string]any{"y": 5})
		outcome, err := c.Run(rule)
		require.NoError(t, err)
		assert.Equal(t, Fail, outcome)
		assert.Empty(t, got, "action must not run and z need not be bound")
	})
}

func TestRule_TriggerMatrix(t *testing.T) {
	boom := NewCondition("boom", func(Args) (bool, error) {
		return false, errors.New("boom")
	})

	tests := []struct {
		name  string
		given Condition
		want  []string
	}{
		{"pass", True(), []string{"onPass", "onAny", "onPassOrFail"}},
		{"fail", False(), []string{"onFail", "onAny", "onPassOrFail"}},
		{"error", boom, []string{"onAny", "onError"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cs calls
			rule := NewRule("matrix").
				Given(tt.given).
				Then(cs.action("onPass")).
				Otherwise(cs.action("onFail")).
				Always(cs.action("onAny")).
				Action(cs.action("onPassOrFail"), OnPassOrFail, 0).
				OnError(cs.action("onError")).
				MustBuild()

			c, _ := newTestContext(t, nil)
			_, err := c.Run(rule)
			require.NoError(t, err)
			assert.Equal(t, tt.want, []string(cs))
		})
	}
}

func TestRule_ActionOrder(t *testing.T) {
	var cs calls
	rule := NewRule("ordered").
		Given(True()).
		Action(cs.action("third"), OnPass, 5).
		Action(cs.action("first"), OnPass, -1).
		Action(cs.action("second-a"), OnAny, 2).
		Action(cs.action("second-b"), OnPass, 2).
		MustBuild()

	c, _ := newTestContext(t, nil)
	_, err := c.Run(rule)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second-a", "second-b", "third"}, []string(cs))

	names := make([]string, 0, 4)
	for _, ta := range rule.Actions() {
		names = append(names, ta.Action.Name())
	}
	assert.Equal(t, []string{"first", "second-a", "second-b", "third"}, names)
}

func TestRule_ConditionErrorWithoutHandlerPropagates(t *testing.T) {
	cause := errors.New("db down")
	rule := NewRule("r").
		Given(NewCondition("lookup", func(Args) (bool, error) { return false, cause })).
		MustBuild()

	c, _ := newTestContext(t, nil)
	outcome, err := c.Run(rule)
	require.Error(t, err)
	assert.Equal(t, Error, outcome)
	assert.True(t, IsRuleExecutionError(err))
	assert.ErrorIs(t, err, cause)
}

func TestRule_OnErrorSeesErrorBinding(t *testing.T) {
	var seen string
	handler := NewAction("log", func(a Args) error {
		seen = Arg[error](a, 0).Error()
		return nil
	}, match.Param[error]("error"))

	rule := NewRule("r").
		Given(NewCondition("explode", func(Args) (bool, error) { panic("kaboom") })).
		OnError(handler).
		MustBuild()

	c, _ := newTestContext(t, nil)
	outcome, err := c.Run(rule)
	require.NoError(t, err, "ON_ERROR action handles the error")
	assert.Equal(t, Error, outcome)
	assert.Contains(t, seen, "kaboom")
	assert.False(t, c.Bindings().Contains(bind.ErrorName), "error scope removed after the rule")
}

func TestRule_ResolutionErrorPropagatesWithoutActions(t *testing.T) {
	var cs calls
	rule := NewRule("r").
		Given(greaterThan10()).
		Always(cs.action("any")).
		OnError(cs.action("err")).
		MustBuild()

	c, _ := newTestContext(t, nil)
	_, err := c.Run(rule)
	require.Error(t, err)
	assert.True(t, match.IsUnresolvedError(err))
	assert.Empty(t, cs, "no action fires when the condition could not be resolved")
}

func TestRule_NestedResolutionErrorIsBodyError(t *testing.T) {
	var cs calls
	nested := NewCondition("delegate", func(a Args) (bool, error) {
		return Arg[*Context](a, 0).Test(greaterThan10())
	}, match.Param[*Context](bind.RuleContextName))

	rule := NewRule("r").
		Given(nested).
		OnError(cs.action("handled")).
		MustBuild()

	c, _ := newTestContext(t, nil)
	outcome, err := c.Run(rule)
	require.NoError(t, err, "ON_ERROR action handles the body error")
	assert.Equal(t, Error, outcome)
	assert.Equal(t, []string{"handled"}, []string(cs))
}

func TestResolutionFailure(t *testing.T) {
	re := &match.ResolutionError{Code: match.ErrCodeUnresolved}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"direct", re, true},
		{"wrapped", fmt.Errorf("resolve: %w", re), true},
		{"inside body error", &ExecutionError{Code: ErrCodeRuleExecution, Err: re}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolutionFailure(tt.err))
		})
	}
}

func TestRule_ActionFailureStopsRemainingActions(t *testing.T) {
	var cs calls
	failing := NewAction("fail", func(Args) error { return errors.New("nope") })
	rule := NewRule("r").
		Given(True()).
		Action(cs.action("before"), OnPass, 0).
		Action(failing, OnPass, 1).
		Action(cs.action("after"), OnPass, 2).
		MustBuild()

	c, _ := newTestContext(t, nil)
	_, err := c.Run(rule)
	require.Error(t, err)
	assert.True(t, IsRuleExecutionError(err))
	assert.Equal(t, []string{"before"}, []string(cs))
}

func TestRule_ActionResolutionFailsBeforeInvocation(t *testing.T) {
	invoked := false
	action := NewAction("needsTwo", func(Args) error {
		invoked = true
		return nil
	}, match.Param[int]("y"), match.Param[string]("missing"))

	rule := NewRule("r").Given(True()).Then(action).MustBuild()
	c, _ := newTestContext(t, map[string]any{"y": 1})
	_, err := c.Run(rule)
	require.Error(t, err)
	assert.True(t, match.IsUnresolvedError(err))
	assert.False(t, invoked)
}

func TestRule_Composition(t *testing.T) {
	var cs calls
	ruleA := NewRule("a").Given(cs.condition("condA", false)).MustBuild()
	ruleB := NewRule("b").Given(cs.condition("condB", true)).MustBuild()

	c, _ := newTestContext(t, nil)

	t.Run("and short-circuits", func(t *testing.T) {
		cs = nil
		ok, err := c.Test(ruleA.And(ruleB))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, []string{"condA"}, []string(cs))
	})

	t.Run("and evaluates both when first holds", func(t *testing.T) {
		cs = nil
		ok, err := c.Test(ruleB.And(ruleB))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"condB", "condB"}, []string(cs))
	})

	t.Run("or short-circuits", func(t *testing.T) {
		cs = nil
		ok, err := c.Test(ruleB.Or(ruleA))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"condB"}, []string(cs))
	})

	t.Run("or falls through", func(t *testing.T) {
		cs = nil
		ok, err := c.Test(ruleA.Or(ruleB))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"condA", "condB"}, []string(cs))
	})

	t.Run("negate", func(t *testing.T) {
		ok, err := c.Test(ruleA.Negate())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "NOT(condA)", ruleA.Negate().Name())
	})

	t.Run("composed conditions build rules", func(t *testing.T) {
		rule := NewRule("both").Given(ruleA.And(ruleB)).MustBuild()
		outcome, err := c.Run(rule)
		require.NoError(t, err)
		assert.Equal(t, Fail, outcome)
		assert.Equal(t, "(condA AND condB)", rule.Condition().Name())
	})
}

func TestRule_CompositionErrorStops(t *testing.T) {
	var cs calls
	boom := NewCondition("boom", func(Args) (bool, error) { return false, errors.New("x") })
	c, _ := newTestContext(t, nil)

	ok, err := c.Test(Or(boom, cs.condition("never", true)))
	require.Error(t, err)
	assert.False(t, ok)
	assert.Empty(t, cs)
}

func TestRuleBuilder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		builder *RuleBuilder
	}{
		{"no name", NewRule("").Given(True())},
		{"no condition", NewRule("r")},
		{"two conditions", NewRule("r").Given(True()).Given(False())},
		{"nil action", NewRule("r").Given(True()).Then(nil)},
		{"bad trigger", NewRule("r").Given(True()).Action(NewAction("a", func(Args) error { return nil }), Trigger("ON_MAYBE"), 0)},
		{"nil function", NewRule("r").Given(NewCondition("c", nil))},
		{"duplicate parameter", NewRule("r").Given(NewCondition("c", func(Args) (bool, error) { return true, nil },
			match.Param[int]("y"), match.Param[int]("y")))},
		{"empty script", NewRule("r").Given(ScriptCondition("c", "cel", "  "))},
		{"empty composite", NewRule("r").Given(And())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			require.Error(t, err)
			assert.True(t, IsInvalidDefinitionError(err))
		})
	}

	assert.Panics(t, func() { NewRule("").MustBuild() })
}

func TestRule_ReusableAcrossContexts(t *testing.T) {
	rule := NewRule("r").Given(greaterThan10()).MustBuild()

	for y, want := range map[int]Outcome{5: Fail, 50: Pass} {
		c, _ := newTestContext(t, map[string]any{"y": y})
		got, err := c.Run(rule)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseTrigger(t *testing.T) {
	for in, want := range map[string]Trigger{
		"ON_PASS":      OnPass,
		"on_fail":      OnFail,
		"any":          OnAny,
		"pass-or-fail": OnPassOrFail,
		" error ":      OnError,
	} {
		got, err := ParseTrigger(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseTrigger("sometimes")
	assert.Error(t, err)
}
