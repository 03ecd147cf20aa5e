package engine

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algox/ruling-class-sub004/internal/audit"
	"github.com/algox/ruling-class-sub004/internal/bind"
	"github.com/algox/ruling-class-sub004/internal/match"
	"github.com/algox/ruling-class-sub004/internal/script"
)

func TestNewContext_BindsItself(t *testing.T) {
	c, _ := newTestContext(t, nil)

	v, err := c.Bindings().GetValue(bind.RuleContextName)
	require.NoError(t, err)
	assert.Same(t, c, v)
	assert.Equal(t, "run-test", c.RunID())

	// A second context over the same store takes the binding over.
	c2, err := NewContext(c.Bindings())
	require.NoError(t, err)
	v, _ = c2.Bindings().GetValue(bind.RuleContextName)
	assert.Same(t, c2, v)
}

func TestNewContext_Defaults(t *testing.T) {
	c, err := NewContext(nil)
	require.NoError(t, err)

	parsed, err := uuid.Parse(c.RunID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.True(t, c.Bindings().Contains(bind.BindingsName))
	assert.NotNil(t, c.Resolver())
	assert.NotNil(t, c.Logger())
}

func TestContext_ActionReceivesContext(t *testing.T) {
	var got *Context
	action := NewAction("grab", func(a Args) error {
		got = Arg[*Context](a, 0)
		return nil
	}, match.Param[*Context](bind.RuleContextName))

	c, _ := newTestContext(t, nil)
	require.NoError(t, c.Do(action))
	assert.Same(t, c, got)
}

func TestContext_OptionalAnyIgnoresReserved(t *testing.T) {
	var note any = "unset"
	var ctx *Context
	cond := NewCondition("noted", func(a Args) (bool, error) {
		note = a[0]
		ctx = Arg[*Context](a, 1)
		return true, nil
	}, match.Param[any]("note", match.Optional()), match.Param[*Context]("current"))

	c, _ := newTestContext(t, nil)
	ok, err := c.Test(cond)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, note)
	assert.Same(t, c, ctx)
}

func TestContext_RunByName(t *testing.T) {
	var cs calls
	sub := NewRuleSet("sub").Rule(passingRule(&cs, "subRule")).MustBuild()
	main := NewRule("main").Given(True()).Then(RunRuleSetAction("sub")).MustBuild()

	c, _ := newTestContext(t, nil, WithRegistry(lookupMap{"sub": sub}))
	_, err := c.Run(main)
	require.NoError(t, err)
	assert.Equal(t, []string{"subRule"}, []string(cs))

	_, err = c.RunByName("missing")
	require.Error(t, err)
	assert.True(t, IsUnknownRunnableError(err))

	noRegistry, _ := newTestContext(t, nil)
	_, err = noRegistry.RunByName("sub")
	assert.True(t, IsUnknownRunnableError(err))
}

func TestContext_MaxDepth(t *testing.T) {
	reg := lookupMap{}
	loop := NewRuleSet("loop").
		Rule(NewRule("again").Given(True()).Then(RunRuleSetAction("loop")).MustBuild()).
		MustBuild()
	reg["loop"] = loop

	c, _ := newTestContext(t, nil, WithRegistry(reg), WithMaxDepth(5))
	_, err := c.RunByName("loop")
	require.Error(t, err)
	assert.True(t, IsMaxDepthError(err))
	assert.Equal(t, 0, c.Depth(), "depth unwinds after failure")
}

func TestContext_Child(t *testing.T) {
	c, _ := newTestContext(t, map[string]any{"x": 1})

	child, err := c.Child()
	require.NoError(t, err)
	require.NoError(t, child.Bindings().SetValue("x", 2))

	v, _ := c.Bindings().GetValue("x")
	assert.Equal(t, 1, v)
	self, _ := child.Bindings().GetValue(bind.RuleContextName)
	assert.Same(t, child, self)
	assert.Equal(t, c.RunID(), child.RunID())
}

func TestContext_ChildrenRunInParallel(t *testing.T) {
	rule := NewRule("inc").Given(True()).Then(NewAction("inc", func(a Args) error {
		b := Arg[*bind.ScopedBindings](a, 0)
		return b.SetValue("n", Arg[int](a, 1)+1)
	}, match.Param[*bind.ScopedBindings](bind.BindingsName), match.Param[int]("n"))).MustBuild()

	c, _ := newTestContext(t, map[string]any{"n": 0})

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		child, err := c.Child()
		require.NoError(t, err)
		wg.Add(1)
		go func(i int, child *Context) {
			defer wg.Done()
			_, _ = child.Run(rule)
			v, _ := child.Bindings().GetValue("n")
			results[i] = v.(int)
		}(i, child)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, 1, r)
	}
	v, _ := c.Bindings().GetValue("n")
	assert.Equal(t, 0, v)
}

func TestContext_ScriptUnits(t *testing.T) {
	rule := NewRule("scripted").
		Given(ScriptCondition("over10", script.LangCEL, "y > 10")).
		Then(ScriptAction("double", script.LangExpr, `{"z": y * 2, "label": "big"}`)).
		Otherwise(ScriptAction("flag", script.LangJS, "({label: 'small'})")).
		MustBuild()

	t.Run("pass", func(t *testing.T) {
		c, _ := newTestContext(t, map[string]any{"y": 17, "z": int64(0)})
		outcome, err := c.Run(rule)
		require.NoError(t, err)
		assert.Equal(t, Pass, outcome)

		z, _ := c.Bindings().GetValue("z")
		assert.Equal(t, int64(34), z, "converted to the binding's declared type")
		label, _ := c.Bindings().GetValue("label")
		assert.Equal(t, "big", label)
	})

	t.Run("fail", func(t *testing.T) {
		c, _ := newTestContext(t, map[string]any{"y": 3})
		outcome, err := c.Run(rule)
		require.NoError(t, err)
		assert.Equal(t, Fail, outcome)
		label, _ := c.Bindings().GetValue("label")
		assert.Equal(t, "small", label)
	})
}

func TestContext_ScriptUnavailable(t *testing.T) {
	c, _ := newTestContext(t, nil, WithScripts(script.NewRegistry()))
	_, err := c.Test(ScriptCondition("c", "cel", "true"))
	require.Error(t, err)
	assert.True(t, IsScriptUnavailableError(err))
}

func TestContext_ScriptConditionMustBeBoolean(t *testing.T) {
	c, _ := newTestContext(t, map[string]any{"y": 1})
	_, err := c.Test(ScriptCondition("c", "expr", "y + 1"))
	require.Error(t, err)
	assert.True(t, IsRuleExecutionError(err))
}

func TestContext_ScriptVars(t *testing.T) {
	c, _ := newTestContext(t, map[string]any{"y": 1})
	err := c.withError(assert.AnError, func() error {
		vars := c.ScriptVars()
		assert.Equal(t, map[string]any{"y": 1, "error": assert.AnError.Error()}, vars)
		return nil
	})
	require.NoError(t, err)
}

func TestContext_AuditTrail(t *testing.T) {
	rule := NewRule("bigSpender").
		Given(greaterThan10()).
		Then(NewAction("reward", func(Args) error { return nil }, match.Param[int]("z"))).
		MustBuild()
	rs := NewRuleSet("checkout").Rule(rule).MustBuild()

	c, rec := newTestContext(t, map[string]any{"y": 17, "z": 200})
	_, err := c.Run(rs)
	require.NoError(t, err)

	records := rec.Records()
	assert.Equal(t, []string{
		"condition:over10=pass",
		"action:reward=ok",
		"rule:bigSpender=PASS",
		"ruleset:checkout=PASS",
	}, units(records))

	for i, r := range records {
		assert.Equal(t, int64(i+1), r.Seq)
		assert.Equal(t, "run-test", r.RunID)
		assert.NotEmpty(t, r.ID)
		assert.Zero(t, r.Duration)
	}
	assert.Equal(t, map[string]string{"y": "17"}, records[0].Params)
	assert.Equal(t, map[string]string{"z": "200"}, records[1].Params)
}

func TestContext_AuditRecordsErrorCodes(t *testing.T) {
	rule := NewRule("r").Given(greaterThan10()).MustBuild()
	c, rec := newTestContext(t, nil)
	_, err := c.Run(rule)
	require.Error(t, err)

	conds := rec.Filter(audit.KindCondition)
	require.Len(t, conds, 1)
	assert.Equal(t, "error", conds[0].Outcome)
	assert.Equal(t, string(match.ErrCodeUnresolved), conds[0].Code)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, "", ErrorCode(assert.AnError))
	assert.Equal(t, "UNKNOWN_BINDING", ErrorCode(bind.Create().SetValue("x", 1)))
	assert.Equal(t, "MAX_DEPTH_EXCEEDED", ErrorCode(NewDepthGuard(0).Enter("u", "r")))
}

func TestArg(t *testing.T) {
	args := Args{1, nil, "s"}
	assert.Equal(t, 1, Arg[int](args, 0))
	assert.Nil(t, Arg[error](args, 1))
	assert.Equal(t, "s", Arg[string](args, 2))
	assert.Equal(t, "", Arg[string](args, 9))
	assert.Panics(t, func() { Arg[string](args, 0) })
}

func TestDepthGuard(t *testing.T) {
	g := NewDepthGuard(2)
	require.NoError(t, g.Enter("a", "r"))
	require.NoError(t, g.Enter("b", "r"))
	err := g.Enter("c", "r")
	require.Error(t, err)
	assert.Equal(t, 2, g.Current())
	assert.Equal(t, 2, g.Max())

	g.Leave()
	g.Leave()
	g.Leave()
	assert.Equal(t, 0, g.Current())
}

func TestRunIDGenerators(t *testing.T) {
	gen := NewFixedGenerator("run-1", "run-2")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := UUIDv7Generator{}.Generate()
		require.False(t, seen[id])
		seen[id] = true
	}
}
