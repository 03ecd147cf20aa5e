package engine

import (
	"cmp"
	"errors"
	"slices"

	"github.com/algox/ruling-class-sub004/internal/audit"
	"github.com/algox/ruling-class-sub004/internal/match"
)

// Runnable is a rule or rule set.
type Runnable interface {
	Name() string
	Run(c *Context) (Outcome, error)
}

// TriggeredAction is an action attached to a rule.
type TriggeredAction struct {
	Action  Action
	Trigger Trigger
	Order   int
}

// Rule is one condition plus triggered actions. Rules are immutable once
// built and safe to run concurrently against different contexts.
//
// Run semantics:
//   - The condition is resolved and evaluated. A resolution error
//     propagates unchanged; the rule does not enter any state.
//   - Otherwise the condition ends in Pass, Fail, or Error (its body
//     returned an error or panicked).
//   - Actions whose trigger fires for that state run in ascending order,
//     declaration order breaking ties. In the Error state the error is
//     bound as "error" while they run.
//   - An Error state with no ON_ERROR action propagates the error.
//   - The first failing action stops the rule and its error propagates.
type Rule struct {
	name        string
	description string
	condition   Condition
	actions     []TriggeredAction
	hasOnError  bool
}

var _ Runnable = (*Rule)(nil)

// Name returns the rule name.
func (r *Rule) Name() string { return r.name }

// Description returns the optional description.
func (r *Rule) Description() string { return r.description }

// Condition returns the rule's condition.
func (r *Rule) Condition() Condition { return r.condition }

// Actions returns the actions in firing order.
func (r *Rule) Actions() []TriggeredAction { return slices.Clone(r.actions) }

// Run executes the rule against c.
func (r *Rule) Run(c *Context) (Outcome, error) {
	start := c.now()
	outcome, err := r.execute(c)
	c.emit(audit.KindRule, r.name, string(outcome), nil, err, start)
	c.logger.Debug("rule evaluated",
		"rule", r.name,
		"run_id", c.runID,
		"outcome", outcome,
		"error", err)
	return outcome, err
}

func (r *Rule) execute(c *Context) (Outcome, error) {
	passed, cerr := r.condition.test(c)
	if resolutionFailure(cerr) {
		return Error, cerr
	}

	state := Fail
	switch {
	case cerr != nil:
		state = Error
	case passed:
		state = Pass
	}

	fire := func() error {
		for _, ta := range r.actions {
			if !ta.Trigger.Fires(state) {
				continue
			}
			if err := ta.Action.run(c); err != nil {
				return err
			}
		}
		return nil
	}

	if state != Error {
		return state, fire()
	}

	if err := c.withError(cerr, fire); err != nil {
		return Error, err
	}
	if !r.hasOnError {
		return Error, cerr
	}
	c.logger.Info("rule error handled by ON_ERROR actions",
		"rule", r.name,
		"run_id", c.runID,
		"error", cerr)
	return Error, nil
}

// resolutionFailure reports whether the rule's own condition could not be
// resolved. A ResolutionError that a unit body returned arrives wrapped in
// an ExecutionError and counts as a body error.
func resolutionFailure(err error) bool {
	for err != nil {
		switch err.(type) {
		case *match.ResolutionError:
			return true
		case *ExecutionError:
			return false
		}
		err = errors.Unwrap(err)
	}
	return false
}

// And returns a condition holding when both rules' conditions hold.
// Actions are not carried over.
func (r *Rule) And(other *Rule) Condition {
	return And(r.condition, other.condition)
}

// Or returns a condition holding when either rule's condition holds.
func (r *Rule) Or(other *Rule) Condition {
	return Or(r.condition, other.condition)
}

// Negate returns a condition holding when the rule's condition does not.
func (r *Rule) Negate() Condition {
	return Not(r.condition)
}

// RuleBuilder assembles a Rule.
//
// Example:
//
//	rule, err := engine.NewRule("bigSpender").
//		Given(engine.NewCondition("over10", over10, match.Param[int]("y"))).
//		Then(engine.NewAction("reward", reward, match.Param[int]("z"))).
//		Build()
type RuleBuilder struct {
	name        string
	description string
	condition   Condition
	actions     []TriggeredAction
	conditions  int
}

// NewRule starts a rule named name.
func NewRule(name string) *RuleBuilder {
	return &RuleBuilder{name: name}
}

// Name renames the rule.
func (b *RuleBuilder) Name(name string) *RuleBuilder {
	b.name = name
	return b
}

// Description sets the description.
func (b *RuleBuilder) Description(d string) *RuleBuilder {
	b.description = d
	return b
}

// Given sets the condition. A rule has exactly one; calling Given twice
// makes Build fail.
func (b *RuleBuilder) Given(cond Condition) *RuleBuilder {
	b.condition = cond
	b.conditions++
	return b
}

// Then adds an ON_PASS action.
func (b *RuleBuilder) Then(a Action) *RuleBuilder {
	return b.Action(a, OnPass, 0)
}

// Otherwise adds an ON_FAIL action.
func (b *RuleBuilder) Otherwise(a Action) *RuleBuilder {
	return b.Action(a, OnFail, 0)
}

// OnError adds an ON_ERROR action.
func (b *RuleBuilder) OnError(a Action) *RuleBuilder {
	return b.Action(a, OnError, 0)
}

// Always adds an ON_ANY action.
func (b *RuleBuilder) Always(a Action) *RuleBuilder {
	return b.Action(a, OnAny, 0)
}

// Action attaches action a with an explicit trigger and order. Lower orders fire
// first.
func (b *RuleBuilder) Action(a Action, trigger Trigger, order int) *RuleBuilder {
	b.actions = append(b.actions, TriggeredAction{Action: a, Trigger: trigger, Order: order})
	return b
}

// Build validates and freezes the rule.
func (b *RuleBuilder) Build() (*Rule, error) {
	if b.name == "" {
		return nil, invalidDefinition("", "rule name is required")
	}
	if b.condition == nil {
		return nil, invalidDefinition(b.name, "rule has no condition")
	}
	if b.conditions > 1 {
		return nil, invalidDefinition(b.name, "rule has %d conditions, want exactly one", b.conditions)
	}
	if err := b.condition.validate(); err != nil {
		return nil, err
	}

	actions := slices.Clone(b.actions)
	hasOnError := false
	for i, ta := range actions {
		if ta.Action == nil {
			return nil, invalidDefinition(b.name, "action %d is nil", i)
		}
		if err := ta.Action.validate(); err != nil {
			return nil, err
		}
		switch ta.Trigger {
		case OnPass, OnFail, OnAny, OnPassOrFail:
		case OnError:
			hasOnError = true
		default:
			return nil, invalidDefinition(b.name, "action %s has unknown trigger %q", ta.Action.Name(), ta.Trigger)
		}
	}
	slices.SortStableFunc(actions, func(x, y TriggeredAction) int {
		return cmp.Compare(x.Order, y.Order)
	})

	return &Rule{
		name:        b.name,
		description: b.description,
		condition:   b.condition,
		actions:     actions,
		hasOnError:  hasOnError,
	}, nil
}

// MustBuild is like Build but panics on error. Use for statically known
// definitions.
func (b *RuleBuilder) MustBuild() *Rule {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}
