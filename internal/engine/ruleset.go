package engine

import (
	"errors"
	"slices"

	"github.com/algox/ruling-class-sub004/internal/audit"
)

// RuleSet is an ordered pipeline of rules (or nested rule sets) with
// optional guard, stop, error and post hooks. Immutable once built.
//
// Run order, all against the context's one binding store:
//  1. Pre-condition: if it does not hold the run is Skipped and nothing
//     else runs, the post action included.
//  2. Pre-action.
//  3. Each member in order. After each, the stop condition; if it holds
//     the remaining members are skipped and the outcome is Stopped.
//  4. If any step above returned an error and an error condition is set,
//     it is evaluated with the error bound as "error". If it holds the
//     run is Recovered and continues to the post action. Otherwise the
//     error propagates and the post action is skipped.
//  5. Post action.
//
// A rule set adds no scope: bindings declared by its members stay visible
// to later members and to the caller.
type RuleSet struct {
	name           string
	description    string
	preCondition   Condition
	preAction      Action
	members        []Runnable
	stopCondition  Condition
	errorCondition Condition
	postAction     Action
}

var _ Runnable = (*RuleSet)(nil)

// Name returns the rule set name.
func (rs *RuleSet) Name() string { return rs.name }

// Description returns the optional description.
func (rs *RuleSet) Description() string { return rs.description }

// Members returns the rules and nested rule sets in order.
func (rs *RuleSet) Members() []Runnable { return slices.Clone(rs.members) }

// PreCondition returns the guard, or nil.
func (rs *RuleSet) PreCondition() Condition { return rs.preCondition }

// StopCondition returns the per-member stop check, or nil.
func (rs *RuleSet) StopCondition() Condition { return rs.stopCondition }

// ErrorCondition returns the recovery check, or nil.
func (rs *RuleSet) ErrorCondition() Condition { return rs.errorCondition }

// Run executes the rule set against c.
func (rs *RuleSet) Run(c *Context) (Outcome, error) {
	start := c.now()
	outcome, err := rs.execute(c)
	c.emit(audit.KindRuleSet, rs.name, string(outcome), nil, err, start)
	if err != nil {
		c.logger.Error("rule set failed",
			"ruleset", rs.name,
			"run_id", c.runID,
			"error", err)
	} else {
		c.logger.Info("rule set completed",
			"ruleset", rs.name,
			"run_id", c.runID,
			"outcome", outcome)
	}
	return outcome, err
}

func (rs *RuleSet) execute(c *Context) (Outcome, error) {
	outcome, err := rs.body(c)
	if err != nil {
		if outcome, err = rs.recover(c, err); err != nil {
			return Error, err
		}
	}
	if outcome == Skipped {
		return Skipped, nil
	}
	if rs.postAction != nil {
		if err := rs.postAction.run(c); err != nil {
			return Error, err
		}
	}
	return outcome, nil
}

func (rs *RuleSet) body(c *Context) (Outcome, error) {
	if rs.preCondition != nil {
		ok, err := rs.preCondition.test(c)
		if err != nil {
			return Error, err
		}
		if !ok {
			c.logger.Debug("rule set skipped by pre-condition",
				"ruleset", rs.name,
				"run_id", c.runID)
			return Skipped, nil
		}
	}

	if rs.preAction != nil {
		if err := rs.preAction.run(c); err != nil {
			return Error, err
		}
	}

	for i, m := range rs.members {
		if _, err := m.Run(c); err != nil {
			return Error, err
		}
		if rs.stopCondition == nil {
			continue
		}
		stop, err := rs.stopCondition.test(c)
		if err != nil {
			return Error, err
		}
		if stop {
			c.logger.Debug("rule set stopped",
				"ruleset", rs.name,
				"run_id", c.runID,
				"after", m.Name(),
				"skipped", len(rs.members)-i-1)
			return Stopped, nil
		}
	}
	return Pass, nil
}

// recover applies the error condition to cause.
func (rs *RuleSet) recover(c *Context, cause error) (Outcome, error) {
	if rs.errorCondition == nil {
		return Error, cause
	}

	var recovered bool
	err := c.withError(cause, func() error {
		ok, err := rs.errorCondition.test(c)
		recovered = ok
		return err
	})
	if err != nil {
		return Error, errors.Join(cause, err)
	}
	if !recovered {
		return Error, cause
	}

	c.logger.Warn("rule set recovered from error",
		"ruleset", rs.name,
		"run_id", c.runID,
		"error", cause)
	return Recovered, nil
}

// RuleSetBuilder assembles a RuleSet.
//
// Example:
//
//	rs, err := engine.NewRuleSet("checkout").
//		PreCondition(hasCart).
//		Rule(applyDiscount).
//		Rule(applyTax).
//		StopCondition(totalIsZero).
//		PostAction(summarize).
//		Build()
type RuleSetBuilder struct {
	rs RuleSet
}

// NewRuleSet starts a rule set named name.
func NewRuleSet(name string) *RuleSetBuilder {
	return &RuleSetBuilder{rs: RuleSet{name: name}}
}

// Name renames the rule set.
func (b *RuleSetBuilder) Name(name string) *RuleSetBuilder {
	b.rs.name = name
	return b
}

// Description sets the description.
func (b *RuleSetBuilder) Description(d string) *RuleSetBuilder {
	b.rs.description = d
	return b
}

// PreCondition sets the guard.
func (b *RuleSetBuilder) PreCondition(c Condition) *RuleSetBuilder {
	b.rs.preCondition = c
	return b
}

// PreAction sets the action run after the guard and before the members.
func (b *RuleSetBuilder) PreAction(a Action) *RuleSetBuilder {
	b.rs.preAction = a
	return b
}

// Rule appends a rule or nested rule set.
func (b *RuleSetBuilder) Rule(r Runnable) *RuleSetBuilder {
	b.rs.members = append(b.rs.members, r)
	return b
}

// Rules appends several members.
func (b *RuleSetBuilder) Rules(rs ...Runnable) *RuleSetBuilder {
	b.rs.members = append(b.rs.members, rs...)
	return b
}

// StopCondition sets the check run after every member.
func (b *RuleSetBuilder) StopCondition(c Condition) *RuleSetBuilder {
	b.rs.stopCondition = c
	return b
}

// ErrorCondition sets the recovery check.
func (b *RuleSetBuilder) ErrorCondition(c Condition) *RuleSetBuilder {
	b.rs.errorCondition = c
	return b
}

// PostAction sets the action run last.
func (b *RuleSetBuilder) PostAction(a Action) *RuleSetBuilder {
	b.rs.postAction = a
	return b
}

// Build validates and freezes the rule set.
func (b *RuleSetBuilder) Build() (*RuleSet, error) {
	rs := b.rs
	if rs.name == "" {
		return nil, invalidDefinition("", "rule set name is required")
	}

	for _, c := range []Condition{rs.preCondition, rs.stopCondition, rs.errorCondition} {
		if c == nil {
			continue
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
	}
	for _, a := range []Action{rs.preAction, rs.postAction} {
		if a == nil {
			continue
		}
		if err := a.validate(); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(rs.members))
	for i, m := range rs.members {
		if m == nil {
			return nil, invalidDefinition(rs.name, "member %d is nil", i)
		}
		if m.Name() == rs.name {
			return nil, invalidDefinition(rs.name, "rule set cannot contain a member with its own name")
		}
		if seen[m.Name()] {
			return nil, invalidDefinition(rs.name, "member %q appears twice", m.Name())
		}
		seen[m.Name()] = true
	}

	rs.members = slices.Clone(rs.members)
	return &rs, nil
}

// MustBuild is like Build but panics on error.
func (b *RuleSetBuilder) MustBuild() *RuleSet {
	rs, err := b.Build()
	if err != nil {
		panic(err)
	}
	return rs
}
