package engine

import (
	"fmt"
	"strings"
)

// Trigger decides when an action fires relative to its rule's condition.
type Trigger string

const (
	OnPass       Trigger = "ON_PASS"
	OnFail       Trigger = "ON_FAIL"
	OnAny        Trigger = "ON_ANY"
	OnPassOrFail Trigger = "ON_PASS_OR_FAIL"
	OnError      Trigger = "ON_ERROR"
)

// ParseTrigger accepts the constant names in any case, with or without
// the ON_ prefix and with dashes for underscores: "on_pass", "pass",
// "pass-or-fail".
func ParseTrigger(s string) (Trigger, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	if !strings.HasPrefix(norm, "ON_") {
		norm = "ON_" + norm
	}
	switch t := Trigger(norm); t {
	case OnPass, OnFail, OnAny, OnPassOrFail, OnError:
		return t, nil
	}
	return "", fmt.Errorf("unknown trigger %q", s)
}

// Fires reports whether an action with this trigger runs for a condition
// that ended in state (Pass, Fail or Error).
func (t Trigger) Fires(state Outcome) bool {
	switch t {
	case OnPass:
		return state == Pass
	case OnFail:
		return state == Fail
	case OnAny:
		return true
	case OnPassOrFail:
		return state == Pass || state == Fail
	case OnError:
		return state == Error
	}
	return false
}

// Outcome is the result of running a rule or rule set.
type Outcome string

const (
	// Pass: the rule's condition held, or the rule set ran to completion.
	Pass Outcome = "PASS"

	// Fail: the rule's condition did not hold.
	Fail Outcome = "FAIL"

	// Error: the rule's condition raised an error. Returned with a nil
	// error when the rule's ON_ERROR actions handled it.
	Error Outcome = "ERROR"

	// Skipped: the rule set's pre-condition did not hold.
	Skipped Outcome = "SKIPPED"

	// Stopped: the rule set's stop condition held after one of its rules.
	Stopped Outcome = "STOPPED"

	// Recovered: the rule set's error condition accepted an error.
	Recovered Outcome = "RECOVERED"
)
