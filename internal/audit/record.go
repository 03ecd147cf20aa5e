// Package audit records what a rule run did.
//
// A Record owns copies of the identifying data it needs (unit name,
// parameter values rendered as strings, error text); it never holds a
// reference to a rule, rule set or binding, so definitions can be reused
// and bindings discarded while records are kept.
package audit

import (
	"fmt"
	"time"
)

// Kind is the type of unit a record describes.
type Kind string

const (
	KindCondition Kind = "condition"
	KindAction    Kind = "action"
	KindRule      Kind = "rule"
	KindRuleSet   Kind = "ruleset"
)

// Record is one evaluated unit within a run.
type Record struct {
	// ID is content-addressed; see RecordID.
	ID string `json:"id"`

	RunID string `json:"run_id"`

	// Seq orders records within a run.
	Seq int64 `json:"seq"`

	Kind Kind   `json:"kind"`
	Unit string `json:"unit"`

	// Outcome is the unit result: pass/fail for conditions, ok/error for
	// actions, the final outcome for rules and rule sets.
	Outcome string `json:"outcome"`

	// Params are the resolved parameter values rendered with %v.
	Params map[string]string `json:"params,omitempty"`

	Error string `json:"error,omitempty"`

	// Code is the typed error code (UNRESOLVED_PARAMETER, RULE_EXECUTION, ...)
	// when Error is set.
	Code string `json:"code,omitempty"`

	// Duration is excluded from the ID.
	Duration time.Duration `json:"duration"`
}

// Sink receives records as units complete.
type Sink interface {
	Emit(rec Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Record)

// Emit implements Sink.
func (f SinkFunc) Emit(rec Record) { f(rec) }

// Discard drops every record.
var Discard Sink = SinkFunc(func(Record) {})

// FormatParams renders parameter values as owned strings.
func FormatParams(names []string, values []any) map[string]string {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(values) {
			out[name] = fmt.Sprintf("%v", values[i])
		}
	}
	return out
}

// Finalize fills in the record ID. Records that cannot be canonicalized
// keep an empty ID.
func (r Record) Finalize() Record {
	if id, err := RecordID(r); err == nil {
		r.ID = id
	}
	return r
}
