package harness

import "github.com/algox/ruling-class-sub004/internal/audit"

// TraceEvent is one audit record as a scenario sees it. Durations and
// record IDs are dropped.
type TraceEvent struct {
	Seq     int64             `json:"seq"`
	Kind    string            `json:"kind"`
	Unit    string            `json:"unit"`
	Outcome string            `json:"outcome"`
	Params  map[string]string `json:"params,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
}

func traceFromRecords(records []audit.Record) []TraceEvent {
	trace := make([]TraceEvent, 0, len(records))
	for _, r := range records {
		trace = append(trace, TraceEvent{
			Seq:     r.Seq,
			Kind:    string(r.Kind),
			Unit:    r.Unit,
			Outcome: r.Outcome,
			Params:  r.Params,
			Error:   r.Error,
			Code:    r.Code,
		})
	}
	return trace
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the expect clause and every assertion held.
	Pass bool `json:"pass"`

	RunID string `json:"run_id"`

	// Outcome is what the rule set returned.
	Outcome string `json:"outcome"`

	// ErrorCode and Error describe the run error, if any.
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`

	// Trace is the audit trail read back from the store, in seq order.
	Trace []TraceEvent `json:"trace"`

	// Bindings are the visible bindings after the run, reserved names
	// excluded.
	Bindings map[string]any `json:"bindings,omitempty"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
