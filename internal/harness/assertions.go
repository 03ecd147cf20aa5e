package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s\n", event.Seq, event.Kind, event.Unit, event.Outcome)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion against trace and returns one
// message per failure.
func EvaluateAssertions(trace []TraceEvent, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(trace, a)
		case AssertTraceCount:
			err = assertTraceCount(trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

// matches reports whether event satisfies the optional filters of a.
// Params use subset semantics.
func matches(event TraceEvent, a Assertion) bool {
	if event.Unit != a.Unit {
		return false
	}
	if a.Kind != "" && event.Kind != a.Kind {
		return false
	}
	if a.Outcome != "" && event.Outcome != a.Outcome {
		return false
	}
	for k, v := range a.Params {
		if event.Params[k] != v {
			return false
		}
	}
	return true
}

func describe(a Assertion) string {
	var parts []string
	if a.Kind != "" {
		parts = append(parts, a.Kind)
	}
	parts = append(parts, a.Unit)
	if a.Outcome != "" {
		parts = append(parts, "outcome "+a.Outcome)
	}
	if len(a.Params) > 0 {
		parts = append(parts, fmt.Sprintf("params %v", a.Params))
	}
	return strings.Join(parts, " ")
}

// assertTraceContains checks that at least one record matches.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if matches(event, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describe(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the units first appear in the given
// order. Other records may appear in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	first := make(map[string]int)
	for i, event := range trace {
		if _, ok := first[event.Unit]; !ok {
			first[event.Unit] = i
		}
	}

	prev := -1
	for _, unit := range a.Units {
		pos, ok := first[unit]
		if !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("units in order %v", a.Units),
				Actual:   fmt.Sprintf("%s not found in trace", unit),
				Trace:    trace,
			}
		}
		if pos < prev {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("units in order %v", a.Units),
				Actual:   fmt.Sprintf("%s appears before its predecessor", unit),
				Trace:    trace,
			}
		}
		prev = pos
	}
	return nil
}

// assertTraceCount checks the number of records for a unit.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if matches(event, a) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d records for %s", a.Count, describe(a)),
			Actual:   fmt.Sprintf("%d records", count),
			Trace:    trace,
		}
	}
	return nil
}
