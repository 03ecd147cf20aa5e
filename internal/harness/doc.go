// Package harness runs rule-set scenarios as executable contract tests.
//
// A scenario loads definition files, binds initial values, runs one rule
// set through the engine with a fixed run ID and frozen clock, and checks
// the outcome, the final bindings and the audit trace. Audit records are
// written to an in-memory SQLite store and read back, so the trace a
// scenario sees is the one the store would persist.
//
// # Scenario Format
//
//	name: big_spender
//	description: "Orders over 100 earn a discount"
//	definitions:
//	  - ../definitions/checkout.yaml
//	ruleset: checkout
//	run_id: run-big-spender
//	bindings: { total: 150, years: 3 }
//	expect:
//	  outcome: PASS
//	  bindings: { discount: 50 }
//	assertions:
//	  - type: trace_contains
//	    kind: rule
//	    unit: bigSpender
//	    outcome: PASS
//	  - type: trace_order
//	    units: [bigSpender, loyal]
//	  - type: trace_count
//	    unit: bonus
//	    count: 1
//
// Definition paths are relative to the scenario file.
//
// # Assertion Types
//
//   - trace_contains: a record with the unit (and kind, outcome, params when given) exists
//   - trace_order: the units first appear in the given order
//   - trace_count: the unit appears exactly N times
//
// # Golden Traces
//
// RunWithGolden compares the trace against testdata/golden/<name>.golden.
// Durations are left out so traces are byte-stable. Regenerate with:
//
//	go test ./internal/harness -update
package harness
