// Package engine runs rules and rule sets against a scoped binding store.
//
// Units (conditions and actions) declare parameter signatures; before a unit
// runs, the Context's resolver fills its arguments from the bindings. A unit
// is never invoked with a partial argument list.
//
// EXECUTION MODEL:
//
// Rule: one condition and triggered actions. The condition ends in PASS,
// FAIL or ERROR, and actions fire by trigger (ON_PASS, ON_FAIL, ON_ANY,
// ON_PASS_OR_FAIL, ON_ERROR) in ascending order.
//
// RuleSet: pre-condition, pre-action, members with a stop check after each,
// error condition for recovery, post action.
//
// Context: owns the bindings for one run and carries the resolver, script
// evaluators, registry lookup for dynamic invocation, logger, audit sink and
// logical clock. Every unit evaluation emits one audit.Record stamped with
// the run ID and the next clock value.
//
// CONCURRENCY:
//
// Rules and rule sets are immutable and may be shared. A Context and its
// bindings belong to one goroutine; Context.Child clones the bindings for
// parallel sub-executions.
package engine
