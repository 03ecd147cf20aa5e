// Package bind implements the scoped binding store shared by conditions and
// actions during a rule execution.
//
// A Binding is a named, typed, mutable value cell. Bindings live in scopes,
// and scopes form a stack: scope 0 is the root, each later scope is nested in
// the previous one.
//
// LOOKUP RULES:
//
//   - Name lookup walks from the innermost scope outward and returns the
//     first match. Shadowing a name in a nested scope is allowed.
//   - Type lookup (BindingsByType) returns every visible binding whose
//     declared type is assignable to the requested type, innermost scope
//     first and declaration order inside a scope. Shadowed bindings are not
//     visible.
//   - A name may be bound only once per scope.
//
// Reserved names (BindingsName, RuleContextName, ErrorName) are owned by the
// execution engine and cannot be bound through Bind.
//
// Thread-safety: ScopedBindings is NOT safe for concurrent mutation. One
// execution owns a store for the duration of a run. Executions that must run
// in parallel take a Clone.
package bind
