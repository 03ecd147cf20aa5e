// Package match resolves declared parameter signatures against a binding
// store.
//
// A Strategy proposes candidate bindings for one parameter; the Resolver
// applies the policy (one match converts, zero matches defaults or fails,
// many matches is ambiguous) and the Converter coerces values to the
// declared type.
package match
