package bind

import (
	"errors"
	"maps"
	"reflect"
	"slices"
)

// Builder assembles a binding store with a fluent chain. Errors are
// collected and returned together by Build.
//
// Example:
//
//	b, err := bind.NewBuilder().
//		Bind("y", bind.TypeOf[int](), 17).
//		BindValue("name", "order-1").
//		Build()
type Builder struct {
	bindings *ScopedBindings
	errs     []error
}

// NewBuilder starts from DefaultBindings.
func NewBuilder() *Builder {
	return From(DefaultBindings())
}

// From starts from an existing store. Bindings land in its current scope.
func From(b *ScopedBindings) *Builder {
	return &Builder{bindings: b}
}

// Bind adds a typed binding.
func (bb *Builder) Bind(name string, typ reflect.Type, value any, opts ...BindOption) *Builder {
	if err := bb.bindings.Bind(name, typ, value, opts...); err != nil {
		bb.errs = append(bb.errs, err)
	}
	return bb
}

// BindValue adds a binding typed by its value.
func (bb *Builder) BindValue(name string, value any, opts ...BindOption) *Builder {
	return bb.Bind(name, nil, value, opts...)
}

// BindAll adds one binding per map entry, typed by value. A nil entry is
// bound with AnyType. Entries are bound in sorted key order so failures are
// reported deterministically.
func (bb *Builder) BindAll(values map[string]any) *Builder {
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if values[name] == nil {
			bb.Bind(name, AnyType, nil)
			continue
		}
		bb.BindValue(name, values[name])
	}
	return bb
}

// Build returns the store, or every error collected along the chain.
func (bb *Builder) Build() (*ScopedBindings, error) {
	if len(bb.errs) > 0 {
		return nil, errors.Join(bb.errs...)
	}
	return bb.bindings, nil
}
