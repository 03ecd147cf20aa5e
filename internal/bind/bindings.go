package bind

import (
	"fmt"
	"reflect"
	"strings"
)

// Lookup is the read-only view of a binding store used by matching
// strategies.
type Lookup interface {
	// Get returns the innermost visible binding named name, or nil.
	Get(name string) *Binding

	// BindingsByType returns visible bindings assignable to t, innermost first.
	BindingsByType(t reflect.Type) []*Binding
}

// ScopedBindings is a stack of scopes holding named, typed values.
//
// INVARIANTS:
//   - There is always at least one scope (the root).
//   - Scopes are added and removed in stack order only.
//   - A name appears at most once per scope.
type ScopedBindings struct {
	scopes []*Scope
}

var _ Lookup = (*ScopedBindings)(nil)

// Create returns an empty store containing only the root scope.
func Create() *ScopedBindings {
	return &ScopedBindings{
		scopes: []*Scope{newScope(RootScopeName)},
	}
}

// DefaultBindings returns a store whose root scope holds the reserved
// BindingsName binding, pointing at the store itself.
func DefaultBindings() *ScopedBindings {
	b := Create()
	// Cannot fail: fresh root scope, reserved path skips the name check.
	_ = b.BindReserved(BindingsName, TypeOf[*ScopedBindings](), b)
	return b
}

// AddScope pushes a new innermost scope and returns it.
func (b *ScopedBindings) AddScope(name string) *Scope {
	s := newScope(name)
	b.scopes = append(b.scopes, s)
	return s
}

// RemoveScope pops the innermost scope. The root scope cannot be removed.
func (b *ScopedBindings) RemoveScope() error {
	if len(b.scopes) <= 1 {
		return newBindingError(ErrCodeRootScope, "", "cannot remove the root scope")
	}
	b.scopes[len(b.scopes)-1] = nil
	b.scopes = b.scopes[:len(b.scopes)-1]
	return nil
}

// CurrentScope returns the innermost scope.
func (b *ScopedBindings) CurrentScope() *Scope {
	return b.scopes[len(b.scopes)-1]
}

// RootScope returns scope 0.
func (b *ScopedBindings) RootScope() *Scope {
	return b.scopes[0]
}

// ScopeDepth returns the number of scopes, root included.
func (b *ScopedBindings) ScopeDepth() int {
	return len(b.scopes)
}

// Bind declares a new binding in the current scope.
//
// A nil typ infers the type from value. Fails with DUPLICATE_BINDING_NAME if
// the current scope already declares name, and with INVALID_BINDING for a
// reserved or malformed name or a value not assignable to typ.
func (b *ScopedBindings) Bind(name string, typ reflect.Type, value any, opts ...BindOption) error {
	if IsReserved(name) {
		return newBindingError(ErrCodeInvalidBinding, name, "name is reserved")
	}
	return b.bind(name, typ, value, opts...)
}

// BindValue declares a binding whose type is the dynamic type of value.
func (b *ScopedBindings) BindValue(name string, value any, opts ...BindOption) error {
	return b.Bind(name, nil, value, opts...)
}

// BindReserved declares one of the reserved bindings. It is the engine's
// entry point; callers use Bind.
func (b *ScopedBindings) BindReserved(name string, typ reflect.Type, value any) error {
	if !IsReserved(name) {
		return newBindingError(ErrCodeInvalidBinding, name, "name is not reserved")
	}
	return b.bind(name, typ, value)
}

func (b *ScopedBindings) bind(name string, typ reflect.Type, value any, opts ...BindOption) error {
	scope := b.CurrentScope()
	if scope.Get(name) != nil {
		return newBindingError(ErrCodeDuplicateName, name,
			"name already bound in scope %q", scope.name)
	}

	var o bindOptions
	for _, opt := range opts {
		opt(&o)
	}

	binding, err := newBinding(name, typ, value, o)
	if err != nil {
		return err
	}
	scope.add(binding)
	return nil
}

// Get returns the innermost visible binding named name, or nil.
func (b *ScopedBindings) Get(name string) *Binding {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if binding := b.scopes[i].Get(name); binding != nil {
			return binding
		}
	}
	return nil
}

// GetValue returns the value of the innermost binding named name.
func (b *ScopedBindings) GetValue(name string) (any, error) {
	binding := b.Get(name)
	if binding == nil {
		return nil, newBindingError(ErrCodeUnknownBinding, name, "no such binding")
	}
	return binding.Value(), nil
}

// SetValue updates the innermost binding named name.
func (b *ScopedBindings) SetValue(name string, value any) error {
	binding := b.Get(name)
	if binding == nil {
		return newBindingError(ErrCodeUnknownBinding, name, "no such binding")
	}
	return binding.SetValue(value)
}

// Contains reports whether a binding named name is visible.
func (b *ScopedBindings) Contains(name string) bool {
	return b.Get(name) != nil
}

// ContainsTyped reports whether a binding named name is visible and its
// type is acceptable as t.
func (b *ScopedBindings) ContainsTyped(name string, t reflect.Type) bool {
	binding := b.Get(name)
	return binding != nil && binding.IsTypeAcceptable(t)
}

// All returns every visible binding, innermost scope first. Bindings
// shadowed by an inner scope are omitted.
func (b *ScopedBindings) All() []*Binding {
	seen := make(map[string]bool)
	var out []*Binding
	for i := len(b.scopes) - 1; i >= 0; i-- {
		for _, binding := range b.scopes[i].Bindings() {
			if seen[binding.name] {
				continue
			}
			seen[binding.name] = true
			out = append(out, binding)
		}
	}
	return out
}

// BindingsByType returns visible bindings whose declared type is assignable
// to t, innermost scope first. Reserved bindings only match their exact
// declared type, so an any parameter never picks up ruleContext.
func (b *ScopedBindings) BindingsByType(t reflect.Type) []*Binding {
	var out []*Binding
	for _, binding := range b.All() {
		if IsReserved(binding.name) && binding.typ != t {
			continue
		}
		if binding.IsTypeAcceptable(t) {
			out = append(out, binding)
		}
	}
	return out
}

// BindingsByNameAndType returns the visible binding named name if its type
// is acceptable as t. The result has zero or one element.
func (b *ScopedBindings) BindingsByNameAndType(name string, t reflect.Type) []*Binding {
	binding := b.Get(name)
	if binding == nil || !binding.IsTypeAcceptable(t) {
		return nil
	}
	return []*Binding{binding}
}

// Names returns the names of all visible bindings, innermost first.
func (b *ScopedBindings) Names() []string {
	all := b.All()
	names := make([]string, len(all))
	for i, binding := range all {
		names[i] = binding.name
	}
	return names
}

// Size returns the number of visible bindings.
func (b *ScopedBindings) Size() int {
	return len(b.All())
}

// AsMap returns the visible values keyed by name.
func (b *ScopedBindings) AsMap() map[string]any {
	all := b.All()
	out := make(map[string]any, len(all))
	for _, binding := range all {
		out[binding.name] = binding.value
	}
	return out
}

// Clone returns a copy with its own scope stack and binding cells. Values
// themselves are shared. A BindingsName binding that points at b is
// redirected to the clone.
func (b *ScopedBindings) Clone() *ScopedBindings {
	c := &ScopedBindings{scopes: make([]*Scope, len(b.scopes))}
	for i, s := range b.scopes {
		c.scopes[i] = s.clone()
	}
	for _, s := range c.scopes {
		if self := s.Get(BindingsName); self != nil && self.value == any(b) {
			self.value = c
		}
	}
	return c
}

// String returns a debug representation listing scopes and bindings.
func (b *ScopedBindings) String() string {
	var sb strings.Builder
	for i, s := range b.scopes {
		fmt.Fprintf(&sb, "[%d:%s]", i, s.name)
		for _, binding := range s.Bindings() {
			if binding.name == BindingsName {
				sb.WriteString(" bindings")
				continue
			}
			fmt.Fprintf(&sb, " %s", binding)
		}
		if i < len(b.scopes)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
