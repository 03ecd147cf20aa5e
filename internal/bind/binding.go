package bind

import (
	"fmt"
	"reflect"
	"regexp"
)

// Reserved binding names. These are bound by the engine, never by callers.
const (
	// BindingsName holds the binding store itself.
	BindingsName = "bindings"

	// RuleContextName holds the execution context of the current run.
	RuleContextName = "ruleContext"

	// ErrorName holds the error under recovery while an error condition
	// or ON_ERROR action runs.
	ErrorName = "error"
)

var reservedNames = map[string]bool{
	BindingsName:    true,
	RuleContextName: true,
	ErrorName:       true,
}

// IsReserved reports whether name is reserved for the engine.
func IsReserved(name string) bool {
	return reservedNames[name]
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// AnyType is the type descriptor accepting every value.
var AnyType = TypeOf[any]()

// TypeOf returns the type descriptor of T. Unlike reflect.TypeOf it works
// for interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Binding is a named, typed value cell.
//
// The declared type is fixed at creation. Value updates must be assignable
// to it; a nil value is accepted only for nillable types.
type Binding struct {
	name        string
	typ         reflect.Type
	value       any
	editable    bool
	description string
}

func newBinding(name string, typ reflect.Type, value any, opts bindOptions) (*Binding, error) {
	if !identifierPattern.MatchString(name) {
		return nil, newBindingError(ErrCodeInvalidBinding, name,
			"name must match %s", identifierPattern.String())
	}

	if typ == nil {
		if value == nil {
			return nil, newBindingError(ErrCodeInvalidBinding, name,
				"cannot infer the type of a nil value")
		}
		typ = reflect.TypeOf(value)
	}

	if !assignable(value, typ) {
		return nil, newBindingError(ErrCodeInvalidBinding, name,
			"value of type %T is not assignable to %s", value, typ)
	}

	return &Binding{
		name:        name,
		typ:         typ,
		value:       value,
		editable:    !opts.readOnly,
		description: opts.description,
	}, nil
}

// Name returns the binding name.
func (b *Binding) Name() string {
	return b.name
}

// Type returns the declared type.
func (b *Binding) Type() reflect.Type {
	return b.typ
}

// Value returns the current value.
func (b *Binding) Value() any {
	return b.value
}

// Editable reports whether SetValue may change the value.
func (b *Binding) Editable() bool {
	return b.editable
}

// Description returns the optional human-readable description.
func (b *Binding) Description() string {
	return b.description
}

// SetValue replaces the value. Fails with INVALID_BINDING_UPDATE if the
// binding is read-only or value is not assignable to the declared type.
func (b *Binding) SetValue(value any) error {
	if !b.editable {
		return newBindingError(ErrCodeInvalidUpdate, b.name, "binding is read-only")
	}
	if !assignable(value, b.typ) {
		return newBindingError(ErrCodeInvalidUpdate, b.name,
			"value of type %T is not assignable to %s", value, b.typ)
	}
	b.value = value
	return nil
}

// IsTypeAcceptable reports whether the declared type can be used where t is
// expected. A nil t accepts everything.
func (b *Binding) IsTypeAcceptable(t reflect.Type) bool {
	if t == nil {
		return true
	}
	return b.typ.AssignableTo(t)
}

// String returns a debug representation.
func (b *Binding) String() string {
	return fmt.Sprintf("%s %s = %v", b.name, b.typ, b.value)
}

func (b *Binding) clone() *Binding {
	c := *b
	return &c
}

// assignable reports whether value can be stored in a cell of type typ.
func assignable(value any, typ reflect.Type) bool {
	if value == nil {
		return Nillable(typ)
	}
	return reflect.TypeOf(value).AssignableTo(typ)
}

// Nillable reports whether nil is a valid value of typ.
func Nillable(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice,
		reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

// BindOption configures a binding at creation.
type BindOption func(*bindOptions)

type bindOptions struct {
	readOnly    bool
	description string
}

// ReadOnly makes the binding immutable after creation.
func ReadOnly() BindOption {
	return func(o *bindOptions) {
		o.readOnly = true
	}
}

// Describe attaches a description to the binding.
func Describe(description string) BindOption {
	return func(o *bindOptions) {
		o.description = description
	}
}
