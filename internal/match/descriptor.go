package match

import (
	"fmt"
	"reflect"

	"github.com/algox/ruling-class-sub004/internal/bind"
)

// ParameterDescriptor declares one parameter of a condition or action.
//
// Descriptors are built once per unit signature and never mutated; the
// resolver reads them on every invocation.
type ParameterDescriptor struct {
	// Index is the position in the argument list.
	Index int

	// Name is the declared parameter name, also the default lookup name.
	Name string

	// Type is the declared type. Resolved values are converted to it.
	Type reflect.Type

	// BindingName overrides Name for lookups when non-empty.
	BindingName string

	// Strategy overrides the resolver's default strategy when non-nil.
	Strategy Strategy

	// Optional parameters resolve to their default (or the zero value)
	// instead of failing when nothing matches.
	Optional bool

	// DefaultValue is literal text converted to Type when nothing matches.
	// Only meaningful when HasDefault is set.
	DefaultValue string
	HasDefault   bool
}

// LookupName returns the name used for by-name matching.
func (p ParameterDescriptor) LookupName() string {
	if p.BindingName != "" {
		return p.BindingName
	}
	return p.Name
}

// String returns "name type" with the binding override when present.
func (p ParameterDescriptor) String() string {
	s := fmt.Sprintf("%s %s", p.Name, p.Type)
	if p.BindingName != "" && p.BindingName != p.Name {
		s += fmt.Sprintf(" (binding=%s)", p.BindingName)
	}
	return s
}

// ParamOption configures a parameter descriptor.
type ParamOption func(*ParameterDescriptor)

// Named matches the parameter against binding instead of its own name.
func Named(binding string) ParamOption {
	return func(p *ParameterDescriptor) {
		p.BindingName = binding
	}
}

// Optional lets the parameter resolve to its default or zero value.
func Optional() ParamOption {
	return func(p *ParameterDescriptor) {
		p.Optional = true
	}
}

// WithDefault supplies literal text used when nothing matches. It implies
// Optional.
func WithDefault(text string) ParamOption {
	return func(p *ParameterDescriptor) {
		p.DefaultValue = text
		p.HasDefault = true
		p.Optional = true
	}
}

// MatchUsing overrides the matching strategy for this parameter only.
func MatchUsing(s Strategy) ParamOption {
	return func(p *ParameterDescriptor) {
		p.Strategy = s
	}
}

// Param declares a parameter of type T.
func Param[T any](name string, opts ...ParamOption) ParameterDescriptor {
	return ParamOf(name, bind.TypeOf[T](), opts...)
}

// ParamOf declares a parameter with an explicit type descriptor.
func ParamOf(name string, typ reflect.Type, opts ...ParamOption) ParameterDescriptor {
	p := ParameterDescriptor{Name: name, Type: typ}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Signature assigns declaration indexes and returns an owned copy.
func Signature(params ...ParameterDescriptor) []ParameterDescriptor {
	out := make([]ParameterDescriptor, len(params))
	for i, p := range params {
		p.Index = i
		out[i] = p
	}
	return out
}

// ValidateSignature checks names are present and unique and every type is
// set.
func ValidateSignature(params []ParameterDescriptor) error {
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		if p.Name == "" {
			return fmt.Errorf("parameter %d: name is required", i)
		}
		if p.Type == nil {
			return fmt.Errorf("parameter %q: type is required", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("parameter %q: declared twice", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
