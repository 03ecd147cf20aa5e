package match

import (
	"reflect"

	"github.com/algox/ruling-class-sub004/internal/bind"
)

// Match is one resolved argument.
type Match struct {
	Parameter ParameterDescriptor

	// Binding is the matched binding, nil when the value was defaulted.
	Binding *bind.Binding

	// Value is converted to Parameter.Type.
	Value any

	Defaulted bool
}

// Resolver turns a parameter signature into an argument list.
//
// Each parameter is resolved independently, in declaration order. Results
// are never cached: binding contents differ between runs.
type Resolver struct {
	strategy  Strategy
	converter Converter
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithStrategy sets the default strategy. Parameters carrying their own
// Strategy ignore it.
func WithStrategy(s Strategy) ResolverOption {
	return func(r *Resolver) {
		r.strategy = s
	}
}

// WithConverter replaces the StandardConverter.
func WithConverter(c Converter) ResolverOption {
	return func(r *Resolver) {
		r.converter = c
	}
}

// NewResolver creates a resolver using ByNameThenType and StandardConverter
// unless overridden.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		strategy:  ByNameThenType,
		converter: StandardConverter{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Converter returns the converter used by the resolver.
func (r *Resolver) Converter() Converter {
	return r.converter
}

// Resolve resolves every parameter or fails on the first that cannot be.
func (r *Resolver) Resolve(params []ParameterDescriptor, bindings bind.Lookup) ([]Match, error) {
	out := make([]Match, 0, len(params))
	for _, p := range params {
		m, err := r.resolveOne(p, bindings)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *Resolver) resolveOne(p ParameterDescriptor, bindings bind.Lookup) (Match, error) {
	strategy := r.strategy
	if p.Strategy != nil {
		strategy = p.Strategy
	}

	candidates := strategy.Match(p, bindings)
	switch len(candidates) {
	case 0:
		return r.fallback(p)
	case 1:
		b := candidates[0]
		v, err := r.converter.Convert(b.Value(), p.Type)
		if err != nil {
			return Match{}, &ResolutionError{
				Code:       ErrCodeConversion,
				Parameter:  p,
				Candidates: []string{b.Name()},
				Err:        err,
			}
		}
		return Match{Parameter: p, Binding: b, Value: v}, nil
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.Name()
		}
		return Match{}, &ResolutionError{
			Code:       ErrCodeAmbiguous,
			Parameter:  p,
			Candidates: names,
		}
	}
}

func (r *Resolver) fallback(p ParameterDescriptor) (Match, error) {
	if p.HasDefault {
		v, err := r.converter.Convert(p.DefaultValue, p.Type)
		if err != nil {
			return Match{}, &ResolutionError{Code: ErrCodeConversion, Parameter: p, Err: err}
		}
		return Match{Parameter: p, Value: v, Defaulted: true}, nil
	}
	if p.Optional {
		var zero any
		if p.Type != nil {
			zero = reflect.Zero(p.Type).Interface()
		}
		return Match{Parameter: p, Value: zero, Defaulted: true}, nil
	}
	return Match{}, &ResolutionError{Code: ErrCodeUnresolved, Parameter: p}
}

// Values extracts the argument list.
func Values(matches []Match) []any {
	out := make([]any, len(matches))
	for i, m := range matches {
		out[i] = m.Value
	}
	return out
}
