package match

import (
	"fmt"

	"github.com/algox/ruling-class-sub004/internal/bind"
)

// Strategy maps a declared parameter to candidate bindings.
//
// Match returns zero, one or many candidates. The resolver, not the
// strategy, decides what zero or many means.
type Strategy interface {
	Name() string
	Match(p ParameterDescriptor, bindings bind.Lookup) []*bind.Binding
}

// Built-in strategies.
var (
	ByName         Strategy = byName{}
	ByType         Strategy = byType{}
	ByNameThenType Strategy = byNameThenType{}
)

// StrategyByName returns the built-in strategy with the given name.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "name", "by-name":
		return ByName, nil
	case "type", "by-type":
		return ByType, nil
	case "", "name-then-type", "by-name-then-type":
		return ByNameThenType, nil
	default:
		return nil, fmt.Errorf("unknown matching strategy %q", name)
	}
}

type byName struct{}

func (byName) Name() string { return "by-name" }

// Match returns the innermost binding with the lookup name. The binding's
// type is not checked here; conversion happens in the resolver.
func (byName) Match(p ParameterDescriptor, bindings bind.Lookup) []*bind.Binding {
	if b := bindings.Get(p.LookupName()); b != nil {
		return []*bind.Binding{b}
	}
	return nil
}

type byType struct{}

func (byType) Name() string { return "by-type" }

func (byType) Match(p ParameterDescriptor, bindings bind.Lookup) []*bind.Binding {
	candidates := bindings.BindingsByType(p.Type)
	if len(candidates) <= 1 || p.BindingName == "" {
		return candidates
	}
	for _, c := range candidates {
		if c.Name() == p.BindingName {
			return []*bind.Binding{c}
		}
	}
	return candidates
}

type byNameThenType struct{}

func (byNameThenType) Name() string { return "by-name-then-type" }

func (byNameThenType) Match(p ParameterDescriptor, bindings bind.Lookup) []*bind.Binding {
	if found := ByName.Match(p, bindings); len(found) > 0 {
		return found
	}
	return ByType.Match(p, bindings)
}
