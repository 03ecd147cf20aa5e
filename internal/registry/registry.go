// Package registry holds named rules and rule sets for dynamic lookup.
//
// A Registry is an explicit instance, created once per application and
// passed to every engine.Context that needs RunByName. There is no
// package-level default.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/algox/ruling-class-sub004/internal/engine"
)

// AlreadyRegisteredError is returned when a name is taken. The existing
// entry is left in place.
type AlreadyRegisteredError struct {
	Name string
}

// Error implements the error interface.
func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("ALREADY_REGISTERED: %q is already registered", e.Name)
}

// IsAlreadyRegisteredError reports whether err is an AlreadyRegisteredError.
func IsAlreadyRegisteredError(err error) bool {
	var are *AlreadyRegisteredError
	return errors.As(err, &are)
}

// Registry maps names to rules and rule sets. Insert-once per name; safe
// for concurrent registration and lookup.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]engine.Runnable
}

var _ engine.Lookup = (*Registry)(nil)

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]engine.Runnable)}
}

// Register adds r under r.Name(). When several goroutines register the
// same name, exactly one succeeds.
func (reg *Registry) Register(r engine.Runnable) error {
	if r == nil {
		return errors.New("registry: cannot register nil")
	}
	name := r.Name()
	if strings.TrimSpace(name) == "" {
		return errors.New("registry: name is required")
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.entries[name]; exists {
		return &AlreadyRegisteredError{Name: name}
	}
	reg.entries[name] = r
	return nil
}

// RegisterAll adds every entry or none. All names are checked under one
// lock; the error joins one AlreadyRegisteredError per taken name, and
// names repeated within rs count as taken.
func (reg *Registry) RegisterAll(rs ...engine.Runnable) error {
	names := make(map[string]bool, len(rs))
	for _, r := range rs {
		if r == nil {
			return errors.New("registry: cannot register nil")
		}
		if strings.TrimSpace(r.Name()) == "" {
			return errors.New("registry: name is required")
		}
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	var errs []error
	for _, r := range rs {
		name := r.Name()
		if _, exists := reg.entries[name]; exists || names[name] {
			errs = append(errs, &AlreadyRegisteredError{Name: name})
		}
		names[name] = true
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	for _, r := range rs {
		reg.entries[r.Name()] = r
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (reg *Registry) MustRegister(rs ...engine.Runnable) {
	for _, r := range rs {
		if err := reg.Register(r); err != nil {
			panic(err)
		}
	}
}

// Get returns the entry named name, or nil.
func (reg *Registry) Get(name string) engine.Runnable {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.entries[name]
	if !ok {
		return nil
	}
	return r
}

// IsNameInUse reports whether name is registered.
func (reg *Registry) IsNameInUse(name string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, ok := reg.entries[name]
	return ok
}

// Rules returns the registered rules sorted by name.
func (reg *Registry) Rules() []*engine.Rule {
	return collect[*engine.Rule](reg)
}

// RuleSets returns the registered rule sets sorted by name.
func (reg *Registry) RuleSets() []*engine.RuleSet {
	return collect[*engine.RuleSet](reg)
}

// Names returns every registered name, sorted.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.entries))
	for name := range reg.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Count returns the number of entries.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.entries)
}

func collect[T engine.Runnable](reg *Registry) []T {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var out []T
	for _, r := range reg.entries {
		if t, ok := r.(T); ok {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b T) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}
