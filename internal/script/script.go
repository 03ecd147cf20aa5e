// Package script adapts expression languages to the engine's scripting
// bridge.
//
// Every language implements Evaluator. Variables are the visible binding
// values keyed by name; the result is a plain Go value (bool, int64,
// float64, string, []any, map[string]any or nil).
package script

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Language names understood by Standard.
const (
	LangCEL        = "cel"
	LangExpr       = "expr"
	LangECMAScript = "ecmascript"
	LangJS         = "js"
)

// Evaluator evaluates script text against a variable scope.
type Evaluator interface {
	Evaluate(script string, vars map[string]any) (any, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(script string, vars map[string]any) (any, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(script string, vars map[string]any) (any, error) {
	return f(script, vars)
}

// Registry maps language names to evaluators. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	langs map[string]Evaluator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{langs: make(map[string]Evaluator)}
}

// Standard returns a registry with cel, expr and ecmascript (alias js).
func Standard() *Registry {
	r := NewRegistry()
	js := NewJSEvaluator()
	r.Register(LangCEL, NewCELEvaluator())
	r.Register(LangExpr, NewExprEvaluator())
	r.Register(LangECMAScript, js)
	r.Register(LangJS, js)
	return r
}

// Register adds or replaces the evaluator for lang. Names are case-insensitive.
func (r *Registry) Register(lang string, e Evaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs[strings.ToLower(lang)] = e
}

// Lookup returns the evaluator for lang.
func (r *Registry) Lookup(lang string) (Evaluator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.langs[strings.ToLower(lang)]
	return e, ok
}

// Languages returns the registered names in sorted order.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.langs))
	for name := range r.langs {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Evaluate runs script in lang.
func (r *Registry) Evaluate(lang, script string, vars map[string]any) (any, error) {
	e, ok := r.Lookup(lang)
	if !ok {
		return nil, fmt.Errorf("no evaluator for language %q", lang)
	}
	return e.Evaluate(script, vars)
}

// Truthy interprets a script result as a condition outcome. Only a boolean
// true counts; other types are an error so typos do not silently fail.
func Truthy(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("condition script returned %T, want bool", v)
	}
	return b, nil
}
