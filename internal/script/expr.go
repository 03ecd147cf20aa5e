package script

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprEvaluator evaluates expr-lang expressions. Programs are compiled
// without a static environment and cached by source.
type ExprEvaluator struct {
	mu   sync.Mutex
	prog map[string]*vm.Program
}

// NewExprEvaluator returns an evaluator with an empty program cache.
func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{prog: make(map[string]*vm.Program, 64)}
}

// Evaluate implements Evaluator.
func (e *ExprEvaluator) Evaluate(src string, vars map[string]any) (any, error) {
	p, err := e.getOrCompile(src)
	if err != nil {
		return nil, fmt.Errorf("expr compile: %w", err)
	}
	if vars == nil {
		vars = map[string]any{}
	}
	out, err := expr.Run(p, vars)
	if err != nil {
		return nil, fmt.Errorf("expr eval: %w", err)
	}
	return out, nil
}

func (e *ExprEvaluator) getOrCompile(src string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.prog[src]; ok {
		return p, nil
	}
	p, err := expr.Compile(src)
	if err != nil {
		return nil, err
	}
	e.prog[src] = p
	return p, nil
}
