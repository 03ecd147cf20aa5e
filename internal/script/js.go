package script

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// ErrInterrupted is returned when a script exceeds its time limit.
var ErrInterrupted = errors.New("script interrupted: timeout")

// JSEvaluator evaluates ECMAScript with goja. Each evaluation gets a fresh
// runtime; compiled programs are shared.
//
// The script's completion value is the result, so an action returning
// updates ends with an object literal: `({total: price * qty})`.
type JSEvaluator struct {
	// Timeout interrupts a running script. Zero disables the limit.
	Timeout time.Duration

	mu   sync.Mutex
	prog map[string]*goja.Program
}

// NewJSEvaluator returns an evaluator with a one second timeout.
func NewJSEvaluator() *JSEvaluator {
	return &JSEvaluator{
		Timeout: time.Second,
		prog:    make(map[string]*goja.Program),
	}
}

// Evaluate implements Evaluator.
func (e *JSEvaluator) Evaluate(src string, vars map[string]any) (any, error) {
	p, err := e.compile(src)
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	for name, v := range vars {
		if err := vm.Set(name, v); err != nil {
			return nil, fmt.Errorf("js set %s: %w", name, err)
		}
	}

	if e.Timeout > 0 {
		timer := time.AfterFunc(e.Timeout, func() {
			vm.Interrupt(ErrInterrupted)
		})
		defer timer.Stop()
	}

	v, err := vm.RunProgram(p)
	if err != nil {
		var ie *goja.InterruptedError
		if errors.As(err, &ie) {
			return nil, ErrInterrupted
		}
		return nil, fmt.Errorf("js eval: %w", err)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return v.Export(), nil
}

func (e *JSEvaluator) compile(src string) (*goja.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.prog[src]; ok {
		return p, nil
	}
	p, err := goja.Compile("", src, true)
	if err != nil {
		return nil, fmt.Errorf("js compile: %w", err)
	}
	e.prog[src] = p
	return p, nil
}
