package script

import (
	"container/list"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// DefaultCELCostLimit bounds the work of one CEL evaluation.
const DefaultCELCostLimit = 1000000

// DefaultCELCacheSize is how many compiled programs a CELEvaluator keeps.
const DefaultCELCacheSize = 512

// CELEvaluator evaluates Common Expression Language scripts. Every
// variable is declared dynamic.
//
// Compiled programs are cached per (variable names, source) pair because a
// CEL environment fixes its declarations at creation. The cache holds at
// most cacheSize programs and drops the least recently used.
type CELEvaluator struct {
	costLimit uint64
	cacheSize int

	mu       sync.Mutex
	programs map[string]*list.Element
	recent   *list.List // of *celEntry, most recent first
}

type celEntry struct {
	key  string
	prog cel.Program
}

// CELOption configures a CELEvaluator.
type CELOption func(*CELEvaluator)

// WithCELCacheSize sets the program cache capacity. Values below 1 mean 1.
func WithCELCacheSize(n int) CELOption {
	return func(e *CELEvaluator) { e.cacheSize = max(n, 1) }
}

// NewCELEvaluator returns an evaluator with DefaultCELCostLimit and
// DefaultCELCacheSize.
func NewCELEvaluator(opts ...CELOption) *CELEvaluator {
	e := &CELEvaluator{
		costLimit: DefaultCELCostLimit,
		cacheSize: DefaultCELCacheSize,
		programs:  make(map[string]*list.Element),
		recent:    list.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate implements Evaluator.
func (e *CELEvaluator) Evaluate(src string, vars map[string]any) (any, error) {
	prog, err := e.program(src, vars)
	if err != nil {
		return nil, err
	}
	out, _, err := prog.Eval(vars)
	if err != nil {
		return nil, fmt.Errorf("cel eval: %w", err)
	}
	return celToNative(out), nil
}

func (e *CELEvaluator) program(src string, vars map[string]any) (cel.Program, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)
	key := strings.Join(names, ",") + "\x00" + src

	e.mu.Lock()
	defer e.mu.Unlock()

	if el, ok := e.programs[key]; ok {
		e.recent.MoveToFront(el)
		return el.Value.(*celEntry).prog, nil
	}

	opts := make([]cel.EnvOption, 0, len(names))
	for _, name := range names {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("cel compile: %w", issues.Err())
	}

	prog, err := env.Program(ast, cel.CostLimit(e.costLimit))
	if err != nil {
		return nil, fmt.Errorf("cel program: %w", err)
	}

	e.programs[key] = e.recent.PushFront(&celEntry{key: key, prog: prog})
	for e.recent.Len() > e.cacheSize {
		oldest := e.recent.Back()
		e.recent.Remove(oldest)
		delete(e.programs, oldest.Value.(*celEntry).key)
	}
	return prog, nil
}

// celToNative unwraps CEL values into plain Go values. Maps and lists are
// converted recursively.
func celToNative(v ref.Val) any {
	switch vv := v.(type) {
	case types.Null:
		return nil
	case traits.Mapper:
		out := make(map[string]any)
		it := vv.Iterator()
		for it.HasNext() == types.True {
			k := it.Next()
			out[fmt.Sprint(celToNative(k))] = celToNative(vv.Get(k))
		}
		return out
	case traits.Lister:
		n, _ := vv.Size().Value().(int64)
		out := make([]any, 0, n)
		for i := int64(0); i < n; i++ {
			out = append(out, celToNative(vv.Get(types.Int(i))))
		}
		return out
	default:
		return v.Value()
	}
}
