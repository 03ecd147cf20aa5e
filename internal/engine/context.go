package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/algox/ruling-class-sub004/internal/audit"
	"github.com/algox/ruling-class-sub004/internal/bind"
	"github.com/algox/ruling-class-sub004/internal/match"
	"github.com/algox/ruling-class-sub004/internal/script"
)

// Lookup finds runnables by name for dynamic invocation. Implemented by
// registry.Registry.
type Lookup interface {
	Get(name string) Runnable
}

// Sequencer issues audit sequence numbers. Implemented by Clock.
type Sequencer interface {
	Next() int64
}

// Context is one execution: it owns the binding store for the run and
// carries everything units need to resolve parameters and report.
//
// A Context is bound into its store under the reserved name ruleContext,
// so actions can declare it as a parameter.
//
// Thread-safety: a Context and its bindings belong to one goroutine. Use
// Child for work that must run in parallel.
type Context struct {
	bindings *bind.ScopedBindings
	resolver *match.Resolver
	scripts  *script.Registry
	registry Lookup
	logger   *slog.Logger
	sink     audit.Sink
	runID    string
	runIDs   RunIDGenerator
	seq      Sequencer
	depth    *DepthGuard
	now      func() time.Time
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithResolver replaces the default resolver.
func WithResolver(r *match.Resolver) ContextOption {
	return func(c *Context) { c.resolver = r }
}

// WithScripts sets the script evaluators. Default: script.Standard().
func WithScripts(r *script.Registry) ContextOption {
	return func(c *Context) { c.scripts = r }
}

// WithRegistry sets the lookup used by RunByName.
func WithRegistry(l Lookup) ContextOption {
	return func(c *Context) { c.registry = l }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ContextOption {
	return func(c *Context) { c.logger = l }
}

// WithAuditSink sets where audit records go. Default: audit.Discard.
func WithAuditSink(s audit.Sink) ContextOption {
	return func(c *Context) { c.sink = s }
}

// WithRunID fixes the run ID.
func WithRunID(id string) ContextOption {
	return func(c *Context) { c.runID = id }
}

// WithRunIDGenerator sets the generator used when no run ID is fixed.
// Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) ContextOption {
	return func(c *Context) { c.runIDs = g }
}

// WithSequencer sets the audit sequence source. Default: a new Clock.
func WithSequencer(s Sequencer) ContextOption {
	return func(c *Context) { c.seq = s }
}

// WithMaxDepth sets the nesting limit. Default: DefaultMaxDepth.
func WithMaxDepth(n int) ContextOption {
	return func(c *Context) { c.depth = NewDepthGuard(n) }
}

// WithNow sets the wall clock used for audit durations.
func WithNow(now func() time.Time) ContextOption {
	return func(c *Context) { c.now = now }
}

// NewContext creates a context over b. A nil b starts from
// bind.DefaultBindings. The context binds itself as ruleContext in b's
// current scope, or updates an existing ruleContext binding.
func NewContext(b *bind.ScopedBindings, opts ...ContextOption) (*Context, error) {
	if b == nil {
		b = bind.DefaultBindings()
	}
	c := &Context{
		bindings: b,
		resolver: match.NewResolver(),
		logger:   slog.Default(),
		sink:     audit.Discard,
		runIDs:   UUIDv7Generator{},
		seq:      NewClock(),
		depth:    NewDepthGuard(DefaultMaxDepth),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.scripts == nil {
		c.scripts = script.Standard()
	}
	if c.runID == "" {
		c.runID = c.runIDs.Generate()
	}
	if err := c.bindSelf(); err != nil {
		return nil, err
	}
	return c, nil
}

var contextType = bind.TypeOf[*Context]()

func (c *Context) bindSelf() error {
	if existing := c.bindings.Get(bind.RuleContextName); existing != nil {
		return existing.SetValue(c)
	}
	return c.bindings.BindReserved(bind.RuleContextName, contextType, c)
}

// Bindings returns the store owned by this run.
func (c *Context) Bindings() *bind.ScopedBindings { return c.bindings }

// RunID returns the run identifier stamped on audit records.
func (c *Context) RunID() string { return c.runID }

// Logger returns the context logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Resolver returns the parameter resolver.
func (c *Context) Resolver() *match.Resolver { return c.resolver }

// Depth returns the current nesting depth.
func (c *Context) Depth() int { return c.depth.Current() }

// Run executes r within this context, enforcing the depth limit.
func (c *Context) Run(r Runnable) (Outcome, error) {
	if err := c.depth.Enter(r.Name(), c.runID); err != nil {
		return Error, err
	}
	defer c.depth.Leave()
	return r.Run(c)
}

// RunByName looks name up in the registry and runs it with the current
// bindings.
func (c *Context) RunByName(name string) (Outcome, error) {
	var r Runnable
	if c.registry != nil {
		r = c.registry.Get(name)
	}
	if r == nil {
		return Error, &ExecutionError{
			Code:    ErrCodeUnknownRunnable,
			Message: "no rule or rule set registered under this name",
			Unit:    name,
			RunID:   c.runID,
		}
	}
	return c.Run(r)
}

// Test evaluates cond against the current bindings.
func (c *Context) Test(cond Condition) (bool, error) {
	return cond.test(c)
}

// Do runs action against the current bindings.
func (c *Context) Do(action Action) error {
	return action.run(c)
}

// Child returns a context over a clone of the bindings, for a parallel
// sub-execution. It shares the registry, scripts, sink, run ID and
// sequencer; its depth starts at the parent's current depth.
func (c *Context) Child() (*Context, error) {
	child := *c
	child.bindings = c.bindings.Clone()
	child.depth = &DepthGuard{max: c.depth.max, current: c.depth.current}
	if err := child.bindSelf(); err != nil {
		return nil, err
	}
	return &child, nil
}

func (c *Context) resolve(params []match.ParameterDescriptor) ([]match.Match, error) {
	if len(params) == 0 {
		return nil, nil
	}
	return c.resolver.Resolve(params, c.bindings)
}

// invoke runs a unit body, converting errors and panics into
// RULE_EXECUTION errors.
func (c *Context) invoke(unit string, body func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{
				Code:    ErrCodeRuleExecution,
				Message: "unit panicked",
				Unit:    unit,
				RunID:   c.runID,
				Err:     fmt.Errorf("panic: %v", r),
			}
		}
	}()
	if err := body(); err != nil {
		return &ExecutionError{
			Code:    ErrCodeRuleExecution,
			Message: "unit failed",
			Unit:    unit,
			RunID:   c.runID,
			Err:     err,
		}
	}
	return nil
}

// evaluate runs a script unit and hands its result to handle.
func (c *Context) evaluate(unit, lang, text string, handle func(any) error) error {
	ev, ok := c.scripts.Lookup(lang)
	if !ok {
		return &ExecutionError{
			Code:    ErrCodeScriptUnavailable,
			Message: fmt.Sprintf("no evaluator for language %q", lang),
			Unit:    unit,
			RunID:   c.runID,
		}
	}
	return c.invoke(unit, func() error {
		v, err := ev.Evaluate(text, c.ScriptVars())
		if err != nil {
			return err
		}
		return handle(v)
	})
}

// ScriptVars returns the variable scope handed to scripts: every visible
// binding except the store and context themselves. The error under
// recovery is passed as its message.
func (c *Context) ScriptVars() map[string]any {
	vars := c.bindings.AsMap()
	delete(vars, bind.BindingsName)
	delete(vars, bind.RuleContextName)
	if e, ok := vars[bind.ErrorName].(error); ok {
		vars[bind.ErrorName] = e.Error()
	}
	return vars
}

// withError runs fn with err bound as the reserved error binding in a
// scope of its own.
func (c *Context) withError(err error, fn func() error) error {
	c.bindings.AddScope(bind.ErrorName)
	defer func() { _ = c.bindings.RemoveScope() }()

	if berr := c.bindings.BindReserved(bind.ErrorName, errorType, err); berr != nil {
		return berr
	}
	return fn()
}

var errorType = bind.TypeOf[error]()

func (c *Context) emit(kind audit.Kind, unit, outcome string, matches []match.Match, err error, start time.Time) {
	var names []string
	var values []any
	for _, m := range matches {
		names = append(names, m.Parameter.Name)
		values = append(values, m.Value)
	}
	rec := audit.Record{
		RunID:    c.runID,
		Seq:      c.seq.Next(),
		Kind:     kind,
		Unit:     unit,
		Outcome:  outcome,
		Params:   audit.FormatParams(names, values),
		Duration: c.now().Sub(start),
	}
	if err != nil {
		rec.Error = err.Error()
		rec.Code = ErrorCode(err)
	}
	c.sink.Emit(rec.Finalize())
}
