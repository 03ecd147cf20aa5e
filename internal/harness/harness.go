package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/algox/ruling-class-sub004/internal/audit"
	"github.com/algox/ruling-class-sub004/internal/bind"
	"github.com/algox/ruling-class-sub004/internal/engine"
	"github.com/algox/ruling-class-sub004/internal/loader"
	"github.com/algox/ruling-class-sub004/internal/registry"
	"github.com/algox/ruling-class-sub004/internal/store"
	"github.com/algox/ruling-class-sub004/internal/testutil"
)

// Option configures a scenario run.
type Option func(*options)

type options struct {
	logger *slog.Logger
	sink   audit.Sink
}

// WithLogger routes engine and loader logs. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithAuditSink receives every record alongside the store, for example a
// metrics.RuleMetrics.
func WithAuditSink(s audit.Sink) Option {
	return func(o *options) { o.sink = s }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh registry and a fresh in-memory
// database. The run ID is fixed, sequence numbers start at 1 and the
// wall clock is frozen, so two runs of one scenario produce identical
// traces.
//
// The returned error covers setup failures only (bad definitions, bad
// bindings, a store that cannot be written). A rule set that fails is
// reported through Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	reg := registry.New()
	l := loader.New(loader.WithRegistry(reg), loader.WithLogger(o.logger))
	if _, err := l.Load(scenario.Definitions...); err != nil {
		return nil, fmt.Errorf("failed to load definitions: %w", err)
	}

	b, err := bind.NewBuilder().BindAll(scenario.Bindings).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to bind initial values: %w", err)
	}

	ctx := context.Background()
	sink := st.Sink(ctx, o.logger)
	clock := testutil.NewFrozenClock()

	rc, err := engine.NewContext(b,
		engine.WithRegistry(reg),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithSequencer(testutil.NewDeterministicClock()),
		engine.WithNow(clock.Now),
		engine.WithAuditSink(audit.MultiSink{sink, o.sink}),
		engine.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run context: %w", err)
	}

	outcome, runErr := rc.RunByName(scenario.RuleSet)
	if err := sink.Err(); err != nil {
		return nil, fmt.Errorf("failed to persist audit trail: %w", err)
	}

	result := NewResult()
	result.RunID = rc.RunID()
	result.Outcome = string(outcome)
	if runErr != nil {
		result.Error = runErr.Error()
		result.ErrorCode = engine.ErrorCode(runErr)
	}

	summary := store.RunSummary{
		RunID:    result.RunID,
		Runnable: scenario.RuleSet,
		Outcome:  result.Outcome,
		Error:    result.Error,
		Code:     result.ErrorCode,
	}
	if err := st.WriteRun(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to write run summary: %w", err)
	}

	records, err := st.ReadRun(ctx, result.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	result.Trace = traceFromRecords(records)
	result.Bindings = visibleBindings(b)

	checkExpect(scenario.Expect, result)
	for _, msg := range EvaluateAssertions(result.Trace, scenario.Assertions) {
		result.AddError(msg)
	}

	o.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"run_id", result.RunID,
		"outcome", result.Outcome,
		"pass", result.Pass)
	return result, nil
}

func visibleBindings(b *bind.ScopedBindings) map[string]any {
	out := make(map[string]any)
	for _, binding := range b.All() {
		if bind.IsReserved(binding.Name()) {
			continue
		}
		out[binding.Name()] = binding.Value()
	}
	return out
}

// checkExpect compares the run against the expect clause. Binding values
// are compared by their %v rendering, since scripts may widen ints.
func checkExpect(expect ExpectClause, result *Result) {
	if expect.Outcome != result.Outcome {
		result.AddError(fmt.Sprintf("outcome: expected %s, got %s", expect.Outcome, result.Outcome))
	}

	switch {
	case expect.Error == "" && result.Error != "":
		result.AddError(fmt.Sprintf("unexpected error: %s", result.Error))
	case expect.Error != "" && expect.Error != result.ErrorCode:
		result.AddError(fmt.Sprintf("error: expected %s, got %q", expect.Error, result.ErrorCode))
	}

	for _, name := range slices.Sorted(maps.Keys(expect.Bindings)) {
		want := expect.Bindings[name]
		got, ok := result.Bindings[name]
		if !ok {
			result.AddError(fmt.Sprintf("binding %s: expected %v, not bound", name, want))
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			result.AddError(fmt.Sprintf("binding %s: expected %v, got %v", name, want, got))
		}
	}

	for _, name := range expect.Absent {
		if got, ok := result.Bindings[name]; ok {
			result.AddError(fmt.Sprintf("binding %s: expected absent, got %v", name, got))
		}
	}
}
