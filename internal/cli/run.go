package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/algox/ruling-class-sub004/internal/audit"
	"github.com/algox/ruling-class-sub004/internal/bind"
	"github.com/algox/ruling-class-sub004/internal/engine"
	"github.com/algox/ruling-class-sub004/internal/loader"
	"github.com/algox/ruling-class-sub004/internal/metrics"
	"github.com/algox/ruling-class-sub004/internal/registry"
	"github.com/algox/ruling-class-sub004/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	RuleSet  string
	Bindings string   // YAML file of initial bindings
	Set      []string // name=value overrides, values parsed as YAML scalars
	Database string
	Metrics  string // Prometheus text file written after the run
	RunID    string

	// RunIDGenerator overrides the run ID source (for testing).
	RunIDGenerator engine.RunIDGenerator
}

// RunResult is the output of one run.
type RunResult struct {
	RunID    string         `json:"run_id"`
	RuleSet  string         `json:"ruleset"`
	Outcome  string         `json:"outcome"`
	Bindings map[string]any `json:"bindings"`
	Records  int            `json:"records"`
}

func (r RunResult) runIdentifier() string { return r.RunID }

func (r RunResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "Rule set %s: %s\n", r.RuleSet, r.Outcome)
	fmt.Fprintf(w, "Run ID: %s (%d audit records)\n", r.RunID, r.Records)
	if len(r.Bindings) == 0 {
		return
	}
	fmt.Fprintln(w, "Bindings:")
	for _, name := range slices.Sorted(maps.Keys(r.Bindings)) {
		fmt.Fprintf(w, "  %s = %v\n", name, r.Bindings[name])
	}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <definitions>...",
		Short: "Run a rule set against initial bindings",
		Long: `Load rule set definitions (.yaml, .yml, .cue files or directories),
bind the initial values and run one rule set.

With --db every audit record and the run summary are written to a SQLite
database that "ruling trace" can read back. With --metrics the unit
counters are written in Prometheus text format when the run ends.

Exit codes:
  0 - The rule set completed (PASS, FAIL, SKIPPED, STOPPED, RECOVERED)
  1 - The rule set ended in error
  2 - Command error (bad definitions, unreadable bindings, etc.)

Examples:
  ruling run ./rules --ruleset checkout --bindings order.yaml
  ruling run ./rules --ruleset checkout --set total=150 --set years=3
  ruling run ./rules --ruleset checkout --bindings order.yaml --db ./audit.db --metrics ./ruling.prom`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuleSet(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RuleSet, "ruleset", "", "name of the rule set to run (required)")
	_ = cmd.MarkFlagRequired("ruleset")
	cmd.Flags().StringVar(&opts.Bindings, "bindings", "", "YAML file of initial bindings")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "bind name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite audit database")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write Prometheus metrics to this file")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "fixed run ID (default: generated UUIDv7)")

	return cmd
}

func runRuleSet(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	logger := opts.Logger(cmd.ErrOrStderr())
	f := opts.formatter(cmd)
	ctx := context.Background()

	reg := registry.New()
	if _, err := loader.New(loader.WithRegistry(reg), loader.WithLogger(logger)).Load(paths...); err != nil {
		return WrapExitError(ExitCommandError, "failed to load definitions", err)
	}

	values, err := readBindings(opts.Bindings, opts.Set)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read bindings", err)
	}
	b, err := bind.NewBuilder().BindAll(values).Build()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid bindings", err)
	}

	recorder := audit.NewRecorder()
	sinks := audit.MultiSink{recorder, audit.NewLogSink(logger)}

	var (
		st      *store.Store
		stSink  *store.RecordSink
		promReg *prometheus.Registry
	)
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		stSink = st.Sink(ctx, logger)
		sinks = append(sinks, stSink)
	}
	if opts.Metrics != "" {
		promReg = prometheus.NewRegistry()
		sinks = append(sinks, metrics.NewRuleMetrics(promReg))
	}

	ctxOpts := []engine.ContextOption{
		engine.WithRegistry(reg),
		engine.WithAuditSink(sinks),
		engine.WithLogger(logger),
		engine.WithRunID(opts.RunID),
	}
	if opts.RunIDGenerator != nil {
		ctxOpts = append(ctxOpts, engine.WithRunIDGenerator(opts.RunIDGenerator))
	}
	rc, err := engine.NewContext(b, ctxOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create run context", err)
	}

	f.VerboseLog("running %s (run %s)", opts.RuleSet, rc.RunID())
	outcome, runErr := rc.RunByName(opts.RuleSet)

	result := RunResult{
		RunID:    rc.RunID(),
		RuleSet:  opts.RuleSet,
		Outcome:  string(outcome),
		Bindings: visibleBindings(b),
		Records:  len(recorder.Records()),
	}

	if st != nil {
		if err := stSink.Err(); err != nil {
			return WrapExitError(ExitCommandError, "failed to write audit records", err)
		}
		summary := store.RunSummary{
			RunID:    result.RunID,
			Runnable: opts.RuleSet,
			Outcome:  result.Outcome,
		}
		if runErr != nil {
			summary.Error = runErr.Error()
			summary.Code = engine.ErrorCode(runErr)
		}
		if err := st.WriteRun(ctx, summary); err != nil {
			return WrapExitError(ExitCommandError, "failed to write run summary", err)
		}
	}

	if promReg != nil {
		if err := prometheus.WriteToTextfile(opts.Metrics, promReg); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if runErr != nil {
		if err := f.Error(engine.ErrorCode(runErr), runErr.Error(), result); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("rule set %s failed", opts.RuleSet), runErr)
	}
	return f.Success(result)
}

// readBindings merges the bindings file with --set overrides. Later
// values win.
func readBindings(path string, sets []string) (map[string]any, error) {
	values := make(map[string]any)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if values == nil {
			values = make(map[string]any)
		}
	}
	for _, kv := range sets {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("--set %q: expected name=value", kv)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("--set %s: %w", name, err)
		}
		if v == nil {
			v = raw
		}
		values[strings.TrimSpace(name)] = v
	}
	return values, nil
}

func visibleBindings(b *bind.ScopedBindings) map[string]any {
	out := make(map[string]any)
	for _, binding := range b.All() {
		if !bind.IsReserved(binding.Name()) {
			out[binding.Name()] = binding.Value()
		}
	}
	return out
}
