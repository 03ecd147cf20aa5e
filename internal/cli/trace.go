package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/algox/ruling-class-sub004/internal/audit"
	"github.com/algox/ruling-class-sub004/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - filter to one unit kind
	Unit     string // optional - history of one unit across runs
}

// TraceResult holds the audit trail of one run.
type TraceResult struct {
	RunID    string         `json:"run_id"`
	Runnable string         `json:"runnable,omitempty"`
	Outcome  string         `json:"outcome,omitempty"`
	Error    string         `json:"error,omitempty"`
	Code     string         `json:"code,omitempty"`
	Records  []audit.Record `json:"records"`
	Stats    TraceStats     `json:"stats"`
}

// TraceStats counts records by kind.
type TraceStats struct {
	Total      int `json:"total"`
	Conditions int `json:"conditions"`
	Actions    int `json:"actions"`
	Rules      int `json:"rules"`
	RuleSets   int `json:"rulesets"`
	Errors     int `json:"errors"`
}

func (r TraceResult) runIdentifier() string { return r.RunID }

func (r TraceResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "Run %s", r.RunID)
	if r.Runnable != "" {
		fmt.Fprintf(w, ": %s %s", r.Runnable, r.Outcome)
	}
	fmt.Fprintln(w)
	if r.Code != "" {
		fmt.Fprintf(w, "Error [%s]: %s\n", r.Code, r.Error)
	}
	fmt.Fprintln(w)
	renderRecords(w, r.Records)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d records: %d conditions, %d actions, %d rules, %d rule sets, %d errors\n",
		r.Stats.Total, r.Stats.Conditions, r.Stats.Actions, r.Stats.Rules, r.Stats.RuleSets, r.Stats.Errors)
}

// UnitHistory holds the records of one unit across runs.
type UnitHistory struct {
	Kind    string         `json:"kind"`
	Unit    string         `json:"unit"`
	Records []audit.Record `json:"records"`
}

func (h UnitHistory) renderText(w io.Writer) {
	fmt.Fprintf(w, "%s %s: %d record(s)\n", h.Kind, h.Unit, len(h.Records))
	for _, rec := range h.Records {
		fmt.Fprintf(w, "  %s [%d] %s\n", rec.RunID, rec.Seq, rec.Outcome)
	}
}

// RunList holds the run IDs in the database.
type RunList struct {
	Runs []string `json:"runs"`
}

func (l RunList) renderText(w io.Writer) {
	if len(l.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, id := range l.Runs {
		fmt.Fprintln(w, id)
	}
}

func renderRecords(w io.Writer, records []audit.Record) {
	for _, rec := range records {
		fmt.Fprintf(w, "  [%d] %-9s %-24s %-9s %s\n", rec.Seq, rec.Kind, rec.Unit, rec.Outcome, rec.Duration)
		if len(rec.Params) > 0 {
			fmt.Fprintf(w, "       params: %v\n", rec.Params)
		}
		if rec.Error != "" {
			fmt.Fprintf(w, "       error [%s]: %s\n", rec.Code, rec.Error)
		}
	}
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show the audit trail of a run",
		Long: `Read audit records written by "ruling run --db".

With a run ID, prints every evaluated unit of that run in sequence order.
Without one, lists the recorded run IDs. With --unit, prints the history
of one unit across all runs.

Examples:
  ruling trace --db ./audit.db
  ruling trace 0190a4c2-7d7e-7b3a-9f1e-2c4d5e6f7a8b --db ./audit.db
  ruling trace 0190a4c2-7d7e-7b3a-9f1e-2c4d5e6f7a8b --db ./audit.db --kind rule
  ruling trace --db ./audit.db --unit bigSpender --kind rule`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runTrace(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite audit database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one kind (condition|action|rule|ruleset)")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "show one unit's history across runs (requires --kind)")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	ctx := context.Background()
	f := opts.formatter(cmd)

	switch opts.Kind {
	case "", string(audit.KindCondition), string(audit.KindAction), string(audit.KindRule), string(audit.KindRuleSet):
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q", opts.Kind))
	}
	if opts.Unit != "" && opts.Kind == "" {
		return NewExitError(ExitCommandError, "--unit requires --kind")
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Unit != "" {
		records, err := st.ReadUnitHistory(ctx, audit.Kind(opts.Kind), opts.Unit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read unit history", err)
		}
		return f.Success(UnitHistory{Kind: opts.Kind, Unit: opts.Unit, Records: records})
	}

	if runID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return f.Success(RunList{Runs: runs})
	}

	records, err := st.ReadRun(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	result := TraceResult{RunID: runID, Records: []audit.Record{}}

	summary, err := st.ReadRunSummary(ctx, runID)
	switch {
	case err == nil:
		result.Runnable = summary.Runnable
		result.Outcome = summary.Outcome
		result.Error = summary.Error
		result.Code = summary.Code
	case errors.Is(err, store.ErrRunNotFound):
		if len(records) == 0 {
			return NewExitError(ExitCommandError, fmt.Sprintf("no records for run %s", runID))
		}
	default:
		return WrapExitError(ExitCommandError, "failed to read run summary", err)
	}

	for _, rec := range records {
		result.Stats.Total++
		switch rec.Kind {
		case audit.KindCondition:
			result.Stats.Conditions++
		case audit.KindAction:
			result.Stats.Actions++
		case audit.KindRule:
			result.Stats.Rules++
		case audit.KindRuleSet:
			result.Stats.RuleSets++
		}
		if rec.Error != "" {
			result.Stats.Errors++
		}
		if opts.Kind == "" || string(rec.Kind) == opts.Kind {
			result.Records = append(result.Records, rec)
		}
	}
	return f.Success(result)
}
