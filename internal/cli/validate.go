package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/algox/ruling-class-sub004/internal/loader"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidateResult is the output of the validate command.
type ValidateResult struct {
	Valid    bool              `json:"valid"`
	Files    []string          `json:"files"`
	RuleSets []RuleSetSummary  `json:"rulesets"`
	Issues   []ValidationIssue `json:"issues,omitempty"`
}

// RuleSetSummary describes one loaded rule set.
type RuleSetSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Members     int    `json:"members"`
}

// ValidationIssue is one loader error.
type ValidationIssue struct {
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (r ValidateResult) renderText(w io.Writer) {
	if !r.Valid {
		for _, issue := range r.Issues {
			e := loader.ValidationError{
				Code:    issue.Code,
				File:    issue.File,
				Line:    issue.Line,
				Field:   issue.Field,
				Message: issue.Message,
			}
			fmt.Fprintf(w, "✗ %s\n", e.Error())
		}
		return
	}
	fmt.Fprintf(w, "✓ %d file(s), %d rule set(s)\n", len(r.Files), len(r.RuleSets))
	for _, rs := range r.RuleSets {
		fmt.Fprintf(w, "  %s (%d members)", rs.Name, rs.Members)
		if rs.Description != "" {
			fmt.Fprintf(w, " - %s", rs.Description)
		}
		fmt.Fprintln(w)
	}
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <definitions>...",
		Short: "Check rule set definitions without running them",
		Long: `Decode, validate and build every definition file under the given paths.

Every problem is reported with its code:
  E100 parse error          E107 empty script
  E101 schema violation     E108 action needs exactly one of script/invoke
  E102 missing name         E109 unknown invoke target
  E103 duplicate name       E110 build failure
  E104 missing condition    E111 registration failure
  E105 invalid trigger      E112 unsupported file type
  E106 unknown language     E113 name already registered

Exit codes:
  0 - All definitions are valid
  1 - One or more problems were found
  2 - Command error

Examples:
  ruling validate ./rules
  ruling validate ./rules/checkout.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	files, err := loader.FindFiles(paths...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find definitions", err)
	}

	result := ValidateResult{Files: files, RuleSets: []RuleSetSummary{}}
	res, err := loader.New(loader.WithLogger(opts.Logger(cmd.ErrOrStderr()))).Load(paths...)
	if err != nil {
		var errs loader.ValidationErrors
		if !errors.As(err, &errs) {
			return WrapExitError(ExitCommandError, "failed to load definitions", err)
		}
		for _, e := range errs {
			result.Issues = append(result.Issues, ValidationIssue{
				Code:    e.Code,
				File:    e.File,
				Line:    e.Line,
				Field:   e.Field,
				Message: e.Message,
			})
		}
		if err := f.Error("E_INVALID", fmt.Sprintf("%d problem(s) found", len(errs)), result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d problem(s) found", len(errs)))
	}

	result.Valid = true
	for _, rs := range res.RuleSets {
		result.RuleSets = append(result.RuleSets, RuleSetSummary{
			Name:        rs.Name(),
			Description: rs.Description(),
			Members:     len(rs.Members()),
		})
	}
	return f.Success(result)
}
