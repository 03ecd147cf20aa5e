package engine

import (
	"errors"
	"fmt"

	"github.com/algox/ruling-class-sub004/internal/bind"
	"github.com/algox/ruling-class-sub004/internal/match"
)

// ExecutionErrorCode categorizes execution errors.
type ExecutionErrorCode string

const (
	// ErrCodeRuleExecution wraps an error or panic raised by a condition or
	// action body.
	ErrCodeRuleExecution ExecutionErrorCode = "RULE_EXECUTION"

	// ErrCodeScriptUnavailable indicates no evaluator is registered for a
	// script's language.
	ErrCodeScriptUnavailable ExecutionErrorCode = "SCRIPT_UNAVAILABLE"

	// ErrCodeMaxDepth indicates nested rule set invocations went too deep.
	ErrCodeMaxDepth ExecutionErrorCode = "MAX_DEPTH_EXCEEDED"

	// ErrCodeUnknownRunnable indicates a dynamic invocation named a rule or
	// rule set the registry does not hold.
	ErrCodeUnknownRunnable ExecutionErrorCode = "UNKNOWN_RUNNABLE"

	// ErrCodeInvalidDefinition indicates a builder was given an incomplete
	// or inconsistent definition.
	ErrCodeInvalidDefinition ExecutionErrorCode = "INVALID_DEFINITION"
)

// ExecutionError is raised while building or running rules.
type ExecutionError struct {
	// Code identifies the error category.
	Code ExecutionErrorCode

	// Message is a human-readable description.
	Message string

	// Unit names the condition, action, rule or rule set involved.
	Unit string

	// RunID identifies the affected run, empty for build errors.
	RunID string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Unit != "" {
		msg += fmt.Sprintf(" (unit=%s)", e.Unit)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ExecutionErrorCode) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsRuleExecutionError reports whether err wraps a unit body failure.
func IsRuleExecutionError(err error) bool {
	return hasCode(err, ErrCodeRuleExecution)
}

// IsScriptUnavailableError reports whether err is a SCRIPT_UNAVAILABLE error.
func IsScriptUnavailableError(err error) bool {
	return hasCode(err, ErrCodeScriptUnavailable)
}

// IsMaxDepthError reports whether err is a MAX_DEPTH_EXCEEDED error.
func IsMaxDepthError(err error) bool {
	return hasCode(err, ErrCodeMaxDepth)
}

// IsUnknownRunnableError reports whether err is an UNKNOWN_RUNNABLE error.
func IsUnknownRunnableError(err error) bool {
	return hasCode(err, ErrCodeUnknownRunnable)
}

// IsInvalidDefinitionError reports whether err is an INVALID_DEFINITION error.
func IsInvalidDefinitionError(err error) bool {
	return hasCode(err, ErrCodeInvalidDefinition)
}

func invalidDefinition(unit, format string, args ...any) *ExecutionError {
	return &ExecutionError{
		Code:    ErrCodeInvalidDefinition,
		Message: fmt.Sprintf(format, args...),
		Unit:    unit,
	}
}

// ErrorCode extracts the code of the outermost typed error in err's chain:
// execution, resolution or binding errors. Empty if there is none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	var re *match.ResolutionError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	var be *bind.BindingError
	if errors.As(err, &be) {
		return string(be.Code)
	}
	return ""
}
