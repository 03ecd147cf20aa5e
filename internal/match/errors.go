package match

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ResolutionErrorCode categorizes parameter resolution failures.
type ResolutionErrorCode string

const (
	// ErrCodeUnresolved indicates a required parameter had no match.
	ErrCodeUnresolved ResolutionErrorCode = "UNRESOLVED_PARAMETER"

	// ErrCodeAmbiguous indicates a parameter matched more than one binding.
	ErrCodeAmbiguous ResolutionErrorCode = "AMBIGUOUS_BINDING"

	// ErrCodeConversion indicates the matched value could not be converted
	// to the declared type.
	ErrCodeConversion ResolutionErrorCode = "CONVERSION_FAILED"
)

// ResolutionError is returned when a parameter cannot be resolved. It is
// always raised before the unit is invoked.
type ResolutionError struct {
	Code       ResolutionErrorCode
	Parameter  ParameterDescriptor
	Candidates []string
	Err        error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: parameter %d (%s)", e.Code, e.Parameter.Index, e.Parameter)
	if len(e.Candidates) > 0 {
		fmt.Fprintf(&sb, " candidates=[%s]", strings.Join(e.Candidates, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ConversionError reports a value that cannot be coerced to a type.
type ConversionError struct {
	Value any
	From  reflect.Type
	To    reflect.Type
	Err   error
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("cannot convert %v (%v) to %v", e.Value, e.From, e.To)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying parse error, if any.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ResolutionErrorCode) bool {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsResolutionError reports whether err is any ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

// IsUnresolvedError reports whether err is an UNRESOLVED_PARAMETER error.
func IsUnresolvedError(err error) bool {
	return hasCode(err, ErrCodeUnresolved)
}

// IsAmbiguousError reports whether err is an AMBIGUOUS_BINDING error.
func IsAmbiguousError(err error) bool {
	return hasCode(err, ErrCodeAmbiguous)
}

// IsConversionError reports whether err is a conversion failure, raised
// either by the resolver or directly by a Converter.
func IsConversionError(err error) bool {
	if hasCode(err, ErrCodeConversion) {
		return true
	}
	var ce *ConversionError
	return errors.As(err, &ce)
}
