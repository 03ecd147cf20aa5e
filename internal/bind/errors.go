package bind

import (
	"errors"
	"fmt"
)

// BindingErrorCode categorizes binding store errors.
type BindingErrorCode string

const (
	// ErrCodeDuplicateName indicates a name is already bound in the current scope.
	ErrCodeDuplicateName BindingErrorCode = "DUPLICATE_BINDING_NAME"

	// ErrCodeUnknownBinding indicates no visible binding has the requested name.
	ErrCodeUnknownBinding BindingErrorCode = "UNKNOWN_BINDING"

	// ErrCodeInvalidUpdate indicates a value update was rejected (type
	// mismatch or read-only binding).
	ErrCodeInvalidUpdate BindingErrorCode = "INVALID_BINDING_UPDATE"

	// ErrCodeInvalidBinding indicates a binding could not be created
	// (reserved or malformed name, value not assignable to the type).
	ErrCodeInvalidBinding BindingErrorCode = "INVALID_BINDING"

	// ErrCodeRootScope indicates an attempt to remove the root scope.
	ErrCodeRootScope BindingErrorCode = "ROOT_SCOPE"
)

// BindingError is returned by every failing binding store operation.
type BindingError struct {
	Code    BindingErrorCode
	Name    string
	Message string
}

// Error implements the error interface.
func (e *BindingError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (binding=%s)", e.Code, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newBindingError(code BindingErrorCode, name, format string, args ...any) *BindingError {
	return &BindingError{
		Code:    code,
		Name:    name,
		Message: fmt.Sprintf(format, args...),
	}
}

func hasCode(err error, code BindingErrorCode) bool {
	var be *BindingError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// IsDuplicateNameError reports whether err is a DUPLICATE_BINDING_NAME error.
func IsDuplicateNameError(err error) bool {
	return hasCode(err, ErrCodeDuplicateName)
}

// IsUnknownBindingError reports whether err is an UNKNOWN_BINDING error.
func IsUnknownBindingError(err error) bool {
	return hasCode(err, ErrCodeUnknownBinding)
}

// IsInvalidUpdateError reports whether err is an INVALID_BINDING_UPDATE error.
func IsInvalidUpdateError(err error) bool {
	return hasCode(err, ErrCodeInvalidUpdate)
}

// IsInvalidBindingError reports whether err is an INVALID_BINDING error.
func IsInvalidBindingError(err error) bool {
	return hasCode(err, ErrCodeInvalidBinding)
}
