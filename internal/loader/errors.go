package loader

import (
	"fmt"
	"strings"
)

// Validation error codes (E100-E199)
const (
	ErrParse            = "E100" // YAML or CUE syntax error
	ErrSchema           = "E101" // CUE schema violation
	ErrMissingName      = "E102" // rule set or rule has no name
	ErrDuplicateName    = "E103" // name defined twice
	ErrMissingCondition = "E104" // rule has no given
	ErrInvalidTrigger   = "E105" // unknown trigger
	ErrUnknownLanguage  = "E106" // script language not registered
	ErrEmptyScript      = "E107" // blank script text
	ErrActionBody       = "E108" // action needs exactly one of script and invoke
	ErrUnknownTarget    = "E109" // invoke names nothing loaded or registered
	ErrBuild            = "E110" // engine rejected the definition
	ErrRegister         = "E111" // registry rejected the load
	ErrUnsupportedFile  = "E112" // extension is not .yaml, .yml or .cue
	ErrNameInUse        = "E113" // rule set name already in the registry
)

// ValidationError is one problem found in a definition file.
type ValidationError struct {
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", e.Code)
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ValidationErrors collects every problem found in a load.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Codes returns the error codes in order, for assertions.
func (es ValidationErrors) Codes() []string {
	codes := make([]string, len(es))
	for i, e := range es {
		codes[i] = e.Code
	}
	return codes
}

func (es ValidationErrors) orNil() error {
	if len(es) == 0 {
		return nil
	}
	return es
}
