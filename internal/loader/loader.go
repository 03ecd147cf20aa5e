// Package loader builds rule sets from declarative definition files.
//
// Definitions are YAML or CUE. Conditions and actions are scripts in a
// language registered with the script package; an action may instead
// invoke another rule set by name. A load is all-or-nothing: every file is
// validated first, every problem is reported as a ValidationError with an
// E1xx code, and rule sets are only built and registered when the whole
// load is clean.
//
// Example YAML:
//
//	language: cel
//	rulesets:
//	  - name: checkout
//	    rules:
//	      - name: bigSpender
//	        given: "y > 10"
//	        actions:
//	          - trigger: ON_PASS
//	            language: expr
//	            script: '{"discount": z / 10}'
package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/algox/ruling-class-sub004/internal/engine"
	"github.com/algox/ruling-class-sub004/internal/registry"
	"github.com/algox/ruling-class-sub004/internal/script"
)

// DefaultLanguage is used when a file names no language.
const DefaultLanguage = script.LangCEL

// Loader reads, validates and builds definitions.
type Loader struct {
	scripts  *script.Registry
	registry *registry.Registry
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithScripts sets the languages definitions may use. Defaults to
// script.Standard().
func WithScripts(r *script.Registry) Option {
	return func(l *Loader) { l.scripts = r }
}

// WithRegistry registers built rule sets into r. Invoke targets may also
// name anything already in r.
func WithRegistry(r *registry.Registry) Option {
	return func(l *Loader) { l.registry = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New returns a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.scripts == nil {
		l.scripts = script.Standard()
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Result is a successful load.
type Result struct {
	Files    []*File
	RuleSets []*engine.RuleSet
}

// RuleSet returns the loaded rule set named name, or nil.
func (r *Result) RuleSet(name string) *engine.RuleSet {
	for _, rs := range r.RuleSets {
		if rs.Name() == name {
			return rs
		}
	}
	return nil
}

// Load reads every definition file under paths, validates and builds
// them, and registers the rule sets when a registry is configured. The
// error, when not nil, is ValidationErrors.
func (l *Loader) Load(paths ...string) (*Result, error) {
	names, err := FindFiles(paths...)
	if err != nil {
		return nil, ValidationErrors{{Code: ErrParse, Message: err.Error()}}
	}

	var (
		files []*File
		errs  ValidationErrors
	)
	for _, name := range names {
		f, err := ReadFile(name)
		if err != nil {
			errs = append(errs, asValidationError(name, err))
			continue
		}
		files = append(files, f)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	sets, err := l.Build(files...)
	if err != nil {
		return nil, err
	}
	if err := l.Register(sets); err != nil {
		return nil, err
	}

	l.logger.Debug("definitions loaded", "files", len(files), "rulesets", len(sets))
	return &Result{Files: files, RuleSets: sets}, nil
}

// Build validates files and turns them into rule sets.
func (l *Loader) Build(files ...*File) ([]*engine.RuleSet, error) {
	if errs := l.Validate(files...); len(errs) > 0 {
		return nil, errs
	}

	var (
		sets []*engine.RuleSet
		errs ValidationErrors
	)
	for _, f := range files {
		lang := fileLanguage(f)
		for i, def := range f.RuleSets {
			rs, err := buildRuleSet(def, lang)
			if err != nil {
				errs = append(errs, &ValidationError{
					Code:    ErrBuild,
					File:    f.Path,
					Field:   fmt.Sprintf("rulesets[%d]", i),
					Message: err.Error(),
				})
				continue
			}
			sets = append(sets, rs)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return sets, nil
}

// Register adds sets to the configured registry, all of them or none.
// Without a registry it does nothing.
func (l *Loader) Register(sets []*engine.RuleSet) error {
	if l.registry == nil {
		return nil
	}
	runnables := make([]engine.Runnable, len(sets))
	for i, rs := range sets {
		runnables[i] = rs
	}
	err := l.registry.RegisterAll(runnables...)
	if err == nil {
		return nil
	}
	causes := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		causes = joined.Unwrap()
	}
	var errs ValidationErrors
	for _, cause := range causes {
		ve := &ValidationError{Code: ErrRegister, Message: cause.Error()}
		var are *registry.AlreadyRegisteredError
		if errors.As(cause, &are) {
			ve.Field = are.Name
		}
		errs = append(errs, ve)
	}
	return errs
}

// Validate reports every problem in files without building anything.
func (l *Loader) Validate(files ...*File) ValidationErrors {
	v := &validator{
		scripts:  l.scripts,
		registry: l.registry,
		defined:  make(map[string]string),
	}
	for _, f := range files {
		for _, def := range f.RuleSets {
			if def.Name != "" {
				if _, ok := v.defined[def.Name]; !ok {
					v.defined[def.Name] = f.Path
				}
			}
		}
	}
	for _, f := range files {
		v.file(f)
	}
	return v.errs
}

func asValidationError(path string, err error) *ValidationError {
	if ve, ok := err.(*ValidationError); ok {
		return ve
	}
	return &ValidationError{Code: ErrParse, File: path, Message: err.Error()}
}

func fileLanguage(f *File) string {
	if strings.TrimSpace(f.Language) == "" {
		return DefaultLanguage
	}
	return f.Language
}
