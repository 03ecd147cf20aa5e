package loader

import (
	"fmt"
	"strings"

	"github.com/algox/ruling-class-sub004/internal/engine"
	"github.com/algox/ruling-class-sub004/internal/registry"
	"github.com/algox/ruling-class-sub004/internal/script"
)

type validator struct {
	scripts  *script.Registry
	registry *registry.Registry

	// defined maps every rule set name in the load to its first file.
	defined map[string]string
	seen    map[string]bool

	path string
	errs ValidationErrors
}

func (v *validator) fail(code, field, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{
		Code:    code,
		File:    v.path,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) file(f *File) {
	v.path = f.Path
	if v.seen == nil {
		v.seen = make(map[string]bool)
	}

	lang := fileLanguage(f)
	if _, ok := v.scripts.Lookup(lang); !ok {
		v.fail(ErrUnknownLanguage, "language", "unknown script language %q", lang)
	}

	for i, def := range f.RuleSets {
		v.ruleSet(fmt.Sprintf("rulesets[%d]", i), def)
	}
}

func (v *validator) ruleSet(field string, def RuleSetDef) {
	switch {
	case strings.TrimSpace(def.Name) == "":
		v.fail(ErrMissingName, field+".name", "rule set name is required")
	case v.seen[def.Name]:
		v.fail(ErrDuplicateName, field+".name", "rule set %q is defined more than once", def.Name)
	case v.registry != nil && v.registry.IsNameInUse(def.Name):
		v.seen[def.Name] = true
		v.fail(ErrNameInUse, field+".name", "rule set %q is already registered", def.Name)
	default:
		v.seen[def.Name] = true
	}

	v.optionalScript(field+".pre_condition", def.PreCondition)
	v.optionalScript(field+".stop_condition", def.StopCondition)
	v.optionalScript(field+".error_condition", def.ErrorCondition)
	if def.PreAction != nil {
		v.action(field+".pre_action", *def.PreAction, false)
	}
	if def.PostAction != nil {
		v.action(field+".post_action", *def.PostAction, false)
	}

	rules := make(map[string]bool)
	for i, r := range def.Rules {
		rf := fmt.Sprintf("%s.rules[%d]", field, i)
		switch {
		case strings.TrimSpace(r.Name) == "":
			v.fail(ErrMissingName, rf+".name", "rule name is required")
		case rules[r.Name] || r.Name == def.Name:
			v.fail(ErrDuplicateName, rf+".name", "rule %q clashes with another member or the rule set", r.Name)
		default:
			rules[r.Name] = true
		}

		if r.Given == nil {
			v.fail(ErrMissingCondition, rf+".given", "rule %q has no condition", r.Name)
		} else {
			v.script(rf+".given", *r.Given)
		}
		for j, a := range r.Actions {
			v.action(fmt.Sprintf("%s.actions[%d]", rf, j), a, true)
		}
	}
}

func (v *validator) optionalScript(field string, s *Script) {
	if s != nil {
		v.script(field, *s)
	}
}

func (v *validator) script(field string, s Script) {
	if strings.TrimSpace(s.Source) == "" {
		v.fail(ErrEmptyScript, field, "script is empty")
	}
	v.language(field, s.Language)
}

// language checks an explicit override; an empty one means the file's
// language, which file already checked.
func (v *validator) language(field, lang string) {
	if lang == "" {
		return
	}
	if _, ok := v.scripts.Lookup(lang); !ok {
		v.fail(ErrUnknownLanguage, field+".language", "unknown script language %q", lang)
	}
}

// action checks one action. Only rule actions carry a trigger.
func (v *validator) action(field string, a ActionDef, triggered bool) {
	hasScript := strings.TrimSpace(a.Script) != ""
	hasInvoke := strings.TrimSpace(a.Invoke) != ""
	if hasScript == hasInvoke {
		v.fail(ErrActionBody, field, "action needs exactly one of script and invoke")
	}
	if hasScript {
		v.language(field, a.Language)
	}
	if hasInvoke && !v.known(a.Invoke) {
		v.fail(ErrUnknownTarget, field+".invoke", "nothing named %q is defined or registered", a.Invoke)
	}

	if a.Trigger != "" {
		if !triggered {
			v.fail(ErrInvalidTrigger, field+".trigger", "only rule actions take a trigger")
		} else if _, err := engine.ParseTrigger(a.Trigger); err != nil {
			v.fail(ErrInvalidTrigger, field+".trigger", "%v", err)
		}
	}
}

func (v *validator) known(name string) bool {
	if _, ok := v.defined[name]; ok {
		return true
	}
	return v.registry != nil && v.registry.IsNameInUse(name)
}
