package engine

import (
	"strings"

	"github.com/algox/ruling-class-sub004/internal/audit"
	"github.com/algox/ruling-class-sub004/internal/match"
	"github.com/algox/ruling-class-sub004/internal/script"
)

// ConditionFunc is the body of a native condition.
type ConditionFunc func(args Args) (bool, error)

// Condition is a boolean-producing unit. Variants are native functions,
// scripts and compositions; rules and rule sets treat them alike.
//
// Conditions hold no per-run state and may be shared across runs and
// goroutines.
type Condition interface {
	// Name identifies the condition in audit records and errors.
	Name() string

	// Parameters returns the declared signature. Script conditions have
	// none: they see every visible binding.
	Parameters() []match.ParameterDescriptor

	test(c *Context) (bool, error)
	validate() error
}

// NewCondition wraps fn as a condition with the given signature.
func NewCondition(name string, fn ConditionFunc, params ...match.ParameterDescriptor) Condition {
	return &nativeCondition{name: name, fn: fn, params: match.Signature(params...)}
}

type nativeCondition struct {
	name   string
	fn     ConditionFunc
	params []match.ParameterDescriptor
}

func (n *nativeCondition) Name() string { return n.name }

func (n *nativeCondition) Parameters() []match.ParameterDescriptor {
	return append([]match.ParameterDescriptor(nil), n.params...)
}

func (n *nativeCondition) validate() error {
	if n.fn == nil {
		return invalidDefinition(n.name, "condition function is nil")
	}
	if err := match.ValidateSignature(n.params); err != nil {
		return invalidDefinition(n.name, "%v", err)
	}
	return nil
}

func (n *nativeCondition) test(c *Context) (bool, error) {
	start := c.now()
	matches, err := c.resolve(n.params)
	if err != nil {
		c.emit(audit.KindCondition, n.name, "error", nil, err, start)
		return false, err
	}

	var passed bool
	err = c.invoke(n.name, func() error {
		var ferr error
		passed, ferr = n.fn(Args(match.Values(matches)))
		return ferr
	})
	c.emit(audit.KindCondition, n.name, conditionOutcome(passed, err), matches, err, start)
	return passed, err
}

// ScriptCondition evaluates text in lang against every visible binding.
// The script must produce a boolean.
func ScriptCondition(name, lang, text string) Condition {
	return &scriptCondition{name: name, lang: lang, text: text}
}

type scriptCondition struct {
	name, lang, text string
}

func (s *scriptCondition) Name() string                            { return s.name }
func (s *scriptCondition) Parameters() []match.ParameterDescriptor { return nil }

func (s *scriptCondition) validate() error {
	if strings.TrimSpace(s.text) == "" {
		return invalidDefinition(s.name, "script is empty")
	}
	return nil
}

func (s *scriptCondition) test(c *Context) (bool, error) {
	start := c.now()
	var passed bool
	err := c.evaluate(s.name, s.lang, s.text, func(v any) error {
		var terr error
		passed, terr = script.Truthy(v)
		return terr
	})
	c.emit(audit.KindCondition, s.name, conditionOutcome(passed, err), nil, err, start)
	return passed, err
}

func conditionOutcome(passed bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case passed:
		return "pass"
	default:
		return "fail"
	}
}

// And holds when every condition holds. Evaluation stops at the first
// that does not.
func And(conds ...Condition) Condition {
	return &composite{op: "AND", conds: conds}
}

// Or holds when any condition holds. Evaluation stops at the first that
// does.
func Or(conds ...Condition) Condition {
	return &composite{op: "OR", conds: conds}
}

// Not negates cond.
func Not(cond Condition) Condition {
	return &composite{op: "NOT", conds: []Condition{cond}}
}

type composite struct {
	op    string
	conds []Condition
}

func (k *composite) Name() string {
	names := make([]string, len(k.conds))
	for i, c := range k.conds {
		names[i] = c.Name()
	}
	if k.op == "NOT" {
		return "NOT(" + strings.Join(names, "") + ")"
	}
	return "(" + strings.Join(names, " "+k.op+" ") + ")"
}

// Parameters concatenates the operands' signatures.
func (k *composite) Parameters() []match.ParameterDescriptor {
	var out []match.ParameterDescriptor
	for _, c := range k.conds {
		out = append(out, c.Parameters()...)
	}
	return out
}

func (k *composite) validate() error {
	if len(k.conds) == 0 {
		return invalidDefinition(k.op, "composite condition has no operands")
	}
	for _, c := range k.conds {
		if c == nil {
			return invalidDefinition(k.op, "composite condition has a nil operand")
		}
		if err := c.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (k *composite) test(c *Context) (bool, error) {
	switch k.op {
	case "NOT":
		ok, err := k.conds[0].test(c)
		return !ok && err == nil, err
	case "AND":
		for _, cond := range k.conds {
			ok, err := cond.test(c)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	default:
		for _, cond := range k.conds {
			ok, err := cond.test(c)
			if err != nil || ok {
				return ok && err == nil, err
			}
		}
		return false, nil
	}
}

// True always holds.
func True() Condition { return constant(true) }

// False never holds.
func False() Condition { return constant(false) }

type constant bool

func (k constant) Name() string {
	if k {
		return "true"
	}
	return "false"
}

func (constant) Parameters() []match.ParameterDescriptor { return nil }
func (constant) validate() error                         { return nil }
func (k constant) test(*Context) (bool, error)            { return bool(k), nil }
