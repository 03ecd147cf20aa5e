package engine

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/algox/ruling-class-sub004/internal/audit"
	"github.com/algox/ruling-class-sub004/internal/bind"
	"github.com/algox/ruling-class-sub004/internal/match"
)

// ActionFunc is the body of a native action.
type ActionFunc func(args Args) error

// Action is a side-effecting unit. Variants are native functions, scripts,
// binding updates and dynamic rule set invocations.
type Action interface {
	Name() string
	Parameters() []match.ParameterDescriptor

	run(c *Context) error
	validate() error
}

// NewAction wraps fn as an action with the given signature.
func NewAction(name string, fn ActionFunc, params ...match.ParameterDescriptor) Action {
	return &nativeAction{name: name, fn: fn, params: match.Signature(params...)}
}

type nativeAction struct {
	name   string
	fn     ActionFunc
	params []match.ParameterDescriptor
}

func (n *nativeAction) Name() string { return n.name }

func (n *nativeAction) Parameters() []match.ParameterDescriptor {
	return append([]match.ParameterDescriptor(nil), n.params...)
}

func (n *nativeAction) validate() error {
	if n.fn == nil {
		return invalidDefinition(n.name, "action function is nil")
	}
	if err := match.ValidateSignature(n.params); err != nil {
		return invalidDefinition(n.name, "%v", err)
	}
	return nil
}

func (n *nativeAction) run(c *Context) error {
	start := c.now()
	matches, err := c.resolve(n.params)
	if err != nil {
		c.emit(audit.KindAction, n.name, "error", nil, err, start)
		return err
	}
	err = c.invoke(n.name, func() error {
		return n.fn(Args(match.Values(matches)))
	})
	c.emit(audit.KindAction, n.name, actionOutcome(err), matches, err, start)
	return err
}

// ScriptAction evaluates text in lang against every visible binding.
//
// If the script produces a map, each entry updates the binding of the same
// name (converted to its declared type), or declares a new binding in the
// current scope when none is visible. Any other result is ignored.
func ScriptAction(name, lang, text string) Action {
	return &scriptAction{name: name, lang: lang, text: text}
}

type scriptAction struct {
	name, lang, text string
}

func (s *scriptAction) Name() string                            { return s.name }
func (s *scriptAction) Parameters() []match.ParameterDescriptor { return nil }

func (s *scriptAction) validate() error {
	if strings.TrimSpace(s.text) == "" {
		return invalidDefinition(s.name, "script is empty")
	}
	return nil
}

func (s *scriptAction) run(c *Context) error {
	start := c.now()
	err := c.evaluate(s.name, s.lang, s.text, func(v any) error {
		updates, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		return c.apply(updates)
	})
	c.emit(audit.KindAction, s.name, actionOutcome(err), nil, err, start)
	return err
}

// apply writes updates into the bindings in sorted key order.
func (c *Context) apply(updates map[string]any) error {
	conv := c.resolver.Converter()
	for _, name := range slices.Sorted(maps.Keys(updates)) {
		value := updates[name]
		existing := c.bindings.Get(name)
		if existing == nil {
			if value == nil {
				if err := c.bindings.Bind(name, bind.AnyType, nil); err != nil {
					return err
				}
				continue
			}
			if err := c.bindings.BindValue(name, value); err != nil {
				return err
			}
			continue
		}
		converted, err := conv.Convert(value, existing.Type())
		if err != nil {
			return fmt.Errorf("update %s: %w", name, err)
		}
		if err := existing.SetValue(converted); err != nil {
			return err
		}
	}
	return nil
}

// BindAction sets name to value, declaring it in the current scope if no
// binding is visible.
func BindAction(name string, value any) Action {
	return &bindAction{name: name, value: value}
}

type bindAction struct {
	name  string
	value any
}

func (b *bindAction) Name() string                            { return "bind:" + b.name }
func (b *bindAction) Parameters() []match.ParameterDescriptor { return nil }

func (b *bindAction) validate() error {
	if b.name == "" {
		return invalidDefinition("bind", "binding name is empty")
	}
	return nil
}

func (b *bindAction) run(c *Context) error {
	start := c.now()
	err := c.invoke(b.Name(), func() error {
		return c.apply(map[string]any{b.name: b.value})
	})
	c.emit(audit.KindAction, b.Name(), actionOutcome(err), nil, err, start)
	return err
}

// RunRuleSetAction invokes the named rule or rule set through the
// context's registry, sharing the current bindings.
func RunRuleSetAction(target string) Action {
	return &runAction{target: target}
}

type runAction struct {
	target string
}

func (r *runAction) Name() string                            { return "run:" + r.target }
func (r *runAction) Parameters() []match.ParameterDescriptor { return nil }

func (r *runAction) validate() error {
	if r.target == "" {
		return invalidDefinition("run", "target name is empty")
	}
	return nil
}

func (r *runAction) run(c *Context) error {
	start := c.now()
	_, err := c.RunByName(r.target)
	c.emit(audit.KindAction, r.Name(), actionOutcome(err), nil, err, start)
	return err
}

func actionOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
