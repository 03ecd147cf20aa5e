package loader

import (
	"fmt"

	"github.com/algox/ruling-class-sub004/internal/engine"
)

func buildRuleSet(def RuleSetDef, lang string) (*engine.RuleSet, error) {
	b := engine.NewRuleSet(def.Name).Description(def.Description)

	if def.PreCondition != nil {
		b.PreCondition(condition(*def.PreCondition, def.Name+".pre_condition", lang))
	}
	if def.PreAction != nil {
		b.PreAction(action(*def.PreAction, def.Name+".pre_action", lang))
	}
	for _, rd := range def.Rules {
		r, err := buildRule(rd, lang)
		if err != nil {
			return nil, err
		}
		b.Rule(r)
	}
	if def.StopCondition != nil {
		b.StopCondition(condition(*def.StopCondition, def.Name+".stop_condition", lang))
	}
	if def.ErrorCondition != nil {
		b.ErrorCondition(condition(*def.ErrorCondition, def.Name+".error_condition", lang))
	}
	if def.PostAction != nil {
		b.PostAction(action(*def.PostAction, def.Name+".post_action", lang))
	}
	return b.Build()
}

func buildRule(def RuleDef, lang string) (*engine.Rule, error) {
	b := engine.NewRule(def.Name).
		Description(def.Description).
		Given(condition(*def.Given, def.Name+".given", lang))

	for i, ad := range def.Actions {
		trigger := engine.OnPass
		if ad.Trigger != "" {
			t, err := engine.ParseTrigger(ad.Trigger)
			if err != nil {
				return nil, err
			}
			trigger = t
		}
		b.Action(action(ad, fmt.Sprintf("%s.actions[%d]", def.Name, i), lang), trigger, ad.Order)
	}
	return b.Build()
}

func condition(s Script, fallbackName, lang string) engine.Condition {
	name := s.Name
	if name == "" {
		name = fallbackName
	}
	if s.Language != "" {
		lang = s.Language
	}
	return engine.ScriptCondition(name, lang, s.Source)
}

// action builds a script action, or a run action when Invoke is set. Run
// actions are named after their target.
func action(a ActionDef, fallbackName, lang string) engine.Action {
	if a.Invoke != "" {
		return engine.RunRuleSetAction(a.Invoke)
	}
	name := a.Name
	if name == "" {
		name = fallbackName
	}
	if a.Language != "" {
		lang = a.Language
	}
	return engine.ScriptAction(name, lang, a.Script)
}
