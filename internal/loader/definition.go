package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// File is one definition file.
type File struct {
	// Path is set by the loader, not read from the file.
	Path string `yaml:"-"`

	// Language is the default script language; "cel" when empty.
	Language string `yaml:"language,omitempty"`

	RuleSets []RuleSetDef `yaml:"rulesets"`
}

// RuleSetDef declares a rule set.
type RuleSetDef struct {
	Name           string     `yaml:"name"`
	Description    string     `yaml:"description,omitempty"`
	PreCondition   *Script    `yaml:"pre_condition,omitempty"`
	PreAction      *ActionDef `yaml:"pre_action,omitempty"`
	Rules          []RuleDef  `yaml:"rules"`
	StopCondition  *Script    `yaml:"stop_condition,omitempty"`
	ErrorCondition *Script    `yaml:"error_condition,omitempty"`
	PostAction     *ActionDef `yaml:"post_action,omitempty"`
}

// RuleDef declares a rule: one condition and any number of triggered
// actions.
type RuleDef struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Given       *Script     `yaml:"given"`
	Actions     []ActionDef `yaml:"actions,omitempty"`
}

// ActionDef declares an action. Exactly one of Script and Invoke is set.
// Invoke runs a registered rule or rule set by name.
type ActionDef struct {
	Name     string `yaml:"name,omitempty"`
	Trigger  string `yaml:"trigger,omitempty"`
	Order    int    `yaml:"order,omitempty"`
	Language string `yaml:"language,omitempty"`
	Script   string `yaml:"script,omitempty"`
	Invoke   string `yaml:"invoke,omitempty"`
}

// Script is a condition body. In a file it is either a bare string in the
// file's language or a mapping with name, language and script.
type Script struct {
	Name     string `yaml:"name,omitempty"`
	Language string `yaml:"language,omitempty"`
	Source   string `yaml:"script"`
}

// UnmarshalYAML accepts the scalar and mapping forms.
func (s *Script) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s.Source = node.Value
		return nil
	case yaml.MappingNode:
		type plain Script
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*s = Script(p)
		return nil
	default:
		return fmt.Errorf("line %d: script must be a string or a mapping", node.Line)
	}
}
