package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one conformance test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Definitions lists definition files or directories to load.
	// Relative paths are resolved against the scenario file.
	Definitions []string `yaml:"definitions"`

	// RuleSet is the registered name to run.
	RuleSet string `yaml:"ruleset"`

	// RunID is a fixed run ID for deterministic traces. Defaults to
	// testutil.DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Bindings are bound before the run, with types taken from the values.
	Bindings map[string]any `yaml:"bindings,omitempty"`

	Expect ExpectClause `yaml:"expect"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectClause describes the expected end of a run.
type ExpectClause struct {
	// Outcome is the rule set's outcome (PASS, SKIPPED, STOPPED, ...).
	Outcome string `yaml:"outcome"`

	// Error is the expected error code, such as UNRESOLVED_PARAMETER.
	// Empty means the run must succeed.
	Error string `yaml:"error,omitempty"`

	// Bindings is a subset of the final binding values.
	Bindings map[string]any `yaml:"bindings,omitempty"`

	// Absent lists names that must not be bound after the run.
	Absent []string `yaml:"absent,omitempty"`
}

// Assertion validates the audit trace.
type Assertion struct {
	// Type is trace_contains, trace_order or trace_count.
	Type string `yaml:"type"`

	// Unit is the unit name (trace_contains, trace_count).
	Unit string `yaml:"unit,omitempty"`

	// Kind narrows a match to condition, action, rule or ruleset.
	Kind string `yaml:"kind,omitempty"`

	// Outcome narrows a match to one unit outcome (trace_contains).
	Outcome string `yaml:"outcome,omitempty"`

	// Params is a subset of the rendered parameter values (trace_contains).
	Params map[string]string `yaml:"params,omitempty"`

	// Units is the expected order (trace_order).
	Units []string `yaml:"units,omitempty"`

	// Count is the expected number of records (trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file, resolving
// definition paths against the file's directory.
//
// Unknown fields are rejected so typos like "assertion:" fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	return loadScenario(path, filepath.Dir(path), "")
}

// LoadScenarioWithDefinitions is LoadScenario with relative definition
// paths resolved against defsDir. A scenario that lists no definitions
// loads all of defsDir.
func LoadScenarioWithDefinitions(path, defsDir string) (*Scenario, error) {
	return loadScenario(path, defsDir, defsDir)
}

func loadScenario(path, base, fallback string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(scenario.Definitions) == 0 && fallback != "" {
		scenario.Definitions = []string{fallback}
	} else {
		for i, def := range scenario.Definitions {
			if !filepath.IsAbs(def) {
				scenario.Definitions[i] = filepath.Join(base, def)
			}
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file in dir, in lexical order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	var scenarios []*Scenario
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
		default:
			continue
		}
		s, err := LoadScenario(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.RuleSet == "" {
		return fmt.Errorf("ruleset is required")
	}
	if len(s.Definitions) == 0 {
		return fmt.Errorf("definitions list is required and must be non-empty")
	}
	if s.Expect.Outcome == "" {
		return fmt.Errorf("expect.outcome is required")
	}

	for _, def := range s.Definitions {
		if _, err := os.Stat(def); os.IsNotExist(err) {
			return fmt.Errorf("definitions not found: %s", def)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Unit == "" {
			return fmt.Errorf("assertions[%d]: unit is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Units) == 0 {
			return fmt.Errorf("assertions[%d]: units list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Unit == "" {
			return fmt.Errorf("assertions[%d]: unit is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
