package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "defs.yaml"), []byte("rulesets: []\n"), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "bulk_parcel.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "bulk_parcel", s.Name)
	assert.Equal(t, "orders", s.RuleSet)
	assert.Equal(t, "run-bulk-parcel", s.RunID)
	assert.Equal(t, []string{filepath.Join("testdata", "definitions", "orders.yaml")}, s.Definitions)
	assert.Equal(t, 12, s.Bindings["items"])
	assert.Equal(t, "PASS", s.Expect.Outcome)
	assert.Equal(t, "parcel", s.Expect.Bindings["shipping"])
	require.Len(t, s.Assertions, 5)
	assert.Equal(t, []string{"hasItems", "bulk", "shipping", "summarize", "orders"}, s.Assertions[2].Units)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown field",
			body: "name: x\nruleset: r\ndefinitions: [defs.yaml]\nexpect: {outcome: PASS}\nassertion: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			body: "ruleset: r\ndefinitions: [defs.yaml]\nexpect: {outcome: PASS}\n",
			want: "name is required",
		},
		{
			name: "missing ruleset",
			body: "name: x\ndefinitions: [defs.yaml]\nexpect: {outcome: PASS}\n",
			want: "ruleset is required",
		},
		{
			name: "no definitions",
			body: "name: x\nruleset: r\nexpect: {outcome: PASS}\n",
			want: "definitions list is required",
		},
		{
			name: "missing definitions file",
			body: "name: x\nruleset: r\ndefinitions: [nope.yaml]\nexpect: {outcome: PASS}\n",
			want: "definitions not found",
		},
		{
			name: "missing outcome",
			body: "name: x\nruleset: r\ndefinitions: [defs.yaml]\nexpect: {}\n",
			want: "expect.outcome is required",
		},
		{
			name: "unknown assertion",
			body: "name: x\nruleset: r\ndefinitions: [defs.yaml]\nexpect: {outcome: PASS}\nassertions: [{type: trace_maybe}]\n",
			want: `unknown assertion type "trace_maybe"`,
		},
		{
			name: "trace_order without units",
			body: "name: x\nruleset: r\ndefinitions: [defs.yaml]\nexpect: {outcome: PASS}\nassertions: [{type: trace_order}]\n",
			want: "units list is required",
		},
		{
			name: "negative count",
			body: "name: x\nruleset: r\ndefinitions: [defs.yaml]\nexpect: {outcome: PASS}\nassertions: [{type: trace_count, unit: u, count: -1}]\n",
			want: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarioWithDefinitions(t *testing.T) {
	defs := filepath.Join("testdata", "definitions")

	path := writeScenario(t, "name: x\nruleset: orders\nexpect: {outcome: PASS}\n")
	s, err := LoadScenarioWithDefinitions(path, defs)
	require.NoError(t, err)
	assert.Equal(t, []string{defs}, s.Definitions)

	path = writeScenario(t, "name: x\nruleset: orders\ndefinitions: [orders.yaml]\nexpect: {outcome: PASS}\n")
	s, err = LoadScenarioWithDefinitions(path, defs)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(defs, "orders.yaml")}, s.Definitions)
}
