package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	out, err := execute(t, "validate", "testdata/rules")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 2 file(s), 2 rule set(s)")
	assert.Contains(t, out, "  orders (2 members) - Price an order by size and weight")
	assert.Contains(t, out, "  broken (1 members)")
}

func TestValidate_Invalid(t *testing.T) {
	dir := t.TempDir()
	bad := `rulesets:
  - name: a
    rules:
      - name: r
        actions:
          - trigger: ON_MAYBE
            script: "{}"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o644))

	out, err := execute(t, "validate", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, details := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_INVALID", resp.Error.Code)
	assert.Equal(t, false, details["valid"])

	var codes []string
	for _, issue := range details["issues"].([]any) {
		codes = append(codes, issue.(map[string]any)["code"].(string))
	}
	assert.Equal(t, []string{"E104", "E105"}, codes)
}

func TestValidate_TextIssues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.json"), []byte("{}"), 0o644))

	out, err := execute(t, "validate", filepath.Join(dir, "rules.json"))
	require.Error(t, err)
	assert.Contains(t, out, "✗ [E112]")
	assert.Contains(t, out, "Error [E_INVALID]: 1 problem(s) found")
}

func TestValidate_MissingPath(t *testing.T) {
	_, err := execute(t, "validate", "testdata/nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
