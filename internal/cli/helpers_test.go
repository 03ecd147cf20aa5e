package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse parses a --format json response.
func decodeResponse(t *testing.T, out string) (CLIResponse, map[string]any) {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if resp.Data != nil {
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok, "data is an object: %s", out)
		return resp, data
	}
	if resp.Error != nil && resp.Error.Details != nil {
		details, ok := resp.Error.Details.(map[string]any)
		require.True(t, ok, "details is an object: %s", out)
		return resp, details
	}
	return resp, nil
}
