package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	out, err := execute(t, "validate", enterGame)
	require.NoError(t, err)
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "is valid (3 events)")
	// start -> retry -> start is reported, not rejected
	assert.Contains(t, out, "[cycle]")
}

func TestValidate_ValidJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", dailyRewards)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "daily_rewards", resp.Data.Module)
	assert.Len(t, resp.Data.Hash, 64)
}

func TestValidate_Invalid(t *testing.T) {
	path := writeFile(t, "bad.json", badReferenceConfig)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E103 events[0].next_event")
}

func TestValidate_InvalidJSON(t *testing.T) {
	path := writeFile(t, "bad.json", badReferenceConfig)

	out, err := execute(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "E103", resp.Data.Errors[0].Code)
	assert.Equal(t, "E103", resp.Error.Code)
}

func TestValidate_NotJSON(t *testing.T) {
	path := writeFile(t, "bad.json", "{not json")

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E002")
}

func TestValidate_MissingFile(t *testing.T) {
	out, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E201]")
}

func TestValidate_RequiresOneArg(t *testing.T) {
	_, err := execute(t, "validate")
	require.Error(t, err)
}
