package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt", "nested/c.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	paths, err := DiscoverScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, paths)

	single, err := DiscoverScenarios(filepath.Join(dir, "b.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.yaml")}, single)

	_, err = DiscoverScenarios(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRunSuite_Demo(t *testing.T) {
	result, err := New().RunSuite(context.Background(), scenariosDir, "")
	require.NoError(t, err)

	assert.Zero(t, result.Failed, "failures: %+v", result.Failures)
	assert.Equal(t, result.Total, result.Passed)
	assert.Equal(t, 8, result.Total)
}

func TestRunSuite_Filter(t *testing.T) {
	result, err := New().RunSuite(context.Background(), scenariosDir, "daily_rewards")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Passed)
	assert.Equal(t, 5, result.Skipped)
}

func TestRunSuite_CollectsFailures(t *testing.T) {
	dir := t.TempDir()
	cfg, err := filepath.Abs("../../testdata/configs/enter_game.json")
	require.NoError(t, err)

	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("broken.yaml", "name: [\n")
	write("wrong.yaml", "name: wrong\ndescription: d\nconfig: "+cfg+"\nscreen: [{element: 'text:Start'}]\nexpect: {status: failed}\n")
	write("ok.yaml", "name: ok\ndescription: d\nconfig: "+cfg+"\nscreen: [{element: 'text:Start'}]\nexpect: {status: exited, reason: done}\n")

	result, err := New().RunSuite(context.Background(), dir, "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Failures, 2)
	assert.Contains(t, result.Failures[0].Errors[0], "failed to load scenario")
	assert.Equal(t, "wrong", result.Failures[1].Scenario)
}

func TestRunSuite_Outcomes(t *testing.T) {
	result, err := New().RunSuite(context.Background(), filepath.Join(scenariosDir, "enter_game_success.yaml"), "")
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 1)
	o := result.Outcomes[0]
	assert.Equal(t, "enter_game_success", o.Scenario)
	assert.True(t, o.Pass)
	assert.Equal(t, "run-enter-game", o.RunID)
	assert.Empty(t, o.Errors)
	assert.Empty(t, result.Failures)
}
