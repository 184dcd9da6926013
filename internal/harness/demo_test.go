package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDemoScenarios runs every scenario under testdata/scenarios. They
// serve as end-to-end checks of the engine against scripted screens and as
// reference examples of the scenario format.
func TestDemoScenarios(t *testing.T) {
	paths, err := DiscoverScenarios(scenariosDir)
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err, "failed to load scenario from %s", path)

		t.Run(s.Name, func(t *testing.T) {
			assert.NotEmpty(t, s.Description, "scenario should have description")

			result, err := Run(context.Background(), s)
			require.NoError(t, err, "scenario execution failed")
			assert.True(t, result.Pass, "scenario should pass: errors=%v", result.Errors)
			assert.NotEmpty(t, result.Trace, "trace should not be empty")
		})
	}
}
