package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"connect_remove", "drift_sync"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := Run(context.Background(), scenario)
			require.NoError(t, err)
			require.True(t, result.Pass, "errors: %v", result.Errors)

			AssertGolden(t, scenario, result)
		})
	}
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/merge_rejected.yaml")
	require.NoError(t, err)

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(scenario, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(scenario, second)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}
