package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/brplusa/spacelink/internal/space"
)

// Snapshot captures what a scenario execution produced.
type Snapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Trace        []TraceEvent   `json:"trace"`
	State        []space.Record `json:"state"`
}

// MarshalSnapshot renders the scenario's trace and final state as indented
// JSON. Struct field order and the sorted store contents keep it byte-stable.
func MarshalSnapshot(scenario *Scenario, result *Result) ([]byte, error) {
	return json.MarshalIndent(Snapshot{
		ScenarioName: scenario.Name,
		Trace:        result.Trace,
		State:        result.State,
	}, "", "  ")
}

// AssertGolden compares the result's snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) {
	t.Helper()

	data, err := MarshalSnapshot(scenario, result)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
}
