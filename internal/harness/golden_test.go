package harness

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenplay/gametrics/internal/queue"
	"github.com/lumenplay/gametrics/internal/report"
)

// TestScenarios_Golden runs every scenario under testdata/scenarios and
// compares its snapshot against the matching golden file. Regenerate with
// `go test ./internal/harness -update` after intentional behavior changes.
func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, "load %s", path)

		t.Run(scenario.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestSnapshotJSON_RoundTripsThroughSnapshot(t *testing.T) {
	result := &Result{
		Outcomes: []StepOutcome{
			{Action: ActionInitialize},
			{Action: ActionFlush, Channel: "durable_queue", Queued: true, ReportID: "r-1"},
		},
		FinalReport: &report.Report{Levels: []report.Level{}, RawData: map[string]any{}},
		QueueItems:  []queue.Item{{ReportID: "r-1"}},
	}

	data, err := snapshotJSON("round-trip", result)
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "round-trip", snap.ScenarioName)
	assert.Equal(t, 1, snap.QueueCount)
	require.Len(t, snap.Outcomes, 2)
	assert.Equal(t, result.Outcomes, snap.Outcomes)
	assert.NotNil(t, snap.Report)
}
