package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/lumenplay/gametrics/internal/report"
)

// Snapshot is the deterministic serialized form of a scenario run, compared
// against golden files. The deterministic clock and fixed report ids make
// repeated runs byte-identical.
type Snapshot struct {
	ScenarioName string        `json:"scenario_name"`
	Outcomes     []StepOutcome `json:"outcomes"`
	QueueCount   int           `json:"queue_count"`
	Report       any           `json:"report"`
}

// RunWithGolden executes a scenario and compares its snapshot against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error when the scenario itself fails (expect clauses or
// assertions); golden mismatch fails the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Passed {
		return fmt.Errorf("scenario %s failed:\n%s", scenario.Name, joinFailures(result.Failures))
	}

	data, err := snapshotJSON(scenario.Name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}

// snapshotJSON builds the canonical snapshot bytes for a result.
func snapshotJSON(name string, result *Result) ([]byte, error) {
	reportJSON, err := report.MarshalCanonical(result.FinalReport)
	if err != nil {
		return nil, fmt.Errorf("canonicalize report: %w", err)
	}
	var reportTree any
	dec := json.NewDecoder(bytes.NewReader(reportJSON))
	dec.UseNumber()
	if err := dec.Decode(&reportTree); err != nil {
		return nil, fmt.Errorf("decode canonical report: %w", err)
	}

	snap := Snapshot{
		ScenarioName: name,
		Outcomes:     result.Outcomes,
		QueueCount:   len(result.QueueItems),
		Report:       reportTree,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	var tree any
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	if err := d.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return report.CanonicalizeValue(tree)
}

func joinFailures(failures []string) string {
	var buf bytes.Buffer
	for _, f := range failures {
		buf.WriteString("  - ")
		buf.WriteString(f)
		buf.WriteByte('\n')
	}
	return buf.String()
}
