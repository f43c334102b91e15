package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenarioFile(t, `
name: minimal
description: just initialize
steps:
  - action: initialize
    args: {game_name: Puzzle, session_id: s1}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", scenario.Name)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, ActionInitialize, scenario.Steps[0].Action)
	assert.Equal(t, "Puzzle", scenario.Steps[0].Args["game_name"])
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	path := writeScenarioFile(t, `
name: typo
steps:
  - action: initialize
    args: {game_name: Puzzle, session_id: s1}
assertion:
  - type: queue_count
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse scenario YAML")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario file")
}

func TestScenarioValidate(t *testing.T) {
	base := func() *Scenario {
		return &Scenario{
			Name:  "s",
			Steps: []Step{{Action: ActionInitialize}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{
			name:   "valid minimal",
			mutate: func(s *Scenario) {},
		},
		{
			name:    "missing name",
			mutate:  func(s *Scenario) { s.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "no steps",
			mutate:  func(s *Scenario) { s.Steps = nil },
			wantErr: "at least one step",
		},
		{
			name:    "unknown action",
			mutate:  func(s *Scenario) { s.Steps = []Step{{Action: "explode"}} },
			wantErr: `unknown action "explode"`,
		},
		{
			name:    "unknown channel",
			mutate:  func(s *Scenario) { s.Channels = map[string]string{"carrier_pigeon": "accept"} },
			wantErr: `unknown channel "carrier_pigeon"`,
		},
		{
			name:    "unknown behavior",
			mutate:  func(s *Scenario) { s.Channels = map[string]string{"webview_bridge": "maybe"} },
			wantErr: `unknown behavior "maybe"`,
		},
		{
			name: "more flushes than report ids",
			mutate: func(s *Scenario) {
				s.Steps = append(s.Steps, Step{Action: ActionFlush}, Step{Action: ActionFlush})
				s.ReportIDs = []string{"r-1"}
			},
			wantErr: "2 flush steps but only 1 report_ids",
		},
		{
			name:    "unknown assertion type",
			mutate:  func(s *Scenario) { s.Assertions = []Assertion{{Type: "vibes"}} },
			wantErr: `unknown type "vibes"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
