package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a scripted channel environment,
// a sequence of collector lifecycle steps, and assertions over the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario; also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Channels scripts the live channels by name (webview_bridge,
	// parent_frame, host_bridge). Behaviors: "accept", "fail", "panic",
	// "absent". Channels not listed are absent. The durable queue is always
	// present and is not scriptable.
	Channels map[string]string `yaml:"channels,omitempty"`

	// ReportIDs are the ids handed out to flushes, in order. A scenario that
	// flushes more times than it lists ids fails fast.
	ReportIDs []string `yaml:"report_ids,omitempty"`

	// Steps is the lifecycle call sequence.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one collector or router call.
type Step struct {
	// Action is one of: initialize, start_level, record_task, end_level,
	// add_metric, flush, reset.
	Action string `yaml:"action"`

	// Args are the action's arguments. Keys mirror the wire field names
	// (level_id, task_id, duration_ms, ...).
	Args map[string]any `yaml:"args,omitempty"`

	// Expect validates the step outcome. Nil means the step must not be
	// rejected (and a flush must not fail).
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Rejected is true when the step must be a soft no-op.
	Rejected bool `yaml:"rejected,omitempty"`

	// Code is the expected rejection code (NO_CURRENT_LEVEL, LEVEL_MISMATCH).
	Code string `yaml:"code,omitempty"`

	// Channel is the channel expected to accept a flush.
	Channel string `yaml:"channel,omitempty"`

	// Queued is true when a flush must land in the durable queue.
	Queued bool `yaml:"queued,omitempty"`
}

// Assertion validates final harness state.
type Assertion struct {
	// Type is one of:
	// - "queue_count": the durable queue holds exactly Count reports
	// - "attempts": per-channel attempt counts equal Counts exactly
	// - "report": the final snapshot matches Expect (subset semantics)
	Type string `yaml:"type"`

	// Count is the expected queue size (queue_count).
	Count int `yaml:"count,omitempty"`

	// Counts maps channel name to expected attempt count (attempts).
	// Channels not listed are unconstrained.
	Counts map[string]int `yaml:"counts,omitempty"`

	// Expect is the expected report subset (report). Matching is recursive:
	// maps match when every expected key matches, arrays match element by
	// element at full length.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertQueueCount = "queue_count"
	AssertAttempts   = "attempts"
	AssertReport     = "report"
)

// Step action constants.
const (
	ActionInitialize = "initialize"
	ActionStartLevel = "start_level"
	ActionRecordTask = "record_task"
	ActionEndLevel   = "end_level"
	ActionAddMetric  = "add_metric"
	ActionFlush      = "flush"
	ActionReset      = "reset"
)

// Channel behavior constants.
const (
	BehaviorAccept = "accept"
	BehaviorFail   = "fail"
	BehaviorPanic  = "panic"
	BehaviorAbsent = "absent"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected (catches typos like "assertion:" for "assertions:").
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// Validate checks structural requirements before execution.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}

	for name, behavior := range s.Channels {
		switch name {
		case "webview_bridge", "parent_frame", "host_bridge":
		default:
			return fmt.Errorf("unknown channel %q", name)
		}
		switch behavior {
		case BehaviorAccept, BehaviorFail, BehaviorPanic, BehaviorAbsent:
		default:
			return fmt.Errorf("channel %s: unknown behavior %q", name, behavior)
		}
	}

	flushes := 0
	for i, step := range s.Steps {
		switch step.Action {
		case ActionInitialize, ActionStartLevel, ActionRecordTask,
			ActionEndLevel, ActionAddMetric, ActionFlush, ActionReset:
		default:
			return fmt.Errorf("step %d: unknown action %q", i+1, step.Action)
		}
		if step.Action == ActionFlush {
			flushes++
		}
	}
	if flushes > len(s.ReportIDs) {
		return fmt.Errorf("%d flush steps but only %d report_ids", flushes, len(s.ReportIDs))
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertQueueCount, AssertAttempts, AssertReport:
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i+1, a.Type)
		}
	}

	return nil
}
