// Package harness executes conformance scenarios against the real collector
// and delivery router.
//
// Scenarios are YAML files (see Scenario) that script the host channel
// environment, drive the collector lifecycle step by step, and assert on
// delivery outcomes, queue contents, and the final report snapshot. Every
// scenario runs with a deterministic clock and fixed report ids so repeated
// runs produce byte-identical reports, which golden-file comparison relies
// on.
//
// Unlike a mock-everything harness, only the host capability boundary is
// faked (scripted channels standing in for the webview / parent frame / host
// bridge). The collector, router, and durable queue are the production
// implementations; the queue runs on an in-memory SQLite database per
// scenario for isolation.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lumenplay/gametrics/internal/collector"
	"github.com/lumenplay/gametrics/internal/delivery"
	"github.com/lumenplay/gametrics/internal/queue"
	"github.com/lumenplay/gametrics/internal/report"
	"github.com/lumenplay/gametrics/internal/testutil"
)

// StepOutcome records what one step did.
type StepOutcome struct {
	// Action echoes the step's action.
	Action string `json:"action"`

	// Rejected is true when the collector soft-rejected the step.
	Rejected bool `json:"rejected,omitempty"`

	// Code is the rejection code when Rejected.
	Code string `json:"code,omitempty"`

	// Channel is the accepting channel for a flush step.
	Channel string `json:"channel,omitempty"`

	// Queued is true when a flush landed in the durable queue.
	Queued bool `json:"queued,omitempty"`

	// ReportID is the id assigned to a flush step.
	ReportID string `json:"report_id,omitempty"`
}

// Result is the outcome of running a scenario.
type Result struct {
	// Passed is false when any expect clause or assertion failed.
	Passed bool

	// Failures holds every expect/assertion failure message.
	Failures []string

	// Outcomes holds one entry per executed step, in order.
	Outcomes []StepOutcome

	// FinalReport is the collector snapshot after the last step.
	FinalReport *report.Report

	// QueueItems are the durable queue contents after the last step,
	// in flush order.
	QueueItems []queue.Item

	// Channels exposes the scripted channels by name for attempt-count
	// assertions.
	Channels map[string]*testutil.ScriptedChannel
}

// Run executes a scenario and returns its result.
//
// Execution flow:
//  1. Build scripted channels from the scenario's channel behaviors
//  2. Open a fresh in-memory queue database
//  3. Drive the collector step by step, validating expect clauses
//  4. Snapshot the final report and queue contents
//  5. Evaluate assertions
//
// Run returns an error only for harness-level problems (bad scenario args,
// queue database failure). Expectation and assertion failures land in
// Result.Failures with Passed=false.
func Run(scenario *Scenario) (*Result, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	q, err := queue.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory queue: %w", err)
	}
	defer q.Close()

	clock := testutil.NewDeterministicClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // quiet inside tests

	channels := map[string]*testutil.ScriptedChannel{}
	chain := []delivery.Channel{}
	for _, name := range []string{"webview_bridge", "parent_frame", "host_bridge"} {
		ch := scriptedChannel(name, scenario.Channels[name])
		channels[name] = ch
		chain = append(chain, ch)
	}
	chain = append(chain, &delivery.DurableQueue{Queue: q})

	router := delivery.NewRouterWithChannels(chain,
		delivery.WithIDGenerator(delivery.NewFixedGenerator(scenario.ReportIDs...)),
		delivery.WithClock(clock.Now),
		delivery.WithLogger(logger),
	)

	col := collector.New(
		collector.WithClock(clock.Now),
		collector.WithLogger(logger),
	)

	result := &Result{Passed: true, Channels: channels}
	ctx := context.Background()

	for i, step := range scenario.Steps {
		outcome, err := executeStep(ctx, col, router, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		result.Outcomes = append(result.Outcomes, outcome)
		checkExpect(result, i+1, step, outcome)
	}

	result.FinalReport = col.Snapshot()

	items, err := q.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	result.QueueItems = items

	evaluateAssertions(result, scenario)

	return result, nil
}

func scriptedChannel(name, behavior string) *testutil.ScriptedChannel {
	ch := testutil.NewScriptedChannel(name)
	switch behavior {
	case BehaviorAccept:
		// present and succeeding, the default of NewScriptedChannel
	case BehaviorFail:
		ch.Fail = true
	case BehaviorPanic:
		ch.Panic = true
	default: // BehaviorAbsent or unset
		ch.Present = false
	}
	return ch
}

// executeStep runs one step against the collector/router.
// Soft rejections and flush outcomes go into the StepOutcome; only malformed
// arguments are hard errors. Args are extracted and checked before the action
// dispatches, so a malformed step never mutates the collector.
func executeStep(ctx context.Context, col *collector.Collector, router *delivery.Router, step Step) (StepOutcome, error) {
	outcome := StepOutcome{Action: step.Action}
	args := stepArgs{values: step.Args}

	switch step.Action {
	case ActionInitialize:
		gameName := args.str("game_name")
		sessionID := args.str("session_id")
		if args.err != nil {
			return outcome, args.err
		}
		col.Initialize(gameName, sessionID)

	case ActionStartLevel:
		levelID := args.str("level_id")
		if args.err != nil {
			return outcome, args.err
		}
		col.StartLevel(levelID)

	case ActionRecordTask:
		levelID := args.str("level_id")
		task := report.Task{
			TaskID:       args.str("task_id"),
			TaskName:     args.str("task_name"),
			TaskType:     args.str("task_type"),
			Result:       args.str("result"),
			TimeTakenMs:  args.i64("time_taken_ms"),
			PointsEarned: args.i64("points_earned"),
		}
		if args.err != nil {
			return outcome, args.err
		}
		recordRejection(&outcome, col.RecordTask(levelID, task))

	case ActionEndLevel:
		levelID := args.str("level_id")
		completed := args.boolean("completed")
		durationMs := args.i64("duration_ms")
		xpEarned := args.i64("xp_earned")
		if args.err != nil {
			return outcome, args.err
		}
		recordRejection(&outcome, col.EndLevel(levelID, completed, durationMs, xpEarned))

	case ActionAddMetric:
		key := args.str("key")
		if args.err != nil {
			return outcome, args.err
		}
		col.AddRawMetric(key, args.values["value"])

	case ActionFlush:
		res, err := router.Flush(ctx, col.Snapshot())
		if err != nil {
			// Total delivery failure; with a live in-memory queue this only
			// happens when a scenario deliberately breaks the chain.
			outcome.Rejected = true
			outcome.Code = "FLUSH_FAILED"
			outcome.ReportID = res.ReportID
			break
		}
		outcome.Channel = res.Channel
		outcome.Queued = res.Queued
		outcome.ReportID = res.ReportID

	case ActionReset:
		col.Reset()
	}

	return outcome, nil
}

func recordRejection(outcome *StepOutcome, err error) {
	if err == nil {
		return
	}
	outcome.Rejected = true
	var se *collector.StateError
	if errors.As(err, &se) {
		outcome.Code = string(se.Code)
		return
	}
	outcome.Code = "ERROR"
}

// checkExpect validates a step's expect clause against its outcome.
func checkExpect(result *Result, stepNum int, step Step, outcome StepOutcome) {
	expect := step.Expect
	if expect == nil {
		if outcome.Rejected {
			result.fail("step %d (%s): unexpectedly rejected (%s)", stepNum, step.Action, outcome.Code)
		}
		return
	}

	if expect.Rejected != outcome.Rejected {
		result.fail("step %d (%s): rejected=%v, expected rejected=%v",
			stepNum, step.Action, outcome.Rejected, expect.Rejected)
	}
	if expect.Code != "" && expect.Code != outcome.Code {
		result.fail("step %d (%s): code=%s, expected %s", stepNum, step.Action, outcome.Code, expect.Code)
	}
	if expect.Channel != "" && expect.Channel != outcome.Channel {
		result.fail("step %d (%s): delivered via %s, expected %s",
			stepNum, step.Action, outcome.Channel, expect.Channel)
	}
	if step.Action == ActionFlush && expect.Queued != outcome.Queued {
		result.fail("step %d (%s): queued=%v, expected queued=%v",
			stepNum, step.Action, outcome.Queued, expect.Queued)
	}
}

func (r *Result) fail(format string, args ...any) {
	r.Passed = false
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// stepArgs extracts typed values from a step's YAML args, accumulating the
// first error instead of failing on each access.
type stepArgs struct {
	values map[string]any
	err    error
}

func (a *stepArgs) str(key string) string {
	v, ok := a.values[key]
	if !ok {
		a.setErr(fmt.Errorf("missing arg %q", key))
		return ""
	}
	s, ok := v.(string)
	if !ok {
		a.setErr(fmt.Errorf("arg %q: expected string, got %T", key, v))
		return ""
	}
	return s
}

func (a *stepArgs) i64(key string) int64 {
	v, ok := a.values[key]
	if !ok {
		a.setErr(fmt.Errorf("missing arg %q", key))
		return 0
	}
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	default:
		a.setErr(fmt.Errorf("arg %q: expected integer, got %T", key, v))
		return 0
	}
}

func (a *stepArgs) boolean(key string) bool {
	v, ok := a.values[key]
	if !ok {
		a.setErr(fmt.Errorf("missing arg %q", key))
		return false
	}
	b, ok := v.(bool)
	if !ok {
		a.setErr(fmt.Errorf("arg %q: expected bool, got %T", key, v))
		return false
	}
	return b
}

func (a *stepArgs) setErr(err error) {
	if a.err == nil {
		a.err = err
	}
}
