package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lumenplay/gametrics/internal/schema"
)

// AssertionError describes one failed assertion with expected/actual context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual:   %s", e.Actual)
	return buf.String()
}

// evaluateAssertions runs every assertion against the result, appending
// failures. Queued payloads are additionally validated against the report
// schema - a queue holding malformed JSON is a harness bug worth failing
// loudly on regardless of what the scenario asserts.
func evaluateAssertions(result *Result, scenario *Scenario) {
	for i, a := range scenario.Assertions {
		var err error
		switch a.Type {
		case AssertQueueCount:
			err = assertQueueCount(result, a)
		case AssertAttempts:
			err = assertAttempts(result, a)
		case AssertReport:
			err = assertReport(result, a)
		}
		if err != nil {
			result.fail("assertion %d: %v", i+1, err)
		}
	}

	for _, item := range result.QueueItems {
		if err := schema.Validate(item.Payload); err != nil {
			result.fail("queued report %s: %v", item.ReportID, err)
		}
	}
}

func assertQueueCount(result *Result, a Assertion) error {
	if len(result.QueueItems) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertQueueCount,
		Expected: fmt.Sprintf("%d queued reports", a.Count),
		Actual:   fmt.Sprintf("%d queued reports", len(result.QueueItems)),
	}
}

func assertAttempts(result *Result, a Assertion) error {
	for name, want := range a.Counts {
		ch, ok := result.Channels[name]
		if !ok {
			return &AssertionError{
				Type:     AssertAttempts,
				Expected: fmt.Sprintf("channel %q in chain", name),
				Actual:   "not in chain",
			}
		}
		if ch.Attempts != want {
			return &AssertionError{
				Type:     AssertAttempts,
				Expected: fmt.Sprintf("%s attempted %d times", name, want),
				Actual:   fmt.Sprintf("attempted %d times", ch.Attempts),
			}
		}
	}
	return nil
}

// assertReport matches the final snapshot against the expected subset.
// The snapshot is round-tripped through JSON so comparison happens on wire
// values (the same shapes a channel would receive).
func assertReport(result *Result, a Assertion) error {
	data, err := json.Marshal(result.FinalReport)
	if err != nil {
		return fmt.Errorf("marshal final report: %w", err)
	}
	var actual any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&actual); err != nil {
		return fmt.Errorf("decode final report: %w", err)
	}

	if err := matchSubset(actual, normalizeYAML(a.Expect)); err != nil {
		return &AssertionError{
			Type:     AssertReport,
			Expected: fmt.Sprintf("%v", a.Expect),
			Actual:   fmt.Sprintf("%s (%v)", data, err),
		}
	}
	return nil
}

// matchSubset checks expected against actual recursively. Maps match when
// every expected key matches; arrays must match element by element at full
// length; scalars compare as canonical JSON so YAML ints meet JSON numbers
// without type juggling.
func matchSubset(actual, expected any) error {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return fmt.Errorf("expected object, got %T", actual)
		}
		for k, v := range exp {
			av, ok := act[k]
			if !ok {
				return fmt.Errorf("missing key %q", k)
			}
			if err := matchSubset(av, v); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		return nil
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return fmt.Errorf("expected array, got %T", actual)
		}
		if len(act) != len(exp) {
			return fmt.Errorf("expected %d elements, got %d", len(exp), len(act))
		}
		for i, v := range exp {
			if err := matchSubset(act[i], v); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil
	default:
		ae, err1 := json.Marshal(actual)
		ee, err2 := json.Marshal(expected)
		if err1 != nil || err2 != nil || !bytes.Equal(ae, ee) {
			return fmt.Errorf("expected %v, got %v", expected, actual)
		}
		return nil
	}
}

// normalizeYAML converts YAML-decoded values (map[string]any with int
// scalars) into JSON-comparable shapes.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeYAML(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeYAML(elem)
		}
		return out
	case int:
		return json.Number(fmt.Sprintf("%d", val))
	case int64:
		return json.Number(fmt.Sprintf("%d", val))
	default:
		return val
	}
}
