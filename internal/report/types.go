package report

// Session identifies one analytics run. Created once by the collector's
// Initialize and immutable afterwards. A nil *Session in a Report means the
// collector was never initialized - channels deliver the report anyway.
type Session struct {
	// GameName is the embedding game's display name.
	GameName string `json:"game_name"`

	// SessionID is the caller-chosen identifier for this run.
	SessionID string `json:"session_id"`

	// Timestamp is the session creation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Task records one action taken inside a level. Tasks are immutable once
// appended to a level.
type Task struct {
	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name"`

	// TaskType is an open string tag (e.g. "tap", "drag"). Deliberately not
	// an enum - the embedding application owns the taxonomy.
	TaskType string `json:"task_type"`

	// Result is an open string tag (e.g. "success", "failure").
	Result string `json:"result"`

	TimeTakenMs  int64 `json:"time_taken_ms"`
	PointsEarned int64 `json:"points_earned"`
}

// Level is one play-through of a level. EndTime and DurationMs stay nil until
// the level is closed. DurationMs and XPEarned are caller-supplied at close
// time, never derived from the timestamps.
//
// A level replaced by a later StartLevel without being closed stays in the
// report with EndTime nil and Completed false.
type Level struct {
	LevelID   string `json:"level_id"`
	StartTime int64  `json:"start_time"`
	EndTime   *int64 `json:"end_time"`
	DurationMs *int64 `json:"duration_ms"`
	Completed bool   `json:"completed"`
	XPEarned  int64  `json:"xp_earned"`
	Tasks     []Task `json:"tasks"`
}

// Report is the payload flushed through a delivery channel. Levels preserves
// start order and includes levels that are still open.
type Report struct {
	Session *Session       `json:"session,omitempty"`
	Levels  []Level        `json:"levels"`
	RawData map[string]any `json:"rawData"`
}

// Clone deep-copies the report, including JSON-shaped structured metric
// values, so a snapshot holder cannot mutate collector state through the
// returned tree.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}

	out := &Report{
		Levels:  make([]Level, len(r.Levels)),
		RawData: make(map[string]any, len(r.RawData)),
	}

	if r.Session != nil {
		s := *r.Session
		out.Session = &s
	}

	for i, lvl := range r.Levels {
		out.Levels[i] = lvl.clone()
	}

	for k, v := range r.RawData {
		out.RawData[k] = cloneValue(v)
	}

	return out
}

func (l Level) clone() Level {
	out := l
	if l.EndTime != nil {
		t := *l.EndTime
		out.EndTime = &t
	}
	if l.DurationMs != nil {
		d := *l.DurationMs
		out.DurationMs = &d
	}
	out.Tasks = make([]Task, len(l.Tasks))
	copy(out.Tasks, l.Tasks)
	return out
}

// cloneValue copies JSON-shaped metric values (maps and slices) so a snapshot
// holder cannot mutate collector state through a structured metric. Scalars
// and unknown types are returned as-is.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = cloneValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return val
	}
}
