package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenplay/gametrics/internal/report"
)

func validPayload(t *testing.T) []byte {
	t.Helper()
	end := int64(1704067213000)
	dur := int64(12000)
	r := &report.Report{
		Session: &report.Session{GameName: "Puzzle", SessionID: "s1", Timestamp: 1704067200000},
		Levels: []report.Level{
			{
				LevelID:    "L1",
				StartTime:  1704067201000,
				EndTime:    &end,
				DurationMs: &dur,
				Completed:  true,
				XPEarned:   100,
				Tasks: []report.Task{
					{TaskID: "t1", TaskName: "Tap", TaskType: "tap", Result: "success", TimeTakenMs: 500, PointsEarned: 10},
				},
			},
		},
		RawData: map[string]any{"difficulty": "hard", "fps": 59.7},
	}
	payload, err := report.MarshalCanonical(r)
	require.NoError(t, err)
	return payload
}

func TestValidate_AcceptsCanonicalReport(t *testing.T) {
	assert.NoError(t, Validate(validPayload(t)))
}

func TestValidate_AcceptsSessionlessReport(t *testing.T) {
	payload, err := report.MarshalCanonical(&report.Report{
		Levels:  []report.Level{},
		RawData: map[string]any{},
	})
	require.NoError(t, err)
	assert.NoError(t, Validate(payload))
}

func TestValidate_AcceptsOpenLevelNulls(t *testing.T) {
	payload, err := report.MarshalCanonical(&report.Report{
		Levels:  []report.Level{{LevelID: "L1", StartTime: 100, Tasks: []report.Task{}}},
		RawData: map[string]any{},
	})
	require.NoError(t, err)
	assert.NoError(t, Validate(payload))
}

func TestValidate_RejectsWrongFieldType(t *testing.T) {
	payload := []byte(`{"levels":[],"rawData":{},"session":{"game_name":"Puzzle","session_id":"s1","timestamp":"not-a-number"}}`)

	err := Validate(payload)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.NotEmpty(t, ve.Details)
	assert.Contains(t, err.Error(), "report schema")
}

func TestValidate_RejectsMissingRequiredField(t *testing.T) {
	// Level without level_id.
	payload := []byte(`{"levels":[{"start_time":1,"end_time":null,"duration_ms":null,"completed":false,"xp_earned":0,"tasks":[]}],"rawData":{}}`)

	err := Validate(payload)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
}

func TestValidate_AllowsArbitraryRawDataShapes(t *testing.T) {
	payload := []byte(`{"levels":[],"rawData":{"nested":{"a":[1,2,{"b":true}]},"n":null}}`)
	assert.NoError(t, Validate(payload))
}

func TestValidate_UnparseablePayloadIsNotValidationError(t *testing.T) {
	err := Validate([]byte(`{"levels":`))
	require.Error(t, err)

	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "parse payload")
}
