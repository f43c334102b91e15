package collector

import (
	"errors"
	"fmt"
)

// StateError reports a soft precondition failure on a collector operation.
//
// State errors are warning-class: the operation was a no-op, collector state
// is unchanged, and the caller may continue recording. They exist so callers
// can distinguish "not recorded" from "recorded" without treating either as
// fatal.
type StateError struct {
	// Code identifies the failure category.
	Code StateErrorCode

	// Op is the rejected operation ("record_task", "end_level").
	Op string

	// LevelID is the level id the caller passed.
	LevelID string

	// CurrentLevelID is the id of the open level at rejection time,
	// empty when no level was open.
	CurrentLevelID string
}

// StateErrorCode categorizes soft rejections.
type StateErrorCode string

const (
	// ErrCodeNoCurrentLevel indicates no level was open.
	ErrCodeNoCurrentLevel StateErrorCode = "NO_CURRENT_LEVEL"

	// ErrCodeLevelMismatch indicates the caller's level id does not match
	// the open level.
	ErrCodeLevelMismatch StateErrorCode = "LEVEL_MISMATCH"
)

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.CurrentLevelID != "" {
		return fmt.Sprintf("%s: %s rejected for level %q (current level is %q)",
			e.Code, e.Op, e.LevelID, e.CurrentLevelID)
	}
	return fmt.Sprintf("%s: %s rejected for level %q (no level open)", e.Code, e.Op, e.LevelID)
}

// IsStateError returns true if err is a soft collector rejection.
// Uses errors.As to handle wrapped errors.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

func newNoCurrentLevelError(op, levelID string) *StateError {
	return &StateError{Code: ErrCodeNoCurrentLevel, Op: op, LevelID: levelID}
}

func newLevelMismatchError(op, levelID, currentID string) *StateError {
	return &StateError{Code: ErrCodeLevelMismatch, Op: op, LevelID: levelID, CurrentLevelID: currentID}
}
