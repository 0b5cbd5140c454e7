package session

import (
	"errors"
	"fmt"
)

// Integrity errors. Callers map them with errors.Is: not found for
// ErrSessionNotFound and ErrUnknownStage, conflict for ErrStageMismatch,
// gone for ErrSessionCompleted.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrStageMismatch    = errors.New("submission is not for the current stage")
	ErrSessionCompleted = errors.New("session already completed")
	ErrUnknownStage     = errors.New("unknown stage")
)

// GateError is an integrity error with the session and stage it concerns.
type GateError struct {
	SessionID string
	StageID   string

	// Check names the failed check, e.g. "stage_mismatch".
	Check string

	Err error
}

func (e *GateError) Error() string {
	switch {
	case e.StageID != "":
		return fmt.Sprintf("session %s, stage %s: %v", e.SessionID, e.StageID, e.Err)
	case e.SessionID != "":
		return fmt.Sprintf("session %s: %v", e.SessionID, e.Err)
	}
	return e.Err.Error()
}

func (e *GateError) Unwrap() error { return e.Err }

func gateError(s *Session, stageID string, err error) *GateError {
	ge := &GateError{StageID: stageID, Err: err}
	if s != nil {
		ge.SessionID = s.ID
	}
	switch err {
	case ErrSessionNotFound:
		ge.Check = "session_not_found"
	case ErrStageMismatch:
		ge.Check = "stage_mismatch"
	case ErrSessionCompleted:
		ge.Check = "session_completed"
	case ErrUnknownStage:
		ge.Check = "unknown_stage"
	}
	return ge
}
