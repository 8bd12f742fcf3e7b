package session

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExists      = errors.New("session already exists")
	ErrSessionClosed      = errors.New("session closed")
	ErrTaskAlreadyRunning = errors.New("a task is already running in this session")
	ErrNoPendingInput     = errors.New("no pending input request for this session")

	// ErrNoActiveRun is returned when a question is asked outside an active run.
	ErrNoActiveRun = errors.New("no active run for this session")

	// ErrQuestionOutstanding is returned when a run asks a second question
	// before the first one is answered.
	ErrQuestionOutstanding = errors.New("a question is already outstanding")
)

// FailureKind distinguishes why a run ended in StateFailed.
type FailureKind string

const (
	// FailureTimeout means the wall-clock budget expired before the actuator finished.
	FailureTimeout FailureKind = "timeout"

	// FailureActuator means the actuator itself raised during execution.
	FailureActuator FailureKind = "actuator"
)
