package client

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when the service has no session with
	// the requested id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTaskAlreadyRunning is returned when a run is requested while the
	// session is still busy with a previous task.
	ErrTaskAlreadyRunning = errors.New("a task is already running in this session")

	// ErrNoPendingInput is returned when input is provided but the session
	// is not waiting for any.
	ErrNoPendingInput = errors.New("no pending input request for this session")

	// ErrWatchTimeout is returned when a task produces no terminal event
	// within the watch budget.
	ErrWatchTimeout = errors.New("timed out waiting for task to finish")
)

// APIError carries a non-2xx response from the orchestration service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("service returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("service returned %d", e.StatusCode)
}

// Is lets errors.Is match the well-known statuses against the sentinels
// above, so callers do not have to unwrap the struct by hand.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrSessionNotFound:
		return e.StatusCode == 404
	case ErrTaskAlreadyRunning:
		return e.StatusCode == 409
	case ErrNoPendingInput:
		return e.StatusCode == 400
	}
	return false
}
