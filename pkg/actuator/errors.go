package actuator

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable        = errors.New("actuator runtime unavailable")
	ErrMissingCredentials = errors.New("missing API credentials for browser automation")
	ErrLaunchFailed       = errors.New("actuator launch failed")
	ErrClosed             = errors.New("actuator closed")
	ErrConnectionLost     = errors.New("agentd connection lost")
	ErrOperationTimeout   = errors.New("operation timeout")
)

// AgentError wraps errors from the agent daemon with a machine-readable code.
type AgentError struct {
	Code    string
	Message string
	Err     error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agentd error [%s]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("agentd error [%s]: %s", e.Code, e.Message)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewAgentError creates a new AgentError.
func NewAgentError(code, message string) *AgentError {
	return &AgentError{Code: code, Message: message}
}

// WrapAgentError wraps an existing error with agentd context.
func WrapAgentError(code, message string, err error) *AgentError {
	return &AgentError{Code: code, Message: message, Err: err}
}

// IsConnectionError returns true if the error indicates a lost connection.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectionLost) {
		return true
	}
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Code == "connection_lost" || agentErr.Code == "unavailable"
	}
	return false
}

// IsRetryableError returns true if the error might succeed on retry.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectionLost) || errors.Is(err, ErrOperationTimeout) {
		return true
	}
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		switch agentErr.Code {
		case "connection_lost", "timeout", "unavailable":
			return true
		}
	}
	return false
}
