package actuator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: connection refused")
	err := WrapAgentError("unavailable", "agentd not reachable", inner)

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, IsConnectionError(nil))
	assert.True(t, IsConnectionError(ErrConnectionLost))
	assert.True(t, IsConnectionError(fmt.Errorf("execute: %w", ErrConnectionLost)))
	assert.True(t, IsConnectionError(NewAgentError("connection_lost", "read failed")))
	assert.True(t, IsConnectionError(NewAgentError("unavailable", "daemon down")))
	assert.False(t, IsConnectionError(NewAgentError("task_failed", "bad selector")))
	assert.False(t, IsConnectionError(errors.New("something else")))
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(ErrOperationTimeout))
	assert.True(t, IsRetryableError(NewAgentError("timeout", "step took too long")))
	assert.False(t, IsRetryableError(NewAgentError("task_failed", "element not found")))
	assert.False(t, IsRetryableError(ErrMissingCredentials))
}
