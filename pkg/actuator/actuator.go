package actuator

import "context"

// Runtime launches actuator instances.
type Runtime interface {
	Launch(ctx context.Context, opts LaunchOptions) (Actuator, error)
	Close() error
}

// AskFunc is how a running actuator requests human input. It blocks until an
// answer arrives or the run is cancelled; the actuator treats the returned
// string as the user's reply.
type AskFunc func(ctx context.Context, question string) (string, error)

// Actuator drives a browser through one task at a time. Implementations are
// owned exclusively by a single session and are never used concurrently.
type Actuator interface {
	ID() string

	// Execute runs a task to completion within maxSteps. It honors ctx
	// cancellation between steps and calls ask whenever the task needs
	// human input.
	Execute(ctx context.Context, task string, maxSteps int, ask AskFunc) (*Result, error)

	Close() error
}
