// Package bus provides the publish/subscribe channel that carries session
// status events from the orchestrator to push subscribers. The default
// implementation is in-memory; a NATS backend is available when events must
// fan out across processes.
package bus

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrClosed is returned when operating on a closed bus or subscription.
	ErrClosed = errors.New("bus or subscription closed")
)

// EventBus is the delivery channel for session events.
// Implementations must be safe for concurrent use. Delivery is best-effort:
// a slow subscriber loses messages rather than blocking publishers.
type EventBus interface {
	// Publish sends a message to all subscribers of the given subject.
	// Returns immediately; does not wait for delivery.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The handler runs on the subscription's delivery goroutine.
	// Supports wildcards: "manus.session.*" matches "manus.session.abc".
	Subscribe(ctx context.Context, subject string, handler Handler) (Subscription, error)

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// Handler processes incoming messages.
type Handler func(msg *Message)

// Message is an incoming message from the bus.
type Message struct {
	Subject string
	Data    []byte
}

// Subscription is an active subscription that can be cancelled.
type Subscription interface {
	// Unsubscribe stops receiving messages and cleans up resources.
	Unsubscribe() error

	// Subject returns the subject pattern this subscription is for.
	Subject() string
}

// Config holds configuration for creating a NATS-backed bus.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Name is a client identifier for debugging/monitoring.
	Name string

	// Timeout is the connect timeout.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:     "nats://localhost:4222",
		Name:    "manusd",
		Timeout: 30 * time.Second,
	}
}
