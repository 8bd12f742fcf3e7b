package session

import "time"

// EventType identifies a push-channel event.
type EventType string

const (
	// EventStateChange is emitted on every lifecycle transition.
	EventStateChange EventType = "state_change"

	// EventInputRequest is emitted when the actuator asks for human input.
	EventInputRequest EventType = "input_request"

	// EventTaskComplete carries the digested result of a finished run so
	// subscribers need not wait for a follow-up status pull.
	EventTaskComplete EventType = "task_complete"

	// EventTaskError carries the error text of a failed run.
	EventTaskError EventType = "task_error"

	// EventConnected is the first frame pushed on a fresh stream. It is
	// never put on the bus, only synthesized per subscriber.
	EventConnected EventType = "connected"

	// EventHeartbeat keeps quiet streams alive. Synthesized per subscriber,
	// carries no snapshot and no sequence number.
	EventHeartbeat EventType = "heartbeat"
)

// Event is the unit delivered on the push channel. Delivery is at-least-once;
// Seq increases strictly per session so clients can drop replays.
type Event struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	SessionID string    `json:"session_id"`
	Type      EventType `json:"type"`
	Snapshot  Snapshot  `json:"snapshot"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Subject returns the bus subject carrying a session's events.
func Subject(sessionID string) string {
	return "manus.session." + sessionID
}
