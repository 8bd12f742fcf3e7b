package session

// Snapshot is the read-only projection of a session served identically by the
// pull endpoint and the push stream. Field names follow the status wire
// contract; large payloads are digested before they reach a snapshot.
type Snapshot struct {
	SessionID       string      `json:"session_id"`
	State           State       `json:"state"`
	IsRunning       bool        `json:"is_running"`
	PendingTask     string      `json:"pending_task,omitempty"`
	NeedsInput      bool        `json:"needs_input"`
	PendingQuestion string      `json:"pending_question,omitempty"`
	QuestionSeq     uint64      `json:"question_seq,omitempty"`
	LastResult      string      `json:"last_result,omitempty"`
	LastError       string      `json:"last_error,omitempty"`
	LastErrorKind   FailureKind `json:"last_error_kind,omitempty"`
}

// Terminal reports whether the snapshot shows a finished run.
func (s Snapshot) Terminal() bool {
	return s.State == StateCompleted || s.State == StateFailed || s.State == StateClosed
}
