// Package session holds the session records shared between the task executor,
// the input broker, and the status channel. All mutation goes through methods
// that take the per-session lock; independent sessions never contend.
package session

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle state of a session.
type State string

const (
	StateCreated       State = "created"
	StateRunning       State = "running"
	StateAwaitingInput State = "awaiting_input"
	StateCompleted     State = "completed"
	StateFailed        State = "failed"
	StateClosed        State = "closed"
)

// Handle is the actuator instance exclusively owned by a session. It is
// released exactly once, when the session is closed.
type Handle interface {
	Close() error
}

// Session binds one actuator instance to one caller. At most one task executes
// per session at any time.
type Session struct {
	id string

	mu            sync.Mutex
	state         State
	pendingTask   string
	lastResult    string
	lastError     string
	lastErrorKind FailureKind
	pending       *PendingQuestion
	handle        Handle

	cancelRun context.CancelFunc
	runDone   chan struct{}

	seq         uint64
	questionSeq uint64
	createdAt   time.Time
}

// New creates a session in StateCreated owning the given actuator handle.
func New(id string, handle Handle) *Session {
	return &Session{
		id:        id,
		state:     StateCreated,
		handle:    handle,
		createdAt: time.Now(),
	}
}

// ID returns the immutable session identifier.
func (s *Session) ID() string { return s.id }

// Handle returns the actuator handle, or nil once the session is closed.
func (s *Session) Handle() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartRun transitions the session to StateRunning and records the cancel
// function for the new run. It fails with ErrTaskAlreadyRunning while a run is
// active and with ErrSessionClosed after Close. The previous run's result and
// error are cleared.
func (s *Session) StartRun(task string, cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateRunning, StateAwaitingInput:
		return ErrTaskAlreadyRunning
	}

	s.state = StateRunning
	s.pendingTask = task
	s.lastResult = ""
	s.lastError = ""
	s.lastErrorKind = ""
	s.cancelRun = cancel
	s.runDone = make(chan struct{})
	return nil
}

// CompleteRun records a successful result and transitions to StateCompleted.
// A session that was closed mid-run keeps its closed state; the run's done
// channel is signalled either way so Close never blocks forever.
func (s *Session) CompleteRun(result string) {
	s.finishRun(func() {
		s.state = StateCompleted
		s.lastResult = result
	})
}

// FailRun records a failure cause and transitions to StateFailed.
func (s *Session) FailRun(kind FailureKind, msg string) {
	s.finishRun(func() {
		s.state = StateFailed
		s.lastError = msg
		s.lastErrorKind = kind
	})
}

func (s *Session) finishRun(apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClosed {
		apply()
		s.pendingTask = ""
		if s.pending != nil {
			s.pending.abandon()
			s.pending = nil
		}
	}
	s.cancelRun = nil
	if s.runDone != nil {
		close(s.runDone)
		s.runDone = nil
	}
}

// AskQuestion records a pending question and transitions Running →
// AwaitingInput atomically. Only an active run may ask; a second question
// while one is outstanding is rejected.
func (s *Session) AskQuestion(question string) (*PendingQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil, ErrSessionClosed
	}
	if s.state != StateRunning {
		return nil, ErrNoActiveRun
	}
	if s.pending != nil {
		return nil, ErrQuestionOutstanding
	}

	s.questionSeq++
	pq := newPendingQuestion(s.id, question, s.questionSeq)
	s.pending = pq
	s.state = StateAwaitingInput
	return pq, nil
}

// Answer resolves the outstanding question exactly once, clears it, and
// transitions back to StateRunning. With nothing outstanding (including a
// second answer for an already-resolved question) it fails with
// ErrNoPendingInput.
func (s *Session) Answer(answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.pending == nil || s.state != StateAwaitingInput {
		return ErrNoPendingInput
	}

	s.pending.resolve(answer)
	s.pending = nil
	s.state = StateRunning
	return nil
}

// Close transitions to StateClosed, cancels any in-flight run, waits for it to
// settle, and releases the actuator handle. A second Close fails with
// ErrSessionClosed and never double-releases the handle.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	s.state = StateClosed
	s.pendingTask = ""
	if s.pending != nil {
		s.pending.abandon()
		s.pending = nil
	}
	cancel := s.cancelRun
	done := s.runDone
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if handle != nil {
		return handle.Close()
	}
	return nil
}

// NextSeq returns the next per-session event sequence number. Sequence numbers
// are strictly increasing for the lifetime of the session.
func (s *Session) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Snapshot returns the read-only projection served by both status channels.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID:     s.id,
		State:         s.state,
		IsRunning:     s.state == StateRunning || s.state == StateAwaitingInput,
		PendingTask:   s.pendingTask,
		NeedsInput:    s.pending != nil,
		LastResult:    s.lastResult,
		LastError:     s.lastError,
		LastErrorKind: s.lastErrorKind,
	}
	if s.pending != nil {
		snap.PendingQuestion = s.pending.Question
		snap.QuestionSeq = s.pending.Seq
	}
	return snap
}
