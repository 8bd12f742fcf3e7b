package session

import (
	"context"
	"time"
)

// PendingQuestion is an outstanding human-input request blocking a session's
// progress. At most one exists per session; it is resolved exactly once.
type PendingQuestion struct {
	SessionID string
	Question  string
	// Seq identifies the question within its session, strictly increasing
	// across consecutive questions even when their text repeats.
	Seq     uint64
	AskedAt time.Time

	answer    chan string
	abandoned chan struct{}
}

func newPendingQuestion(sessionID, question string, seq uint64) *PendingQuestion {
	return &PendingQuestion{
		SessionID: sessionID,
		Question:  question,
		Seq:       seq,
		AskedAt:   time.Now(),
		answer:    make(chan string, 1),
		abandoned: make(chan struct{}),
	}
}

// resolve delivers the answer. Called under the session lock, at most once:
// Session.Answer clears the pending pointer before releasing the lock, so a
// second answer never reaches an already-resolved question.
func (pq *PendingQuestion) resolve(answer string) {
	pq.answer <- answer
}

// abandon unblocks a waiter without an answer, used when the session is closed
// or the run dies while a question is outstanding.
func (pq *PendingQuestion) abandon() {
	close(pq.abandoned)
}

// Wait blocks until the question is answered, the session abandons it, or the
// context is cancelled.
func (pq *PendingQuestion) Wait(ctx context.Context) (string, error) {
	select {
	case answer := <-pq.answer:
		return answer, nil
	case <-pq.abandoned:
		return "", ErrSessionClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
