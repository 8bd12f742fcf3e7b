package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	closed atomic.Int32
}

func (f *fakeHandle) Close() error {
	f.closed.Add(1)
	return nil
}

func TestSession_InitialState(t *testing.T) {
	s := New("sess-1", &fakeHandle{})

	assert.Equal(t, "sess-1", s.ID())
	assert.Equal(t, StateCreated, s.State())

	snap := s.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.False(t, snap.NeedsInput)
	assert.False(t, snap.Terminal())
}

func TestSession_StartRun(t *testing.T) {
	s := New("sess-1", &fakeHandle{})

	require.NoError(t, s.StartRun("book a flight", func() {}))
	assert.Equal(t, StateRunning, s.State())

	snap := s.Snapshot()
	assert.True(t, snap.IsRunning)
	assert.Equal(t, "book a flight", snap.PendingTask)
}

func TestSession_SecondRunRejectedWhileBusy(t *testing.T) {
	s := New("sess-1", &fakeHandle{})

	require.NoError(t, s.StartRun("first", func() {}))
	err := s.StartRun("second", func() {})
	assert.ErrorIs(t, err, ErrTaskAlreadyRunning)

	// Still busy while suspended on input.
	_, err = s.AskQuestion("which date?")
	require.NoError(t, err)
	err = s.StartRun("third", func() {})
	assert.ErrorIs(t, err, ErrTaskAlreadyRunning)
}

func TestSession_CompleteRun(t *testing.T) {
	s := New("sess-1", &fakeHandle{})

	require.NoError(t, s.StartRun("task", func() {}))
	s.CompleteRun("all done")

	snap := s.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.False(t, snap.IsRunning)
	assert.Equal(t, "all done", snap.LastResult)
	assert.Empty(t, snap.PendingTask)
	assert.True(t, snap.Terminal())
}

func TestSession_FailRun(t *testing.T) {
	s := New("sess-1", &fakeHandle{})

	require.NoError(t, s.StartRun("task", func() {}))
	s.FailRun(FailureTimeout, "task timed out")

	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "task timed out", snap.LastError)
	assert.Equal(t, FailureTimeout, snap.LastErrorKind)
}

func TestSession_RerunAfterTerminalClearsResults(t *testing.T) {
	s := New("sess-1", &fakeHandle{})

	require.NoError(t, s.StartRun("first", func() {}))
	s.FailRun(FailureActuator, "boom")

	require.NoError(t, s.StartRun("second", func() {}))
	snap := s.Snapshot()
	assert.Empty(t, snap.LastError)
	assert.Empty(t, snap.LastErrorKind)
	assert.Empty(t, snap.LastResult)
	assert.Equal(t, "second", snap.PendingTask)
}

func TestSession_AskQuestionRequiresActiveRun(t *testing.T) {
	s := New("sess-1", &fakeHandle{})

	_, err := s.AskQuestion("anyone there?")
	assert.ErrorIs(t, err, ErrNoActiveRun)
}

func TestSession_AskAndAnswer(t *testing.T) {
	s := New("sess-1", &fakeHandle{})
	require.NoError(t, s.StartRun("task", func() {}))

	pq, err := s.AskQuestion("which date?")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingInput, s.State())

	snap := s.Snapshot()
	assert.True(t, snap.IsRunning)
	assert.True(t, snap.NeedsInput)
	assert.Equal(t, "which date?", snap.PendingQuestion)

	got := make(chan string, 1)
	go func() {
		answer, err := pq.Wait(context.Background())
		if err == nil {
			got <- answer
		}
	}()

	require.NoError(t, s.Answer("tomorrow"))
	assert.Equal(t, StateRunning, s.State())
	assert.False(t, s.Snapshot().NeedsInput)

	select {
	case answer := <-got:
		assert.Equal(t, "tomorrow", answer)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for answer")
	}
}

func TestSession_SecondAnswerRejected(t *testing.T) {
	s := New("sess-1", &fakeHandle{})
	require.NoError(t, s.StartRun("task", func() {}))

	_, err := s.AskQuestion("which date?")
	require.NoError(t, err)

	require.NoError(t, s.Answer("tomorrow"))
	err = s.Answer("next week")
	assert.ErrorIs(t, err, ErrNoPendingInput)
}

func TestSession_SecondQuestionRejectedWhileOutstanding(t *testing.T) {
	s := New("sess-1", &fakeHandle{})
	require.NoError(t, s.StartRun("task", func() {}))

	_, err := s.AskQuestion("first?")
	require.NoError(t, err)
	_, err = s.AskQuestion("second?")
	assert.ErrorIs(t, err, ErrQuestionOutstanding)
}

func TestSession_QuestionSeqDistinguishesRepeatedText(t *testing.T) {
	s := New("sess-1", &fakeHandle{})
	require.NoError(t, s.StartRun("task", func() {}))

	_, err := s.AskQuestion("confirm send?")
	require.NoError(t, err)
	first := s.Snapshot().QuestionSeq
	assert.NotZero(t, first)
	require.NoError(t, s.Answer("yes"))

	// Same text again is a new question and carries a new identity.
	_, err = s.AskQuestion("confirm send?")
	require.NoError(t, err)
	second := s.Snapshot().QuestionSeq
	assert.Greater(t, second, first)
	require.NoError(t, s.Answer("yes"))

	snap := s.Snapshot()
	assert.False(t, snap.NeedsInput)
	assert.Zero(t, snap.QuestionSeq)
}

func TestSession_AnswerWithoutQuestion(t *testing.T) {
	s := New("sess-1", &fakeHandle{})
	require.NoError(t, s.StartRun("task", func() {}))

	err := s.Answer("nobody asked")
	assert.ErrorIs(t, err, ErrNoPendingInput)
}

func TestSession_CloseIdle(t *testing.T) {
	h := &fakeHandle{}
	s := New("sess-1", h)

	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, int32(1), h.closed.Load())

	err := s.Close()
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, int32(1), h.closed.Load(), "handle must be released exactly once")
}

func TestSession_CloseAbandonsPendingQuestion(t *testing.T) {
	h := &fakeHandle{}
	s := New("sess-1", h)

	cancelled := make(chan struct{})
	require.NoError(t, s.StartRun("task", func() { close(cancelled) }))

	pq, err := s.AskQuestion("still there?")
	require.NoError(t, err)

	// Simulated executor: settles the run once the question is abandoned.
	waitErr := make(chan error, 1)
	go func() {
		_, err := pq.Wait(context.Background())
		waitErr <- err
		s.FailRun(FailureActuator, "run cancelled")
	}()

	require.NoError(t, s.Close())

	select {
	case err := <-waitErr:
		assert.ErrorIs(t, err, ErrSessionClosed)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for abandoned question")
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("close should cancel the in-flight run")
	}

	assert.Equal(t, StateClosed, s.State(), "late settle must not overwrite closed state")
	assert.Equal(t, int32(1), h.closed.Load())
}

func TestSession_StartRunAfterClose(t *testing.T) {
	s := New("sess-1", &fakeHandle{})
	require.NoError(t, s.Close())

	err := s.StartRun("task", func() {})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_NextSeqMonotonic(t *testing.T) {
	s := New("sess-1", &fakeHandle{})

	var prev uint64
	for i := 0; i < 100; i++ {
		seq := s.NextSeq()
		require.Greater(t, seq, prev)
		prev = seq
	}
}

func TestPendingQuestion_WaitContextCancel(t *testing.T) {
	pq := newPendingQuestion("sess-1", "q", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pq.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
