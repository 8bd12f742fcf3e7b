package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunBudget_Expires(t *testing.T) {
	b := newRunBudget(20 * time.Millisecond)
	defer b.Stop()

	select {
	case <-b.Expired():
	case <-time.After(time.Second):
		t.Fatal("budget should have expired")
	}
}

func TestRunBudget_PausedBudgetNeverExpires(t *testing.T) {
	b := newRunBudget(30 * time.Millisecond)
	defer b.Stop()

	b.Pause()

	select {
	case <-b.Expired():
		t.Fatal("paused budget must not expire")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRunBudget_ResumeContinuesClock(t *testing.T) {
	b := newRunBudget(40 * time.Millisecond)
	defer b.Stop()

	b.Pause()
	time.Sleep(100 * time.Millisecond)
	b.Resume()

	select {
	case <-b.Expired():
	case <-time.After(time.Second):
		t.Fatal("resumed budget should expire with remaining allowance")
	}
}

func TestRunBudget_ResumeWithNothingLeftExpiresImmediately(t *testing.T) {
	b := newRunBudget(10 * time.Millisecond)
	defer b.Stop()

	time.Sleep(30 * time.Millisecond)
	b.Pause()
	b.Resume()

	select {
	case <-b.Expired():
	case <-time.After(time.Second):
		t.Fatal("exhausted budget should expire on resume")
	}
}

func TestRunBudget_PauseResumeIdempotent(t *testing.T) {
	b := newRunBudget(time.Hour)
	defer b.Stop()

	b.Pause()
	b.Pause()
	b.Resume()
	b.Resume()

	select {
	case <-b.Expired():
		t.Fatal("budget with an hour left must not expire")
	case <-time.After(50 * time.Millisecond):
	}
	assert.NotNil(t, b.Expired())
}
