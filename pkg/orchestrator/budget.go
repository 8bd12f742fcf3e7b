package orchestrator

import (
	"sync"
	"time"
)

// runBudget is the pausable wall-clock ceiling for one task run. The clock
// stops while the run is suspended on human input, so time spent waiting for
// an answer never counts against the budget.
type runBudget struct {
	mu        sync.Mutex
	remaining time.Duration
	startedAt time.Time
	timer     *time.Timer
	expired   chan struct{}
	once      sync.Once
	paused    bool
}

func newRunBudget(d time.Duration) *runBudget {
	b := &runBudget{
		remaining: d,
		startedAt: time.Now(),
		expired:   make(chan struct{}),
	}
	b.timer = time.AfterFunc(d, b.expire)
	return b
}

func (b *runBudget) expire() {
	b.once.Do(func() { close(b.expired) })
}

// Expired is closed when the budget runs out while the clock is running.
func (b *runBudget) Expired() <-chan struct{} {
	return b.expired
}

// Pause stops the clock. A paused budget never expires.
func (b *runBudget) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.paused {
		return
	}
	b.paused = true
	b.timer.Stop()
	b.remaining -= time.Since(b.startedAt)
	if b.remaining < 0 {
		b.remaining = 0
	}
}

// Resume restarts the clock with the remaining allowance.
func (b *runBudget) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.paused {
		return
	}
	b.paused = false
	b.startedAt = time.Now()
	if b.remaining <= 0 {
		b.expire()
		return
	}
	b.timer = time.AfterFunc(b.remaining, b.expire)
}

// Stop releases the timer once the run settles.
func (b *runBudget) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timer.Stop()
}
