// Package orchestrator owns the session lifecycle: it brings actuators up,
// schedules task runs in the background, brokers human-input exchanges, and
// publishes status events for push subscribers. All state lives in the session
// store passed in at construction.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HarxSan/Mini-Manus/pkg/actuator"
	"github.com/HarxSan/Mini-Manus/pkg/bus"
	"github.com/HarxSan/Mini-Manus/pkg/logging"
	"github.com/HarxSan/Mini-Manus/pkg/session"
)

// ErrInitializationFailed wraps every failure to bring an actuator up. No
// session record survives a failed initialize.
var ErrInitializationFailed = errors.New("browser initialization failed")

// Options configures an Orchestrator.
type Options struct {
	Store   *session.Store
	Runtime actuator.Runtime

	// Bus carries push events. Optional; without it only polling works.
	Bus bus.EventBus

	// Logger and Transcript are optional observability sinks.
	Logger     *logging.Logger
	Transcript *logging.TranscriptLogger

	// MaxTaskDuration is the per-run wall-clock ceiling (default 10m).
	// Suspension on human input is excluded from the budget.
	MaxTaskDuration time.Duration

	// DefaultMaxSteps is used when a run request carries no step budget
	// (default 50).
	DefaultMaxSteps int
}

// Orchestrator is the boundary contract over the session store:
// Initialize / Run / Status / ProvideInput / Close.
type Orchestrator struct {
	store           *session.Store
	runtime         actuator.Runtime
	bus             bus.EventBus
	log             *logging.Logger
	transcript      *logging.TranscriptLogger
	maxTaskDuration time.Duration
	defaultMaxSteps int
}

// New creates an Orchestrator. Store and Runtime are required.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}
	if opts.Runtime == nil {
		return nil, errors.New("actuator runtime is required")
	}
	if opts.MaxTaskDuration <= 0 {
		opts.MaxTaskDuration = 10 * time.Minute
	}
	if opts.DefaultMaxSteps <= 0 {
		opts.DefaultMaxSteps = 50
	}
	return &Orchestrator{
		store:           opts.Store,
		runtime:         opts.Runtime,
		bus:             opts.Bus,
		log:             opts.Logger,
		transcript:      opts.Transcript,
		maxTaskDuration: opts.MaxTaskDuration,
		defaultMaxSteps: opts.DefaultMaxSteps,
	}, nil
}

// InitializeRequest carries actuator launch options for a new session.
type InitializeRequest struct {
	SessionID         string
	ChromePath        string
	Headless          bool
	ViewportExpansion int
}

// Initialize brings up one actuator and registers a session owning it. The
// caller may supply the session id; otherwise one is generated. On failure no
// session record is left behind.
func (o *Orchestrator) Initialize(ctx context.Context, req InitializeRequest) (string, error) {
	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		id = uuid.NewString()
	}

	opts := actuator.DefaultLaunchOptions()
	opts.SessionID = id
	opts.ChromePath = req.ChromePath
	opts.Headless = req.Headless
	opts.ViewportExpansion = req.ViewportExpansion

	handle, err := o.runtime.Launch(ctx, opts)
	if err != nil {
		metricInitFailures.Inc()
		o.log.Error(logging.CategorySession, "init_failed", id, err.Error(), nil)
		return "", fmt.Errorf("%w: %v", ErrInitializationFailed, err)
	}

	s := session.New(id, handle)
	if err := o.store.Add(s); err != nil {
		_ = handle.Close()
		return "", err
	}

	metricSessionsInitialized.Inc()
	metricSessionsActive.Inc()
	o.log.Info(logging.CategorySession, "initialized", id, "session initialized", nil)
	return id, nil
}

// Run schedules a task for background execution and returns immediately. A
// second run while one is active fails with ErrTaskAlreadyRunning and has no
// side effect.
func (o *Orchestrator) Run(ctx context.Context, sessionID, task string, maxSteps int) error {
	if strings.TrimSpace(task) == "" {
		return errors.New("task text is required")
	}
	s, err := o.store.Get(sessionID)
	if err != nil {
		return err
	}
	if maxSteps <= 0 {
		maxSteps = o.defaultMaxSteps
	}

	// The run outlives the request; it is bounded by the task budget and
	// cancelled through the session on close.
	runCtx, cancel := context.WithCancel(context.Background())
	if err := s.StartRun(task, cancel); err != nil {
		cancel()
		return err
	}

	handle, ok := s.Handle().(actuator.Actuator)
	if !ok {
		cancel()
		s.FailRun(session.FailureActuator, "actuator handle unavailable")
		return session.ErrSessionClosed
	}

	metricRunsStarted.Inc()
	o.log.Info(logging.CategoryTask, "run_started", sessionID, task, map[string]any{"max_steps": maxSteps})
	o.publish(s, session.EventStateChange, "", "")

	go o.execute(runCtx, cancel, s, handle, task, maxSteps)
	return nil
}

// Status returns the snapshot served by the pull channel. It never blocks on
// task execution.
func (o *Orchestrator) Status(ctx context.Context, sessionID string) (session.Snapshot, error) {
	s, err := o.store.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// ProvideInput resolves the session's pending question exactly once. With
// nothing outstanding it fails with ErrNoPendingInput.
func (o *Orchestrator) ProvideInput(ctx context.Context, sessionID, answer string) error {
	s, err := o.store.Get(sessionID)
	if err != nil {
		return err
	}
	if err := s.Answer(answer); err != nil {
		return err
	}

	metricQuestionsAnswered.Inc()
	o.transcript.Answer(sessionID, answer)
	o.log.Info(logging.CategoryInput, "input_provided", sessionID, "", nil)
	o.publish(s, session.EventStateChange, "", "")
	return nil
}

// Close cancels any in-flight run, releases the actuator handle, and purges
// the session. A second close reports ErrSessionNotFound.
func (o *Orchestrator) Close(ctx context.Context, sessionID string) error {
	s, err := o.store.Remove(sessionID)
	if err != nil {
		return err
	}

	err = s.Close()
	metricSessionsActive.Dec()
	o.log.Info(logging.CategorySession, "closed", sessionID, "session closed", nil)
	o.publish(s, session.EventStateChange, "", "")
	if err != nil && !errors.Is(err, session.ErrSessionClosed) {
		return err
	}
	return nil
}

// CloseAll closes every live session; used on daemon shutdown.
func (o *Orchestrator) CloseAll(ctx context.Context) {
	for _, s := range o.store.List() {
		_ = o.Close(ctx, s.ID())
	}
	_ = o.runtime.Close()
}
