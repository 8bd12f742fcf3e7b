package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/HarxSan/Mini-Manus/pkg/actuator"
	"github.com/HarxSan/Mini-Manus/pkg/logging"
	"github.com/HarxSan/Mini-Manus/pkg/session"
)

type runOutcome struct {
	result *actuator.Result
	err    error
}

// execute drives one task run to a terminal state. It runs on its own
// goroutine; the session is the only shared state it touches.
func (o *Orchestrator) execute(ctx context.Context, cancel context.CancelFunc, s *session.Session, act actuator.Actuator, task string, maxSteps int) {
	defer cancel()

	start := time.Now()
	budget := newRunBudget(o.maxTaskDuration)
	defer budget.Stop()

	ask := o.askFunc(s, budget)

	outcome := make(chan runOutcome, 1)
	go func() {
		result, err := act.Execute(ctx, task, maxSteps, ask)
		outcome <- runOutcome{result: result, err: err}
	}()

	select {
	case out := <-outcome:
		o.settle(s, out, time.Since(start))

	case <-budget.Expired():
		// Abandon the run: cancel tells the actuator to stop, but the
		// session fails deterministically either way.
		cancel()
		msg := fmt.Sprintf("browser automation task timed out after %s", o.maxTaskDuration)
		s.FailRun(session.FailureTimeout, msg)
		recordRunFailure(string(session.FailureTimeout))
		metricRunDuration.Observe(time.Since(start).Seconds())
		o.log.Error(logging.CategoryTask, "run_timeout", s.ID(), msg, nil)
		o.publish(s, session.EventTaskError, "", msg)
		o.publish(s, session.EventStateChange, "", "")
	}
}

func (o *Orchestrator) settle(s *session.Session, out runOutcome, elapsed time.Duration) {
	metricRunDuration.Observe(elapsed.Seconds())

	if out.err != nil {
		msg := out.err.Error()
		s.FailRun(session.FailureActuator, msg)
		recordRunFailure(string(session.FailureActuator))
		o.log.Error(logging.CategoryTask, "run_failed", s.ID(), msg, nil)
		o.publish(s, session.EventTaskError, "", msg)
		o.publish(s, session.EventStateChange, "", "")
		return
	}

	digest := out.result.Digest()
	s.CompleteRun(digest)
	metricRunsCompleted.Inc()
	o.log.Info(logging.CategoryTask, "run_completed", s.ID(), "", map[string]any{
		"steps":    out.result.Steps,
		"duration": elapsed.String(),
	})
	o.publish(s, session.EventTaskComplete, digest, "")
	o.publish(s, session.EventStateChange, "", "")
}

// askFunc bridges the actuator's input requests into the session record. The
// budget clock stops while the run is suspended on a question.
func (o *Orchestrator) askFunc(s *session.Session, budget *runBudget) actuator.AskFunc {
	return func(ctx context.Context, question string) (string, error) {
		pq, err := s.AskQuestion(question)
		if err != nil {
			return "", err
		}

		budget.Pause()
		defer budget.Resume()

		metricQuestionsAsked.Inc()
		o.transcript.Question(s.ID(), question)
		o.log.Info(logging.CategoryInput, "input_requested", s.ID(), question, nil)
		o.publish(s, session.EventInputRequest, "", "")

		return pq.Wait(ctx)
	}
}
