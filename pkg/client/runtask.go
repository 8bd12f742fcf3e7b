package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HarxSan/Mini-Manus/pkg/logging"
	"github.com/HarxSan/Mini-Manus/pkg/session"
)

// InputFunc supplies an answer when a running task asks the user a question.
type InputFunc func(ctx context.Context, question string) (string, error)

// TaskOutcome is the settled result of a task. A failed task is reported
// here, not as an error; RunTask only errors on transport or protocol
// trouble.
type TaskOutcome struct {
	Success   bool
	Result    string
	Error     string
	ErrorKind session.FailureKind
}

func outcomeFromSnapshot(snap session.Snapshot) *TaskOutcome {
	if snap.State == session.StateCompleted {
		return &TaskOutcome{Success: true, Result: snap.LastResult}
	}
	return &TaskOutcome{
		Success:   false,
		Result:    snap.LastResult,
		Error:     snap.LastError,
		ErrorKind: snap.LastErrorKind,
	}
}

// RunTask submits a task and blocks until it settles, answering any questions
// the task asks through onInput. It prefers the push stream and falls back to
// polling transparently, deduplicating events so a reconnect or an
// at-least-once redelivery never answers the same question twice.
func (c *Client) RunTask(ctx context.Context, sessionID, task string, maxSteps int, onInput InputFunc) (*TaskOutcome, error) {
	if err := c.StartTask(ctx, sessionID, task, maxSteps); err != nil {
		return nil, err
	}

	if c.disableStream {
		return c.watchByPolling(ctx, sessionID, onInput)
	}

	outcome, err := c.watchByStream(ctx, sessionID, onInput)
	if err == nil {
		return outcome, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	c.log.Warn(logging.CategoryClient, "stream_fallback", sessionID, err.Error(), nil)
	return c.watchByPolling(ctx, sessionID, onInput)
}

// watchByStream consumes the push stream. A quiet stream is verified with a
// single pull once per quiet window, so a lost terminal event cannot hang the
// watch forever.
func (c *Client) watchByStream(ctx context.Context, sessionID string, onInput InputFunc) (*TaskOutcome, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan session.Event, 64)
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- c.streamEvents(streamCtx, sessionID, events)
	}()

	var lastSeq uint64
	var answeredSeq uint64

	quiet := time.NewTimer(c.quietWindow)
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case err := <-streamErr:
			if err == nil {
				// Server closed the stream cleanly; the session is gone.
				// Settle from whatever the pull endpoint still knows.
				snap, serr := c.Status(ctx, sessionID)
				if serr != nil {
					if errors.Is(serr, ErrSessionNotFound) {
						return nil, fmt.Errorf("session closed before the task settled")
					}
					return nil, serr
				}
				if snap.Terminal() {
					return outcomeFromSnapshot(snap), nil
				}
				return nil, fmt.Errorf("push stream ended while the task was still running")
			}
			return nil, err

		case <-quiet.C:
			// No session event for a full window. Verify over the pull
			// channel: a terminal state or a pending question whose event
			// was lost in transit is recovered here.
			snap, err := c.Status(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			if snap.Terminal() {
				return outcomeFromSnapshot(snap), nil
			}
			if snap.NeedsInput && snap.QuestionSeq > answeredSeq {
				answeredSeq = snap.QuestionSeq
				if err := c.answerQuestion(ctx, sessionID, snap.PendingQuestion, onInput); err != nil {
					return nil, err
				}
			}
			quiet.Reset(c.quietWindow)

		case ev := <-events:
			// Only sequenced session events count as liveness; heartbeats
			// and the synthesized connected frame must not push the quiet
			// verification out forever.
			if ev.Seq != 0 {
				if !quiet.Stop() {
					select {
					case <-quiet.C:
					default:
					}
				}
				quiet.Reset(c.quietWindow)

				// Events are delivered at least once; the sequence number
				// makes redelivery harmless.
				if ev.Seq <= lastSeq {
					continue
				}
				lastSeq = ev.Seq
			}

			switch ev.Type {
			case session.EventTaskComplete:
				return &TaskOutcome{Success: true, Result: ev.Result}, nil

			case session.EventTaskError:
				return &TaskOutcome{
					Success:   false,
					Error:     ev.Error,
					ErrorKind: ev.Snapshot.LastErrorKind,
				}, nil

			case session.EventInputRequest:
				// The quiet-window pull may have answered this question
				// already; the question sequence covers that race where
				// the event sequence cannot.
				if ev.Snapshot.QuestionSeq != 0 && ev.Snapshot.QuestionSeq <= answeredSeq {
					continue
				}
				answeredSeq = ev.Snapshot.QuestionSeq
				if err := c.answerQuestion(ctx, sessionID, ev.Snapshot.PendingQuestion, onInput); err != nil {
					return nil, err
				}

			case session.EventConnected, session.EventStateChange:
				if ev.Snapshot.Terminal() {
					return outcomeFromSnapshot(ev.Snapshot), nil
				}
			}
		}
	}
}

// watchByPolling samples the pull endpoint until the task settles. Question
// handling is keyed on the per-question sequence number so the same suspension
// is answered only once across consecutive samples, while a new question that
// repeats the previous one's text is still answered.
func (c *Client) watchByPolling(ctx context.Context, sessionID string, onInput InputFunc) (*TaskOutcome, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	snapshots := make(chan session.Snapshot, 1)
	pollErr := make(chan error, 1)
	go func() {
		pollErr <- c.pollSnapshots(watchCtx, sessionID, snapshots)
	}()

	var answeredSeq uint64
	answeredQuestion := ""
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case err := <-pollErr:
			if err == nil {
				// Terminal snapshot was already forwarded; drain it.
				select {
				case snap := <-snapshots:
					if snap.Terminal() {
						return outcomeFromSnapshot(snap), nil
					}
				default:
				}
				return nil, fmt.Errorf("polling stopped without a terminal snapshot")
			}
			return nil, err

		case snap := <-snapshots:
			if snap.Terminal() {
				return outcomeFromSnapshot(snap), nil
			}
			if !snap.NeedsInput {
				answeredQuestion = ""
				continue
			}
			if snap.QuestionSeq != 0 {
				if snap.QuestionSeq <= answeredSeq {
					continue
				}
				answeredSeq = snap.QuestionSeq
			} else if snap.PendingQuestion == answeredQuestion {
				// A server that does not number its questions still gets
				// text-based suppression of the same suspension.
				continue
			}
			answeredQuestion = snap.PendingQuestion
			if err := c.answerQuestion(ctx, sessionID, snap.PendingQuestion, onInput); err != nil {
				return nil, err
			}
		}
	}
}

func (c *Client) answerQuestion(ctx context.Context, sessionID, question string, onInput InputFunc) error {
	if onInput == nil {
		return fmt.Errorf("task asked %q but no input handler was provided", question)
	}

	answer, err := onInput(ctx, question)
	if err != nil {
		return fmt.Errorf("input handler: %w", err)
	}

	err = c.ProvideInput(ctx, sessionID, answer)
	if err != nil && errors.Is(err, ErrNoPendingInput) {
		// Someone else answered first, or a redelivered request raced the
		// answer. Either way the session moved on.
		return nil
	}
	return err
}
