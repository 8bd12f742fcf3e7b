// Package agentd adapts an external browser-driving agent daemon to the
// actuator port. The daemon owns the reasoning loop; this adapter relays the
// task, collects step history, and bridges human-input requests back to the
// orchestrator.
package agentd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/HarxSan/Mini-Manus/pkg/actuator"
)

// Runtime launches actuator instances backed by the agent daemon.
type Runtime struct {
	cfg     Config
	metrics *actuator.Metrics
}

// NewRuntime creates an agentd runtime adapter.
func NewRuntime(cfg Config) (*Runtime, error) {
	merged := cfg.withDefaults()
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &Runtime{cfg: merged, metrics: actuator.NewMetrics()}, nil
}

// Metrics exposes the runtime's counters.
func (r *Runtime) Metrics() *actuator.Metrics {
	return r.metrics
}

// Launch brings up one actuator: credential preflight, optional local Chrome,
// then the daemon handshake. On any failure nothing is left behind.
func (r *Runtime) Launch(ctx context.Context, opts actuator.LaunchOptions) (actuator.Actuator, error) {
	if r == nil {
		return nil, actuator.ErrUnavailable
	}
	if strings.TrimSpace(opts.SessionID) == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	for _, name := range r.cfg.RequiredCredentials {
		if os.Getenv(name) == "" {
			err := fmt.Errorf("%w: %s not set", actuator.ErrMissingCredentials, name)
			r.metrics.RecordLaunch(err)
			return nil, err
		}
	}

	var chrome *actuator.ChromeProcess
	if opts.ChromePath != "" {
		var err error
		chrome, err = actuator.LaunchChrome(context.WithoutCancel(ctx), opts.ChromePath)
		if err != nil {
			r.metrics.RecordLaunch(err)
			return nil, err
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, r.cfg.ConnectTimeout)
	defer cancel()

	c, err := dial(dialCtx, r.cfg.Endpoint)
	if err != nil {
		if chrome != nil {
			_ = chrome.Terminate()
		}
		r.metrics.RecordLaunch(err)
		return nil, fmt.Errorf("%w: %v", actuator.ErrLaunchFailed, err)
	}

	launch := message{Type: msgLaunch, SessionID: opts.SessionID, Options: &opts}
	if err := c.write(dialCtx, launch); err != nil {
		_ = c.close()
		if chrome != nil {
			_ = chrome.Terminate()
		}
		r.metrics.RecordLaunch(err)
		return nil, fmt.Errorf("%w: %v", actuator.ErrLaunchFailed, err)
	}
	ack, err := c.read(dialCtx)
	if err != nil {
		_ = c.close()
		if chrome != nil {
			_ = chrome.Terminate()
		}
		r.metrics.RecordLaunch(err)
		return nil, fmt.Errorf("%w: %v", actuator.ErrLaunchFailed, err)
	}
	if ack.Type != msgLaunched {
		_ = c.close()
		if chrome != nil {
			_ = chrome.Terminate()
		}
		err := actuator.NewAgentError(ack.Code, ack.Message)
		r.metrics.RecordLaunch(err)
		return nil, fmt.Errorf("%w: %v", actuator.ErrLaunchFailed, err)
	}

	r.metrics.RecordLaunch(nil)
	return &instance{
		id:      opts.SessionID,
		conn:    c,
		chrome:  chrome,
		metrics: r.metrics,
	}, nil
}

// Close releases the runtime. The daemon is externally supervised; there is
// nothing to tear down beyond per-instance state.
func (r *Runtime) Close() error {
	return nil
}

// instance is one live actuator bound to a session.
type instance struct {
	id      string
	conn    *conn
	chrome  *actuator.ChromeProcess
	metrics *actuator.Metrics
	closed  bool
}

func (i *instance) ID() string { return i.id }

// Execute relays the task and drives the daemon event loop until a result or
// error arrives. Human-input requests are forwarded through ask and the
// answer relayed back.
func (i *instance) Execute(ctx context.Context, task string, maxSteps int, ask actuator.AskFunc) (*actuator.Result, error) {
	if i.closed {
		return nil, actuator.ErrClosed
	}

	start := time.Now()
	run := message{Type: msgRun, SessionID: i.id, Task: task, MaxSteps: maxSteps}
	if err := i.conn.write(ctx, run); err != nil {
		i.metrics.RecordExecute(err)
		return nil, err
	}

	var history []actuator.Step
	lastStep := start
	for {
		msg, err := i.conn.read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			i.metrics.RecordExecute(err)
			return nil, err
		}

		switch msg.Type {
		case msgStep:
			if msg.Step != nil {
				history = append(history, *msg.Step)
				i.metrics.RecordStep(time.Since(lastStep))
				lastStep = time.Now()
			}

		case msgAsk:
			i.metrics.RecordQuestion()
			answer, err := ask(ctx, msg.Question)
			if err != nil {
				i.metrics.RecordExecute(err)
				return nil, err
			}
			reply := message{Type: msgAnswer, SessionID: i.id, Answer: answer}
			if err := i.conn.write(ctx, reply); err != nil {
				i.metrics.RecordExecute(err)
				return nil, err
			}

		case msgResult:
			result := msg.Result
			if result == nil {
				result = &actuator.Result{}
			}
			result.History = append(history, result.History...)
			result.Steps = len(result.History)
			result.Duration = time.Since(start)
			i.metrics.RecordExecute(nil)
			return result, nil

		case msgError:
			err := actuator.NewAgentError(msg.Code, msg.Message)
			i.metrics.RecordExecute(err)
			return nil, err
		}
	}
}

// Close tears down the daemon connection and any Chrome this instance
// launched.
func (i *instance) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	i.metrics.RecordClose()

	err := i.conn.close()
	if i.chrome != nil {
		if terr := i.chrome.Terminate(); err == nil {
			err = terr
		}
	}
	return err
}
