package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/HarxSan/Mini-Manus/pkg/logging"
	"github.com/HarxSan/Mini-Manus/pkg/session"
)

// Config configures a Client.
type Config struct {
	// BaseURL of the orchestration service (default: http://localhost:8000).
	BaseURL string

	// Timeout applied to every command request.
	Timeout time.Duration

	// RetryCount is how many times a transient failure is retried.
	RetryCount int

	// DisableStream forces polling even when the push stream would work.
	DisableStream bool

	// Logger is the structured event log (optional).
	Logger *logging.Logger
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8000"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RetryCount <= 0 {
		c.RetryCount = 3
	}
	return c
}

// Client talks to the orchestration service. Transient transport failures and
// 5xx responses are retried with exponential backoff; 4xx responses are
// surfaced immediately with the service's own error detail.
type Client struct {
	http          *resty.Client
	baseURL       string
	disableStream bool
	quietWindow   time.Duration
	log           *logging.Logger
}

// New creates a Client for the service at cfg.BaseURL.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	base := strings.TrimRight(cfg.BaseURL, "/")

	cli := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	return &Client{
		http:          cli,
		baseURL:       base,
		disableStream: cfg.DisableStream,
		quietWindow:   streamQuietWindow,
		log:           cfg.Logger,
	}
}

// InitializeOptions are the optional knobs for a new session.
type InitializeOptions struct {
	SessionID         string `json:"session_id,omitempty"`
	ChromePath        string `json:"chrome_path,omitempty"`
	Headless          bool   `json:"headless,omitempty"`
	ViewportExpansion int    `json:"viewport_expansion,omitempty"`
}

type initializeResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// Initialize creates a new browser session and returns its id.
func (c *Client) Initialize(ctx context.Context, opts InitializeOptions) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(opts).
		Post("/api/v1/sessions")
	if err != nil {
		return "", fmt.Errorf("initialize request: %w", err)
	}
	if err := mapResponseError(resp); err != nil {
		return "", err
	}

	var out initializeResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("initialize decode response: %w", err)
	}
	c.log.Info(logging.CategoryClient, "session_initialized", out.SessionID, "session ready", nil)
	return out.SessionID, nil
}

// StartTask submits a task to the session without waiting for it to finish.
// Use RunTask for the blocking variant with input handling.
func (c *Client) StartTask(ctx context.Context, sessionID, task string, maxSteps int) error {
	body := map[string]any{"task": task}
	if maxSteps > 0 {
		body["max_steps"] = maxSteps
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/api/v1/sessions/" + sessionID + "/run")
	if err != nil {
		return fmt.Errorf("run request: %w", err)
	}
	if err := mapResponseError(resp); err != nil {
		return err
	}
	c.log.Info(logging.CategoryClient, "task_started", sessionID, task, nil)
	return nil
}

// Status fetches the session's current snapshot over the pull channel.
func (c *Client) Status(ctx context.Context, sessionID string) (session.Snapshot, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/api/v1/sessions/" + sessionID + "/status")
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("status request: %w", err)
	}
	if err := mapResponseError(resp); err != nil {
		return session.Snapshot{}, err
	}

	var snap session.Snapshot
	if err := json.Unmarshal(resp.Body(), &snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("status decode response: %w", err)
	}
	return snap, nil
}

// ProvideInput answers the session's pending question.
func (c *Client) ProvideInput(ctx context.Context, sessionID, answer string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"answer": answer}).
		Post("/api/v1/sessions/" + sessionID + "/input")
	if err != nil {
		return fmt.Errorf("input request: %w", err)
	}
	if err := mapResponseError(resp); err != nil {
		return err
	}
	c.log.Info(logging.CategoryClient, "input_provided", sessionID, "answer delivered", nil)
	return nil
}

// CloseSession tears the session down and releases its browser.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/api/v1/sessions/" + sessionID)
	if err != nil {
		return fmt.Errorf("close request: %w", err)
	}
	if err := mapResponseError(resp); err != nil {
		return err
	}
	c.log.Info(logging.CategoryClient, "session_closed", sessionID, "session closed", nil)
	return nil
}

// Healthy reports whether the service answers its health probe.
func (c *Client) Healthy(ctx context.Context) bool {
	resp, err := c.http.R().SetContext(ctx).Get("/healthz")
	return err == nil && resp.StatusCode() == 200
}

func mapResponseError(resp *resty.Response) error {
	if resp.StatusCode() < 400 {
		return nil
	}
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(resp.Body(), &body)
	return &APIError{StatusCode: resp.StatusCode(), Message: body.Error}
}
