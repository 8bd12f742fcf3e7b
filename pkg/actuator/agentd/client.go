package agentd

import (
	"context"
	"sync"

	"github.com/HarxSan/Mini-Manus/pkg/actuator"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// message is the JSON envelope exchanged with the agent daemon.
type message struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	Task      string                 `json:"task,omitempty"`
	MaxSteps  int                    `json:"max_steps,omitempty"`
	Options   *actuator.LaunchOptions `json:"options,omitempty"`
	Question  string                 `json:"question,omitempty"`
	Answer    string                 `json:"answer,omitempty"`
	Step      *actuator.Step         `json:"step,omitempty"`
	Result    *actuator.Result       `json:"result,omitempty"`
	Code      string                 `json:"code,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

// Daemon message types.
const (
	msgLaunch   = "launch"
	msgLaunched = "launched"
	msgRun      = "run"
	msgStep     = "step"
	msgAsk      = "ask"
	msgAnswer   = "answer"
	msgResult   = "result"
	msgError    = "error"
)

// conn serializes writes to a single daemon connection. Reads happen from one
// goroutine only, the instance's Execute loop.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func dial(ctx context.Context, endpoint string) (*conn, error) {
	ws, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, actuator.WrapAgentError("unavailable", "dial agentd", err)
	}
	ws.SetReadLimit(16 << 20) // page captures are large
	return &conn{ws: ws}, nil
}

func (c *conn) write(ctx context.Context, msg message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := wsjson.Write(ctx, c.ws, msg); err != nil {
		return actuator.WrapAgentError("connection_lost", "write to agentd", err)
	}
	return nil
}

func (c *conn) read(ctx context.Context) (message, error) {
	var msg message
	if err := wsjson.Read(ctx, c.ws, &msg); err != nil {
		return message{}, actuator.WrapAgentError("connection_lost", "read from agentd", err)
	}
	return msg, nil
}

func (c *conn) close() error {
	if c == nil || c.ws == nil {
		return nil
	}
	return c.ws.Close(websocket.StatusNormalClosure, "session closed")
}
