package client

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/HarxSan/Mini-Manus/pkg/logging"
	"github.com/HarxSan/Mini-Manus/pkg/session"
)

const (
	// pollInterval is how often the pull endpoint is sampled when the push
	// stream is unavailable.
	pollInterval = time.Second

	// maxPollAttempts bounds a watch to ten minutes of active polling.
	// Attempts are not counted while the session is suspended on input.
	maxPollAttempts = 600

	// streamQuietWindow is how long a silent stream is tolerated before a
	// single pull is made to verify the session did not finish unnoticed.
	streamQuietWindow = 60 * time.Second
)

// wsURL converts the HTTP base URL into the push endpoint for a session.
func (c *Client) wsURL(sessionID string) string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/v1/sessions/" + sessionID + "/events"
}

// streamEvents dials the push endpoint and forwards its events until the
// context is cancelled or the connection drops. The returned error reports
// why the stream ended; a clean server-side close returns nil.
func (c *Client) streamEvents(ctx context.Context, sessionID string, events chan<- session.Event) error {
	conn, _, err := websocket.Dial(ctx, c.wsURL(sessionID), nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "watch finished")
	conn.SetReadLimit(16 << 20)

	c.log.Debug(logging.CategoryClient, "stream_attached", sessionID, "push stream connected", nil)

	for {
		var ev session.Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pollSnapshots samples the pull endpoint at pollInterval and forwards each
// snapshot until the context is cancelled, the session reaches a terminal
// state, or the attempt budget runs out. Suspended time does not consume
// attempts, so a session waiting on human input can wait indefinitely.
func (c *Client) pollSnapshots(ctx context.Context, sessionID string, snapshots chan<- session.Snapshot) error {
	limiter := rate.NewLimiter(rate.Every(pollInterval), 1)

	attempts := 0
	for attempts < maxPollAttempts {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		snap, err := c.Status(ctx, sessionID)
		if err != nil {
			return err
		}
		if !snap.NeedsInput {
			attempts++
		}

		select {
		case snapshots <- snap:
		case <-ctx.Done():
			return ctx.Err()
		}

		if snap.Terminal() {
			return nil
		}
	}
	return ErrWatchTimeout
}
