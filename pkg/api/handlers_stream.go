package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/HarxSan/Mini-Manus/pkg/bus"
	"github.com/HarxSan/Mini-Manus/pkg/logging"
	"github.com/HarxSan/Mini-Manus/pkg/session"
)

const (
	// heartbeatInterval keeps intermediaries from reaping idle push connections.
	heartbeatInterval = 30 * time.Second

	// streamWriteTimeout bounds every frame write so a subscriber that stops
	// reading cannot wedge its goroutine until TCP teardown.
	streamWriteTimeout = 10 * time.Second
)

func writeFrame(ctx context.Context, c *websocket.Conn, ev session.Event) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, c, ev)
}

// handleEvents upgrades the request to a WebSocket and pushes the session's
// status events as they are published. The first frame is always a "connected"
// event carrying the current snapshot, so a subscriber never starts blind.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	snap, err := s.orch.Status(r.Context(), sessionID)
	if err != nil {
		writeOperationError(w, err)
		return
	}

	if s.eventBus == nil {
		writeError(w, http.StatusServiceUnavailable, "Event streaming is not enabled")
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn(logging.CategoryStream, "ws_accept_failed", sessionID, err.Error(), nil)
		return
	}
	defer c.Close(websocket.StatusInternalError, "stream closed")

	ctx := r.Context()

	events := make(chan session.Event, 64)
	sub, err := s.eventBus.Subscribe(ctx, session.Subject(sessionID), func(msg *bus.Message) {
		var ev session.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		select {
		case events <- ev:
		default:
			// Slow consumer. Dropping here is fine, the snapshot in every
			// later event carries the full current state.
		}
	})
	if err != nil {
		s.log.Error(logging.CategoryStream, "ws_subscribe_failed", sessionID, err.Error(), nil)
		c.Close(websocket.StatusInternalError, "subscription failed")
		return
	}
	defer sub.Unsubscribe()

	connected := session.Event{
		SessionID: sessionID,
		Type:      session.EventConnected,
		Snapshot:  snap,
		Timestamp: time.Now().UTC(),
	}
	if err := writeFrame(ctx, c, connected); err != nil {
		return
	}

	s.log.Debug(logging.CategoryStream, "ws_subscribed", sessionID, "event stream attached", nil)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case <-heartbeat.C:
			err := writeFrame(ctx, c, session.Event{
				SessionID: sessionID,
				Type:      session.EventHeartbeat,
				Timestamp: time.Now().UTC(),
			})
			if err != nil {
				return
			}
		case ev := <-events:
			if err := writeFrame(ctx, c, ev); err != nil {
				return
			}
			if ev.Type == session.EventStateChange && ev.Snapshot.State == session.StateClosed {
				c.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
		}
	}
}
