package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/HarxSan/Mini-Manus/pkg/logging"
	"github.com/HarxSan/Mini-Manus/pkg/session"
)

// publish emits one status event on the session's subject. Push is a thin
// notifier over the same state transitions the pull channel reads; the
// snapshot inside the event is taken at publish time so the two can never
// disagree on terminal outcome.
func (o *Orchestrator) publish(s *session.Session, typ session.EventType, result, errText string) {
	if o.bus == nil {
		return
	}

	ev := session.Event{
		ID:        ulid.Make().String(),
		Seq:       s.NextSeq(),
		SessionID: s.ID(),
		Type:      typ,
		Snapshot:  s.Snapshot(),
		Result:    result,
		Error:     errText,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		o.log.Error(logging.CategoryStream, "event_marshal_failed", s.ID(), err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := o.bus.Publish(ctx, session.Subject(s.ID()), data); err != nil {
		o.log.Warn(logging.CategoryStream, "event_publish_failed", s.ID(), err.Error(), nil)
		return
	}
	metricEventsPublished.Inc()
}
