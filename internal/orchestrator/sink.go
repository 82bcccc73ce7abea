package orchestrator

import (
	"context"
	"time"
)

type EventKind string

const (
	EventUtterance  EventKind = "utterance"
	EventSuggestion EventKind = "suggestion"
	EventSpeech     EventKind = "speech"
)

type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
}

// Sink receives pipeline events. A failing sink never affects the turn.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

func (o *Orchestrator) publish(ctx context.Context, ev Event) {
	if o.sink == nil {
		return
	}

	ev.SessionID = o.session.ID()
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	if err := o.sink.Publish(ctx, ev); err != nil {
		o.log.Debug("Failed to publish event", "kind", ev.Kind, "err", err)
	}
}
