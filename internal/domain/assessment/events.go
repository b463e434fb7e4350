package assessment

import (
	"context"
	"time"
)

type EventKind string

const (
	EventAssigned  EventKind = "assigned"
	EventSubmitted EventKind = "submitted"
	EventApproved  EventKind = "approved"
	EventRejected  EventKind = "rejected"
)

// Event describes one applied lifecycle change.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	ActorID  string
	Reason   string
	At       time.Time
}

// Publisher receives events after the change is durable. Publish must not
// fail the transition; delivery problems are the publisher's concern.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) {}

func eventFor(action Action) EventKind {
	switch action {
	case ActionSubmit:
		return EventSubmitted
	case ActionApprove:
		return EventApproved
	case ActionReject:
		return EventRejected
	}
	return ""
}
