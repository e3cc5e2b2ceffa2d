package memento

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var now = time.Now

// Event is a domain event: an immutable record of something that happened to
// an aggregate. Concrete events embed DomainEvent and add their own payload.
type Event interface {
	// EventID returns the identifier assigned when the event was created.
	EventID() uuid.UUID

	// TimelineID returns the timeline the event belongs to. uuid.Nil is the
	// default timeline.
	TimelineID() uuid.UUID

	// OccurredAt returns the creation time of the event.
	OccurredAt() time.Time
}

// DomainEvent carries the identity, timeline and timestamp every event has.
// The fields are unexported so they cannot change after creation.
type DomainEvent struct {
	id        uuid.UUID
	timeline  uuid.UUID
	timeStamp time.Time
}

// EventOption configures a DomainEvent at creation.
type EventOption func(*DomainEvent)

// WithEventID overrides the generated event id.
func WithEventID(id uuid.UUID) EventOption {
	return func(e *DomainEvent) {
		e.id = id
	}
}

// WithTimeline places the event on an alternate timeline.
func WithTimeline(id uuid.UUID) EventOption {
	return func(e *DomainEvent) {
		e.timeline = id
	}
}

// WithTimeStamp overrides the creation time.
func WithTimeStamp(t time.Time) EventOption {
	return func(e *DomainEvent) {
		e.timeStamp = t
	}
}

// NewDomainEvent creates the base of a new event with a random id and the
// current time, on the default timeline unless WithTimeline is given.
//
// Example Usage:
//
//	ev := &Withdrawn{
//	    DomainEvent: memento.NewDomainEvent(),
//	    AccountID:   accountID,
//	    Amount:      101,
//	}
func NewDomainEvent(opts ...EventOption) DomainEvent {
	e := DomainEvent{
		id:        uuid.New(),
		timeStamp: now(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// EventID implements Event.
func (e DomainEvent) EventID() uuid.UUID { return e.id }

// TimelineID implements Event.
func (e DomainEvent) TimelineID() uuid.UUID { return e.timeline }

// OccurredAt implements Event.
func (e DomainEvent) OccurredAt() time.Time { return e.timeStamp }

// restore is used by the codec to rebuild the base of a decoded event.
func (e *DomainEvent) restore(base DomainEvent) {
	*e = base
}

type restorer interface {
	restore(DomainEvent)
}

// TypeName returns the Go type name of v, e.g. "*ledger.Deposited".
func TypeName(v any) string {
	return fmt.Sprintf("%T", v)
}

// EventName returns the name an event is registered and published under.
// Events may pick their own name by implementing EventType() string.
func EventName(ev Event) string {
	if named, ok := ev.(interface{ EventType() string }); ok {
		return named.EventType()
	}
	return TypeName(ev)
}
