package memento

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// EventReader exposes the recorded events, oldest first.
//
// The returned iterator walks a snapshot taken when Events is called: events
// saved afterwards are not part of it.
type EventReader interface {
	Events(ctx context.Context) (*Iterator[Event], error)
}

// EventStore records domain events, dispatches them as they are saved and
// answers history queries.
//
// Implementations must guarantee:
//   - The log is append-only; an event is never altered or removed.
//   - Dispatch of an event happens only after it is visible to readers.
//   - All iterators yield events in save order.
type EventStore interface {
	EventReader

	// Save records the event and then hands the same instance to the
	// dispatcher exactly once.
	//
	// Errors:
	//   - *ArgumentError when event is nil or was not built with NewDomainEvent.
	//   - The dispatcher's error, unchanged. The event stays recorded.
	Save(ctx context.Context, event Event) error

	// RetrieveEvents returns the history of an aggregate as of pointInTime.
	//
	// Parameters:
	//   - aggregateID: the aggregate whose history is rebuilt.
	//   - pointInTime: only events with OccurredAt() <= pointInTime are returned.
	//   - mappings: one per event type that references the aggregate. Types
	//     without a mapping are skipped.
	//   - timelineID: uuid.Nil selects the default timeline only; any other
	//     value selects that timeline only.
	//
	// Errors:
	//   - *MappingError when a mapping is invalid, names a field that is not
	//     an exported uuid.UUID, or duplicates another mapping's type. The
	//     query is aborted before any event is read.
	//   - Iterator.Err holds a *MappingError when reading an aggregate id
	//     fails, e.g. the field is promoted through a nil embedded pointer.
	RetrieveEvents(ctx context.Context, aggregateID uuid.UUID, pointInTime time.Time, mappings []EventMapping, timelineID uuid.UUID) (*Iterator[Event], error)
}

// Find returns the events of type T for which predicate holds, in save
// order. With a concrete T only events of exactly that type match; with an
// interface T every event implementing it does. A nil predicate matches all
// events of type T.
//
// Example Usage:
//
//	it, err := memento.Find(ctx, store, func(e *Withdrawn) bool {
//	    return e.AccountID == accountID
//	})
func Find[T Event](ctx context.Context, reader EventReader, predicate func(T) bool) (*Iterator[T], error) {
	if IsNil(reader) {
		return nil, NilArgument("reader")
	}

	events, err := reader.Events(ctx)
	if err != nil {
		return nil, err
	}

	return NewIteratorFunc(func(ctx context.Context) (T, error) {
		for events.Next(ctx) {
			typed, ok := events.Value().(T)
			if !ok {
				continue
			}
			if predicate == nil || predicate(typed) {
				return typed, nil
			}
		}
		var zero T
		if err := events.Err(); err != nil {
			return zero, err
		}
		return zero, io.EOF
	}), nil
}
