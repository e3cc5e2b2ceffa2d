package memory

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraskye/memento"
)

var _ memento.EventStore = (*EventStore)(nil)

// EventStore keeps every saved event in a single append-only log for the
// lifetime of the instance, and dispatches each event right after recording it.
type EventStore struct {
	mu         sync.RWMutex
	log        []memento.Event
	dispatcher memento.EventDispatcher
}

// Option configures an EventStore.
type Option func(*EventStore)

// WithInitialCapacity pre-sizes the log.
func WithInitialCapacity(n int) Option {
	return func(s *EventStore) {
		if n > 0 {
			s.log = make([]memento.Event, 0, n)
		}
	}
}

// NewEventStore creates an empty store dispatching to eventDispatcher.
// It fails with an *memento.ArgumentError if the dispatcher is nil.
func NewEventStore(eventDispatcher memento.EventDispatcher, opts ...Option) (*EventStore, error) {
	if memento.IsNil(eventDispatcher) {
		return nil, memento.NilArgument("eventDispatcher")
	}

	s := &EventStore{
		dispatcher: eventDispatcher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save appends event to the log and then dispatches it. A dispatch error is
// returned as is; the event remains recorded.
func (s *EventStore) Save(ctx context.Context, event memento.Event) error {
	if memento.IsNil(event) {
		return memento.NilArgument("event")
	}
	if event.EventID() == uuid.Nil || event.OccurredAt().IsZero() {
		return &memento.ArgumentError{Param: "event", Err: memento.ErrUninitializedEvent}
	}

	s.mu.Lock()
	s.log = append(s.log, event)
	s.mu.Unlock()

	// outside the lock: dispatchers may read the store
	return s.dispatcher.Dispatch(ctx, event)
}

// Events returns an iterator over a snapshot of the log.
func (s *EventStore) Events(ctx context.Context) (*memento.Iterator[memento.Event], error) {
	return memento.NewSliceIterator(s.snapshot()), nil
}

// RetrieveEvents implements memento.EventStore.
func (s *EventStore) RetrieveEvents(
	ctx context.Context,
	aggregateID uuid.UUID,
	pointInTime time.Time,
	mappings []memento.EventMapping,
	timelineID uuid.UUID,
) (*memento.Iterator[memento.Event], error) {
	table, err := memento.NewMappingTable(mappings)
	if err != nil {
		return nil, err
	}

	events := s.snapshot()
	if len(table) == 0 {
		events = nil
	}

	index := 0
	return memento.NewIteratorFunc(func(ctx context.Context) (memento.Event, error) {
		for index < len(events) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			ev := events[index]
			index++

			if ev.TimelineID() != timelineID {
				continue
			}
			if ev.OccurredAt().After(pointInTime) {
				continue
			}
			mapping, ok := table.Lookup(ev)
			if !ok {
				continue
			}
			id, err := mapping.AggregateID(ev)
			if err != nil {
				return nil, err
			}
			if id == aggregateID {
				return ev, nil
			}
		}
		return nil, io.EOF
	}), nil
}

// Len returns the number of recorded events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}

// snapshot returns the current log. The capacity is clipped so the caller
// never sees slots written by later appends.
func (s *EventStore) snapshot() []memento.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.log)
	return s.log[:n:n]
}
