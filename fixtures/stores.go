package fixtures

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraskye/memento"
)

var _ memento.EventStore = (*StoreSpy)(nil)

// StoreSpy is a configurable mock EventStore for testing decorators.
// It tracks calls and allows injecting custom behavior or failures.
type StoreSpy struct {
	mu sync.Mutex

	// Function overrides for custom behavior
	SaveFn           func(ctx context.Context, event memento.Event) error
	EventsFn         func(ctx context.Context) (*memento.Iterator[memento.Event], error)
	RetrieveEventsFn func(ctx context.Context, aggregateID uuid.UUID, pointInTime time.Time, mappings []memento.EventMapping, timelineID uuid.UUID) (*memento.Iterator[memento.Event], error)

	// Call tracking
	SaveCalls           int
	EventsCalls         int
	RetrieveEventsCalls int

	// Captured arguments from last call
	LastSaved       memento.Event
	LastAggregateID uuid.UUID
	LastTimelineID  uuid.UUID

	events []memento.Event

	saveErr     error
	retrieveErr error
}

// NewStoreSpy creates a StoreSpy with default behavior.
func NewStoreSpy() *StoreSpy {
	return &StoreSpy{}
}

// WithEvents pre-populates the spy. Events and RetrieveEvents yield them all.
func (s *StoreSpy) WithEvents(events ...memento.Event) *StoreSpy {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return s
}

// FailOnSave configures the spy to return err from Save.
func (s *StoreSpy) FailOnSave(err error) *StoreSpy {
	s.saveErr = err
	return s
}

// FailOnRetrieve configures the spy to return err from RetrieveEvents.
func (s *StoreSpy) FailOnRetrieve(err error) *StoreSpy {
	s.retrieveErr = err
	return s
}

// Save implements memento.EventStore.
func (s *StoreSpy) Save(ctx context.Context, event memento.Event) error {
	s.mu.Lock()
	s.SaveCalls++
	s.LastSaved = event
	s.mu.Unlock()

	if s.SaveFn != nil {
		return s.SaveFn(ctx, event)
	}
	if s.saveErr != nil {
		return s.saveErr
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

// Events implements memento.EventReader.
func (s *StoreSpy) Events(ctx context.Context) (*memento.Iterator[memento.Event], error) {
	s.mu.Lock()
	s.EventsCalls++
	events := append([]memento.Event(nil), s.events...)
	s.mu.Unlock()

	if s.EventsFn != nil {
		return s.EventsFn(ctx)
	}
	return memento.NewSliceIterator(events), nil
}

// RetrieveEvents implements memento.EventStore. Without an override it
// yields every pre-populated event, ignoring the arguments.
func (s *StoreSpy) RetrieveEvents(ctx context.Context, aggregateID uuid.UUID, pointInTime time.Time, mappings []memento.EventMapping, timelineID uuid.UUID) (*memento.Iterator[memento.Event], error) {
	s.mu.Lock()
	s.RetrieveEventsCalls++
	s.LastAggregateID = aggregateID
	s.LastTimelineID = timelineID
	events := append([]memento.Event(nil), s.events...)
	s.mu.Unlock()

	if s.RetrieveEventsFn != nil {
		return s.RetrieveEventsFn(ctx, aggregateID, pointInTime, mappings, timelineID)
	}
	if s.retrieveErr != nil {
		return nil, s.retrieveErr
	}
	return memento.NewSliceIterator(events), nil
}
