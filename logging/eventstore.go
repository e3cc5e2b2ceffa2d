package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/terraskye/memento"
)

var _ memento.EventStore = (*LoggingStore)(nil)

// LoggingStore logs the operations of the wrapped EventStore.
type LoggingStore struct {
	logger *slog.Logger
	next   memento.EventStore
}

// WithStoreLogging wraps store so that saves are logged at debug level and
// failures at error level.
func WithStoreLogging(logger *slog.Logger, store memento.EventStore) *LoggingStore {
	return &LoggingStore{logger: logger, next: store}
}

func (s *LoggingStore) Save(ctx context.Context, event memento.Event) error {
	if memento.IsNil(event) {
		err := s.next.Save(ctx, event)
		if err != nil {
			s.logger.ErrorContext(ctx, "save rejected", "error", err)
		}
		return err
	}

	l := s.logger.With(
		"event-id", event.EventID(),
		"event-name", memento.EventName(event),
		"timeline", event.TimelineID(),
	)

	start := time.Now()
	err := s.next.Save(ctx, event)
	if err != nil {
		l.ErrorContext(ctx, "save failed", "error", err, "duration", time.Since(start))
		return err
	}
	l.DebugContext(ctx, "event saved", "duration", time.Since(start))
	return nil
}

func (s *LoggingStore) Events(ctx context.Context) (*memento.Iterator[memento.Event], error) {
	it, err := s.next.Events(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "reading events failed", "error", err)
	}
	return it, err
}

func (s *LoggingStore) RetrieveEvents(
	ctx context.Context,
	aggregateID uuid.UUID,
	pointInTime time.Time,
	mappings []memento.EventMapping,
	timelineID uuid.UUID,
) (*memento.Iterator[memento.Event], error) {
	l := s.logger.With(
		"aggregate-id", aggregateID,
		"timeline", timelineID,
		"point-in-time", pointInTime,
		"mappings", len(mappings),
	)

	it, err := s.next.RetrieveEvents(ctx, aggregateID, pointInTime, mappings, timelineID)
	if err != nil {
		l.ErrorContext(ctx, "retrieving events failed", "error", err)
		return nil, err
	}
	l.DebugContext(ctx, "retrieving events")
	return it, nil
}
