package logging

import (
	"context"
	"log/slog"

	"github.com/terraskye/memento"
)

// WithDispatchLogging logs every dispatched event and dispatch failures.
func WithDispatchLogging(logger *slog.Logger, next memento.EventDispatcher) memento.EventDispatcher {
	return memento.EventDispatcherFunc(func(ctx context.Context, event memento.Event) error {
		err := next.Dispatch(ctx, event)
		if err != nil {
			logger.ErrorContext(ctx, "dispatch failed",
				"event-id", event.EventID(),
				"event-name", memento.EventName(event),
				"error", err,
			)
			return err
		}
		logger.DebugContext(ctx, "event dispatched",
			"event-id", event.EventID(),
			"event-name", memento.EventName(event),
		)
		return nil
	})
}
