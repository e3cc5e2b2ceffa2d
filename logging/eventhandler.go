package logging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/terraskye/memento"
)

// WithLoggingMiddleware logs the start and outcome of every event an
// EventHandler processes. Event metadata comes from the context (see
// memento.WithEvent). Skipped events are logged at debug level.
func WithLoggingMiddleware(logger *slog.Logger, next memento.EventHandler) memento.EventHandler {
	return memento.NewEventHandlerFunc(func(ctx context.Context, event memento.Event) error {
		l := logger.With(
			"event-id", memento.EventIDFromContext(ctx),
			"event-name", memento.EventNameFromContext(ctx),
			"timeline", memento.TimelineIDFromContext(ctx),
			"occurred-at", memento.OccurredAtFromContext(ctx),
		)

		l.DebugContext(ctx, "event processing started")

		err := next.Handle(ctx, event)

		var skipped *memento.ErrSkippedEvent
		switch {
		case err == nil:
			l.DebugContext(ctx, "event processed successfully")
		case errors.As(err, &skipped):
			l.DebugContext(ctx, "event skipped")
		default:
			l.ErrorContext(ctx, "error processing event", "error", err)
		}

		return err
	})
}
