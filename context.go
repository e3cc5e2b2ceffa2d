package memento

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const (
	eventIDKey    ctxKey = "eventID"
	timelineIDKey ctxKey = "timelineID"
	occurredAtKey ctxKey = "occurredAt"
	eventNameKey  ctxKey = "eventName"
)

// WithEvent adds the metadata of ev to the context handed to its handlers.
func WithEvent(ctx context.Context, ev Event) context.Context {
	ctx = context.WithValue(ctx, eventIDKey, ev.EventID())
	ctx = context.WithValue(ctx, timelineIDKey, ev.TimelineID())
	ctx = context.WithValue(ctx, occurredAtKey, ev.OccurredAt())
	ctx = context.WithValue(ctx, eventNameKey, EventName(ev))
	return ctx
}

// EventIDFromContext returns the EventID or uuid.Nil if not present
func EventIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(eventIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// TimelineIDFromContext returns the TimelineID or uuid.Nil if not present
func TimelineIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(timelineIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// OccurredAtFromContext returns OccurredAt or zero time if not present
func OccurredAtFromContext(ctx context.Context) time.Time {
	if t, ok := ctx.Value(occurredAtKey).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// EventNameFromContext returns the event name or "" if not present
func EventNameFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(eventNameKey).(string); ok {
		return s
	}
	return ""
}
