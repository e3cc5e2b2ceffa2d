package otel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/terraskye/memento"
)

// WithEventTelemetry wraps an EventHandler with a consumer span and metrics.
// name identifies the handler, e.g. the eventbus subscription name.
// ErrSkippedEvent is not counted as a failure.
func WithEventTelemetry(name string, next memento.EventHandler, opts ...Option) (memento.EventHandler, error) {
	if memento.IsNil(next) {
		return nil, memento.NilArgument("next")
	}
	cfg := newConfig(opts)
	inst, err := cfg.instruments()
	if err != nil {
		return nil, err
	}
	tracer := cfg.tracer()

	return memento.NewEventHandlerFunc(func(ctx context.Context, event memento.Event) error {
		eventName := memento.EventName(event)
		attrs := append([]attribute.KeyValue{
			AttrHandlerName.String(name),
			AttrEventType.String(eventName),
		}, cfg.Attributes...)

		ctx, span := tracer.Start(ctx, fmt.Sprintf("events.handle %s", eventName),
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(attrs...),
			trace.WithAttributes(AttrEventID.String(event.EventID().String())),
		)
		defer span.End()

		startTime := time.Now()
		err := next.Handle(ctx, event)
		inst.handlerDuration.Record(ctx, float64(time.Since(startTime).Milliseconds()), metric.WithAttributes(attrs...))
		inst.handled.Add(ctx, 1, metric.WithAttributes(attrs...))

		if err != nil {
			var skipped *memento.ErrSkippedEvent
			if errors.As(err, &skipped) {
				span.SetStatus(codes.Ok, "event skipped")
				return err
			}
			inst.handlerErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	}), nil
}
