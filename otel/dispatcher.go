package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/terraskye/memento"
)

var _ memento.EventDispatcher = (*TelemetryDispatcher)(nil)

// TelemetryDispatcher wraps an EventDispatcher with a producer span per event.
// The span context is active while the wrapped dispatcher runs, so
// dispatchers that propagate trace context (eventbus/nats) pick it up.
type TelemetryDispatcher struct {
	next   memento.EventDispatcher
	cfg    *config
	tracer trace.Tracer
	inst   *instruments
}

// NewTelemetryDispatcher decorates next.
func NewTelemetryDispatcher(next memento.EventDispatcher, opts ...Option) (*TelemetryDispatcher, error) {
	if memento.IsNil(next) {
		return nil, memento.NilArgument("next")
	}
	cfg := newConfig(opts)
	inst, err := cfg.instruments()
	if err != nil {
		return nil, err
	}
	return &TelemetryDispatcher{next: next, cfg: cfg, tracer: cfg.tracer(), inst: inst}, nil
}

// Dispatch implements memento.EventDispatcher.
func (d *TelemetryDispatcher) Dispatch(ctx context.Context, event memento.Event) error {
	name := memento.EventName(event)
	attrs := append([]attribute.KeyValue{AttrEventType.String(name)}, d.cfg.Attributes...)

	ctx, span := d.tracer.Start(ctx, fmt.Sprintf("events.dispatch %s", name),
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attrs...),
		trace.WithAttributes(
			AttrEventID.String(event.EventID().String()),
			AttrTimelineID.String(event.TimelineID().String()),
		),
	)
	defer span.End()

	start := time.Now()
	err := d.next.Dispatch(ctx, event)
	d.inst.dispatchLatency.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
	d.inst.dispatched.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil {
		d.inst.dispatchErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
