package otel

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/terraskye/memento"
)

var _ memento.EventStore = (*TelemetryStore)(nil)

// TelemetryStore wraps an EventStore with spans and metrics. Query spans
// stay open until the returned iterator is exhausted or fails.
type TelemetryStore struct {
	next   memento.EventStore
	cfg    *config
	tracer trace.Tracer
	inst   *instruments
}

// NewTelemetryStore decorates next.
func NewTelemetryStore(next memento.EventStore, opts ...Option) (*TelemetryStore, error) {
	if memento.IsNil(next) {
		return nil, memento.NilArgument("next")
	}
	cfg := newConfig(opts)
	inst, err := cfg.instruments()
	if err != nil {
		return nil, err
	}
	return &TelemetryStore{next: next, cfg: cfg, tracer: cfg.tracer(), inst: inst}, nil
}

// Save records a span and metrics around the wrapped Save.
func (t *TelemetryStore) Save(ctx context.Context, event memento.Event) error {
	attrs := append([]attribute.KeyValue{AttrOperation.String("save")}, t.cfg.Attributes...)
	spanAttrs := attrs
	if !memento.IsNil(event) {
		spanAttrs = append(spanAttrs,
			AttrEventType.String(memento.EventName(event)),
			AttrEventID.String(event.EventID().String()),
			AttrTimelineID.String(event.TimelineID().String()),
		)
	}

	ctx, span := t.tracer.Start(ctx, "EventStore.Save",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(spanAttrs...),
	)
	defer span.End()

	start := time.Now()
	err := t.next.Save(ctx, event)

	t.inst.storeDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
	t.inst.saves.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil {
		t.inst.storeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Events traces the wrapped Events iteration.
func (t *TelemetryStore) Events(ctx context.Context) (*memento.Iterator[memento.Event], error) {
	attrs := append([]attribute.KeyValue{AttrOperation.String("events")}, t.cfg.Attributes...)
	ctx, span := t.tracer.Start(ctx, "EventStore.Events",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	it, err := t.next.Events(ctx)
	return t.traceIterator(ctx, span, attrs, it, err)
}

// RetrieveEvents traces the wrapped aggregate history query.
func (t *TelemetryStore) RetrieveEvents(
	ctx context.Context,
	aggregateID uuid.UUID,
	pointInTime time.Time,
	mappings []memento.EventMapping,
	timelineID uuid.UUID,
) (*memento.Iterator[memento.Event], error) {
	attrs := append([]attribute.KeyValue{AttrOperation.String("retrieve")}, t.cfg.Attributes...)
	ctx, span := t.tracer.Start(ctx, "EventStore.RetrieveEvents",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
		trace.WithAttributes(
			AttrAggregateID.String(aggregateID.String()),
			AttrTimelineID.String(timelineID.String()),
			AttrPointInTime.String(pointInTime.Format(time.RFC3339Nano)),
			AttrMappingCount.Int(len(mappings)),
		),
	)

	it, err := t.next.RetrieveEvents(ctx, aggregateID, pointInTime, mappings, timelineID)
	return t.traceIterator(ctx, span, attrs, it, err)
}

func (t *TelemetryStore) traceIterator(
	ctx context.Context,
	span trace.Span,
	attrs []attribute.KeyValue,
	it *memento.Iterator[memento.Event],
	err error,
) (*memento.Iterator[memento.Event], error) {
	start := time.Now()
	if err != nil {
		t.inst.storeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}

	var count int64
	return memento.NewIteratorFunc(func(iterCtx context.Context) (memento.Event, error) {
		if it.Next(iterCtx) {
			count++
			t.inst.eventsLoaded.Add(ctx, 1, metric.WithAttributes(attrs...))
			return it.Value(), nil
		}

		span.SetAttributes(AttrEventCount.Int64(count))
		t.inst.storeDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))

		if err := it.Err(); err != nil {
			t.inst.storeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return nil, err
		}
		span.SetStatus(codes.Ok, "")
		span.End()
		return nil, io.EOF
	}), nil
}
