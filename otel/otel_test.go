package otel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/terraskye/memento"
	"github.com/terraskye/memento/eventstore/memory"
	"github.com/terraskye/memento/fixtures"
	mementootel "github.com/terraskye/memento/otel"
)

type telemetry struct {
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	opts   []mementootel.Option
}

func newTelemetry(t *testing.T) *telemetry {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	return &telemetry{
		spans:  spans,
		reader: reader,
		opts: []mementootel.Option{
			mementootel.WithTracerProvider(tp),
			mementootel.WithMeterProvider(mp),
			mementootel.WithAttributes(attribute.String("service", "test")),
		},
	}
}

func (tel *telemetry) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tel.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is %T", name, m.Data)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func (tel *telemetry) span(t *testing.T, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, s := range tel.spans.Ended() {
		if s.Name() == name {
			return s
		}
	}
	t.Fatalf("span %q not found", name)
	return nil
}

func newTracedStore(t *testing.T, tel *telemetry, dispatcher memento.EventDispatcher) *mementootel.TelemetryStore {
	t.Helper()
	inner, err := memory.NewEventStore(dispatcher)
	require.NoError(t, err)
	store, err := mementootel.NewTelemetryStore(inner, tel.opts...)
	require.NoError(t, err)
	return store
}

func TestTelemetryStore_Save(t *testing.T) {
	tel := newTelemetry(t)
	store := newTracedStore(t, tel, memento.NoopDispatcher)
	ev := fixtures.NewEvent().Deposit(uuid.New(), 1)

	require.NoError(t, store.Save(t.Context(), ev))

	span := tel.span(t, "EventStore.Save")
	assert.Equal(t, codes.Ok, span.Status().Code)
	assert.Contains(t, span.Attributes(), mementootel.AttrEventID.String(ev.EventID().String()))
	assert.Contains(t, span.Attributes(), attribute.String("service", "test"))
	assert.Equal(t, int64(1), tel.counter(t, "memento.eventstore.saves"))
	assert.Zero(t, tel.counter(t, "memento.eventstore.errors"))
}

func TestTelemetryStore_SaveError(t *testing.T) {
	tel := newTelemetry(t)
	boom := errors.New("boom")
	store := newTracedStore(t, tel, fixtures.NewDispatcherSpy().FailOnDispatch(boom))

	err := store.Save(t.Context(), fixtures.NewEvent().Deposit(uuid.New(), 1))

	assert.ErrorIs(t, err, boom)
	span := tel.span(t, "EventStore.Save")
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, int64(1), tel.counter(t, "memento.eventstore.errors"))
}

func TestTelemetryStore_RetrieveEvents(t *testing.T) {
	tel := newTelemetry(t)
	store := newTracedStore(t, tel, memento.NoopDispatcher)
	account := uuid.New()
	require.NoError(t, store.Save(t.Context(), fixtures.NewEvent().Withdrawal(account, 1)))
	require.NoError(t, store.Save(t.Context(), fixtures.NewEvent().Withdrawal(account, 2)))

	it, err := store.RetrieveEvents(t.Context(), account, time.Now(), fixtures.AccountMappings(), uuid.Nil)
	require.NoError(t, err)
	events, err := it.All(t.Context())
	require.NoError(t, err)
	assert.Len(t, events, 2)

	span := tel.span(t, "EventStore.RetrieveEvents")
	assert.Contains(t, span.Attributes(), mementootel.AttrEventCount.Int64(2))
	assert.Contains(t, span.Attributes(), mementootel.AttrAggregateID.String(account.String()))
	assert.Equal(t, int64(2), tel.counter(t, "memento.events.loaded"))
}

func TestTelemetryStore_RetrieveEventsMappingError(t *testing.T) {
	tel := newTelemetry(t)
	store := newTracedStore(t, tel, memento.NoopDispatcher)

	_, err := store.RetrieveEvents(t.Context(), uuid.New(), time.Now(), []memento.EventMapping{{}}, uuid.Nil)

	assert.ErrorIs(t, err, memento.ErrInvalidMapping)
	assert.Equal(t, codes.Error, tel.span(t, "EventStore.RetrieveEvents").Status().Code)
}

func TestTelemetryStore_FindUsesEvents(t *testing.T) {
	tel := newTelemetry(t)
	store := newTracedStore(t, tel, memento.NoopDispatcher)
	require.NoError(t, store.Save(t.Context(), fixtures.NewEvent().Deposit(uuid.New(), 1)))

	it, err := memento.Find[*fixtures.DepositEvent](t.Context(), store, nil)
	require.NoError(t, err)
	found, err := it.All(t.Context())
	require.NoError(t, err)

	assert.Len(t, found, 1)
	tel.span(t, "EventStore.Events")
}

func TestTelemetryStore_IteratorError(t *testing.T) {
	tel := newTelemetry(t)
	boom := errors.New("read failed")
	spy := fixtures.NewStoreSpy()
	spy.EventsFn = func(ctx context.Context) (*memento.Iterator[memento.Event], error) {
		return fixtures.FailingIterator(boom), nil
	}
	store, err := mementootel.NewTelemetryStore(spy, tel.opts...)
	require.NoError(t, err)

	it, err := store.Events(t.Context())
	require.NoError(t, err)
	_, err = it.All(t.Context())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, codes.Error, tel.span(t, "EventStore.Events").Status().Code)
}

func TestTelemetryDispatcher(t *testing.T) {
	tel := newTelemetry(t)
	spy := fixtures.NewDispatcherSpy()
	d, err := mementootel.NewTelemetryDispatcher(spy, tel.opts...)
	require.NoError(t, err)
	ev := fixtures.NewEvent().Deposit(uuid.New(), 1)

	require.NoError(t, d.Dispatch(t.Context(), ev))

	assert.Equal(t, 1, spy.Calls())
	span := tel.span(t, "events.dispatch *fixtures.DepositEvent")
	assert.Equal(t, codes.Ok, span.Status().Code)
	assert.Equal(t, int64(1), tel.counter(t, "memento.dispatcher.dispatched"))
}

func TestTelemetryDispatcher_Error(t *testing.T) {
	tel := newTelemetry(t)
	boom := errors.New("boom")
	d, err := mementootel.NewTelemetryDispatcher(fixtures.NewDispatcherSpy().FailOnDispatch(boom), tel.opts...)
	require.NoError(t, err)

	assert.ErrorIs(t, d.Dispatch(t.Context(), fixtures.NewEvent().Deposit(uuid.New(), 1)), boom)
	assert.Equal(t, int64(1), tel.counter(t, "memento.dispatcher.errors"))
}

func TestSaveSpanParentsDispatchSpan(t *testing.T) {
	tel := newTelemetry(t)
	d, err := mementootel.NewTelemetryDispatcher(memento.NoopDispatcher, tel.opts...)
	require.NoError(t, err)
	store := newTracedStore(t, tel, d)

	require.NoError(t, store.Save(t.Context(), fixtures.NewEvent().Deposit(uuid.New(), 1)))

	save := tel.span(t, "EventStore.Save")
	dispatch := tel.span(t, "events.dispatch *fixtures.DepositEvent")
	assert.Equal(t, save.SpanContext().TraceID(), dispatch.SpanContext().TraceID())
}

func TestWithEventTelemetry(t *testing.T) {
	tel := newTelemetry(t)
	boom := errors.New("boom")

	deposits := memento.OnEvent(func(ctx context.Context, ev *fixtures.DepositEvent) error { return nil })
	failing := memento.NewEventHandlerFunc(func(context.Context, memento.Event) error { return boom })

	h, err := mementootel.WithEventTelemetry("deposits", deposits, tel.opts...)
	require.NoError(t, err)
	f, err := mementootel.WithEventTelemetry("failing", failing, tel.opts...)
	require.NoError(t, err)

	require.NoError(t, h.Handle(t.Context(), fixtures.NewEvent().Deposit(uuid.New(), 1)))
	var skipped *memento.ErrSkippedEvent
	assert.ErrorAs(t, h.Handle(t.Context(), fixtures.NewEvent().Withdrawal(uuid.New(), 1)), &skipped)
	assert.ErrorIs(t, f.Handle(t.Context(), fixtures.NewEvent().Deposit(uuid.New(), 1)), boom)

	assert.Equal(t, int64(3), tel.counter(t, "memento.handler.handled"))
	assert.Equal(t, int64(1), tel.counter(t, "memento.handler.errors"))
}

func TestConstructors_Nil(t *testing.T) {
	_, err := mementootel.NewTelemetryStore(nil)
	assert.ErrorIs(t, err, memento.ErrNilArgument)

	_, err = mementootel.NewTelemetryDispatcher(nil)
	assert.ErrorIs(t, err, memento.ErrNilArgument)

	_, err = mementootel.WithEventTelemetry("x", nil)
	assert.ErrorIs(t, err, memento.ErrNilArgument)
}
