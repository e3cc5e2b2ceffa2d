package telemetry_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/terraskye/memento"
	"github.com/terraskye/memento/fixtures"
	"github.com/terraskye/memento/internal/config"
	"github.com/terraskye/memento/internal/telemetry"
	mementotel "github.com/terraskye/memento/otel"
)

func TestNewNopProvider(t *testing.T) {
	p := telemetry.NewNopProvider()

	if p.TracerProvider == nil {
		t.Fatal("TracerProvider is nil")
	}
	if p.MeterProvider == nil {
		t.Fatal("MeterProvider is nil")
	}
	if p.LoggerProvider == nil {
		t.Fatal("LoggerProvider is nil")
	}
	if p.Propagator == nil {
		t.Fatal("Propagator is nil")
	}
	if p.Logger == nil {
		t.Fatal("Logger is nil")
	}
}

func TestNopProvider_Shutdown(t *testing.T) {
	p := telemetry.NewNopProvider()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestSetup_Disabled(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), config.TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestLogWithTrace_NoSpan(t *testing.T) {
	logger := slog.Default()
	got := telemetry.LogWithTrace(context.Background(), logger)
	if got != logger {
		t.Fatal("LogWithTrace() should return the logger unchanged without a span")
	}
}

func TestLogWithTrace_WithSpan(t *testing.T) {
	p := telemetry.NewNopProvider()
	defer p.Shutdown(context.Background()) //nolint:errcheck

	ctx, span := p.TracerProvider.Tracer("test").Start(context.Background(), "test-span")
	defer span.End()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	telemetry.LogWithTrace(ctx, logger).Info("hello")

	if !strings.Contains(buf.String(), "trace_id="+span.SpanContext().TraceID().String()) {
		t.Errorf("missing trace_id in %q", buf.String())
	}
	if !strings.Contains(buf.String(), "span_id=") {
		t.Errorf("missing span_id in %q", buf.String())
	}
}

func TestShutdown_PartialProvider(t *testing.T) {
	p := &telemetry.Provider{TracerProvider: telemetry.NewNopProvider().TracerProvider}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestInstrumentation_UsesProviders(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	p := &telemetry.Provider{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)),
		MeterProvider:  sdkmetric.NewMeterProvider(),
	}
	defer p.Shutdown(context.Background()) //nolint:errcheck

	dispatcher, err := mementotel.NewTelemetryDispatcher(memento.NoopDispatcher, p.Instrumentation()...)
	if err != nil {
		t.Fatalf("NewTelemetryDispatcher() error = %v", err)
	}
	if err := dispatcher.Dispatch(context.Background(), fixtures.NewEvent().Deposit(uuid.New(), 1)); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if got := len(recorder.Ended()); got != 1 {
		t.Fatalf("recorded %d spans, want 1", got)
	}
}
