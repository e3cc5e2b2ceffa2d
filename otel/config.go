package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// config holds the options for a telemetry decorator.
type config struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	// Attributes holds the default attributes for each span and measurement.
	Attributes []attribute.KeyValue
}

// Option configures a telemetry decorator.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (o optionFunc) apply(c *config) {
	o(c)
}

// WithTracerProvider sets the tracer provider. The global provider is used
// otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return optionFunc(func(o *config) {
		o.TracerProvider = tp
	})
}

// WithMeterProvider sets the meter provider. The global provider is used
// otherwise.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return optionFunc(func(o *config) {
		o.MeterProvider = mp
	})
}

// WithAttributes sets default attributes added to every span and measurement.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return optionFunc(func(o *config) {
		o.Attributes = attrs
	})
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt.apply(c)
	}
	if c.TracerProvider == nil {
		c.TracerProvider = otel.GetTracerProvider()
	}
	if c.MeterProvider == nil {
		c.MeterProvider = otel.GetMeterProvider()
	}
	return c
}

func (c *config) tracer() trace.Tracer {
	return c.TracerProvider.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion))
}

func (c *config) instruments() (*instruments, error) {
	return newInstruments(c.MeterProvider.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion)))
}
