// Package otel decorates memento stores, dispatchers and handlers with
// OpenTelemetry spans and metrics.
package otel

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName    = "github.com/terraskye/memento"
	instrumentationVersion = "0.1.0"
)

// Semantic attribute keys following OpenTelemetry conventions
const (
	// Event attributes
	AttrEventType   = attribute.Key("memento.event.type")
	AttrEventID     = attribute.Key("memento.event.id")
	AttrTimelineID  = attribute.Key("memento.event.timeline_id")
	AttrEventCount  = attribute.Key("memento.events.count")
	AttrAggregateID = attribute.Key("memento.aggregate.id")

	// Query attributes
	AttrPointInTime  = attribute.Key("memento.query.point_in_time")
	AttrMappingCount = attribute.Key("memento.query.mapping_count")

	// Handler attributes
	AttrHandlerName = attribute.Key("memento.handler.name")

	// Operation attributes
	AttrOperation = attribute.Key("memento.operation")
)

type instruments struct {
	saves           metric.Int64Counter
	eventsLoaded    metric.Int64Counter
	storeErrors     metric.Int64Counter
	storeDuration   metric.Float64Histogram
	dispatched      metric.Int64Counter
	dispatchErrors  metric.Int64Counter
	dispatchLatency metric.Float64Histogram
	handled         metric.Int64Counter
	handlerErrors   metric.Int64Counter
	handlerDuration metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	var (
		in   instruments
		err  error
		errs []error
	)

	in.saves, err = meter.Int64Counter(
		"memento.eventstore.saves",
		metric.WithDescription("Number of save operations"),
		metric.WithUnit("{operation}"),
	)
	errs = append(errs, err)

	in.eventsLoaded, err = meter.Int64Counter(
		"memento.events.loaded",
		metric.WithDescription("Number of events yielded by store queries"),
		metric.WithUnit("{event}"),
	)
	errs = append(errs, err)

	in.storeErrors, err = meter.Int64Counter(
		"memento.eventstore.errors",
		metric.WithDescription("Number of event store errors"),
		metric.WithUnit("{error}"),
	)
	errs = append(errs, err)

	in.storeDuration, err = meter.Float64Histogram(
		"memento.eventstore.duration",
		metric.WithDescription("Event store operation duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	errs = append(errs, err)

	in.dispatched, err = meter.Int64Counter(
		"memento.dispatcher.dispatched",
		metric.WithDescription("Number of events dispatched"),
		metric.WithUnit("{event}"),
	)
	errs = append(errs, err)

	in.dispatchErrors, err = meter.Int64Counter(
		"memento.dispatcher.errors",
		metric.WithDescription("Number of failed dispatches"),
		metric.WithUnit("{error}"),
	)
	errs = append(errs, err)

	in.dispatchLatency, err = meter.Float64Histogram(
		"memento.dispatcher.duration",
		metric.WithDescription("Dispatch duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	errs = append(errs, err)

	in.handled, err = meter.Int64Counter(
		"memento.handler.handled",
		metric.WithDescription("Number of events handled"),
		metric.WithUnit("{event}"),
	)
	errs = append(errs, err)

	in.handlerErrors, err = meter.Int64Counter(
		"memento.handler.errors",
		metric.WithDescription("Number of event handler errors"),
		metric.WithUnit("{error}"),
	)
	errs = append(errs, err)

	in.handlerDuration, err = meter.Float64Histogram(
		"memento.handler.duration",
		metric.WithDescription("Event handler duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &in, nil
}
