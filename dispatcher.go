package memento

import (
	"context"
	"errors"
)

// EventDispatcher delivers a saved event downstream, e.g. to handlers or a
// message broker. The store calls Dispatch synchronously once per saved
// event; timeouts and retries are the dispatcher's business.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// EventDispatcherFunc adapts a plain function to EventDispatcher.
type EventDispatcherFunc func(ctx context.Context, event Event) error

func (f EventDispatcherFunc) Dispatch(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// NoopDispatcher accepts every event and does nothing with it.
var NoopDispatcher EventDispatcher = EventDispatcherFunc(func(context.Context, Event) error {
	return nil
})

type multiDispatcher []EventDispatcher

// MultiDispatcher calls every dispatcher in order and joins their errors.
// A failing dispatcher does not stop the ones after it. Nil entries are
// skipped.
func MultiDispatcher(dispatchers ...EventDispatcher) EventDispatcher {
	m := make(multiDispatcher, 0, len(dispatchers))
	for _, d := range dispatchers {
		if !IsNil(d) {
			m = append(m, d)
		}
	}
	return m
}

func (m multiDispatcher) Dispatch(ctx context.Context, event Event) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
