package fixtures

import (
	"context"
	"sync"

	"github.com/terraskye/memento"
)

var _ memento.EventDispatcher = (*DispatcherSpy)(nil)

// DispatcherSpy is a configurable mock EventDispatcher for testing.
// It records every dispatched event and allows injecting failures.
type DispatcherSpy struct {
	mu sync.Mutex

	// DispatchFn overrides the default behavior when set.
	DispatchFn func(ctx context.Context, event memento.Event) error

	// Call tracking
	DispatchCalls int
	Dispatched    []memento.Event

	dispatchErr error
}

// NewDispatcherSpy creates a DispatcherSpy that accepts every event.
func NewDispatcherSpy() *DispatcherSpy {
	return &DispatcherSpy{}
}

// FailOnDispatch configures the spy to return err from Dispatch.
func (d *DispatcherSpy) FailOnDispatch(err error) *DispatcherSpy {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatchErr = err
	return d
}

// Dispatch implements memento.EventDispatcher.
func (d *DispatcherSpy) Dispatch(ctx context.Context, event memento.Event) error {
	d.mu.Lock()
	d.DispatchCalls++
	d.Dispatched = append(d.Dispatched, event)
	fn := d.DispatchFn
	err := d.dispatchErr
	d.mu.Unlock()

	if fn != nil {
		return fn(ctx, event)
	}
	return err
}

// Calls returns the number of Dispatch calls so far.
func (d *DispatcherSpy) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.DispatchCalls
}

// Events returns a copy of the dispatched events.
func (d *DispatcherSpy) Events() []memento.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]memento.Event, len(d.Dispatched))
	copy(out, d.Dispatched)
	return out
}
