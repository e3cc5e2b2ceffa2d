package memento

import (
	"context"
	"fmt"
	"sort"
)

// EventHandler reacts to a dispatched event.
type EventHandler interface {
	// Handle processes the given Event within the provided context.
	Handle(ctx context.Context, event Event) error
}

// NewEventHandlerFunc creates an EventHandler from a plain function.
//
// The handler receives every event it is invoked with. If you need type
// safety, use OnEvent[T] instead.
//
// Example Usage:
//
//	handler := NewEventHandlerFunc(func(ctx context.Context, ev Event) error {
//	    fmt.Println("Received event:", EventName(ev))
//	    return nil
//	})
func NewEventHandlerFunc(fn func(ctx context.Context, event Event) error) EventHandler {
	return eventHandlerFunc(fn)
}

type eventHandlerFunc func(ctx context.Context, event Event) error

func (h eventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return h(ctx, event)
}

// typedEventHandler is a strongly typed event handler for a specific Event type T.
type typedEventHandler[T Event] func(ctx context.Context, ev T) error

// EventName returns the type name of T. It is used by EventGroupProcessor
// for routing.
func (h typedEventHandler[T]) EventName() string {
	var zero T
	return TypeName(zero)
}

// Handle processes the event if it is a T and returns ErrSkippedEvent
// otherwise.
func (h typedEventHandler[T]) Handle(ctx context.Context, event Event) error {
	ev, ok := event.(T)
	if !ok {
		return &ErrSkippedEvent{Event: event}
	}
	return h(ctx, ev)
}

// OnEvent creates a strongly-typed EventHandler for the concrete event type T.
//
// Example Usage:
//
//	handler := OnEvent(func(ctx context.Context, ev *Deposited) error {
//	    balance += ev.Amount
//	    return nil
//	})
func OnEvent[T Event](fn func(ctx context.Context, ev T) error) EventHandler {
	return typedEventHandler[T](fn)
}

// EventGroupProcessor routes events to typed handlers by event type.
type EventGroupProcessor struct {
	handlers map[string]EventHandler
}

// NewEventGroupProcessor creates a group of typed event handlers built with
// OnEvent. It panics if a handler is not typed or if two handlers are given for
// the same event type.
//
// Example Usage:
//
//	p := &Projector{}
//	group := NewEventGroupProcessor(
//	    OnEvent(p.OnDeposited),
//	    OnEvent(p.OnWithdrawn),
//	)
func NewEventGroupProcessor(handlers ...EventHandler) *EventGroupProcessor {
	m := make(map[string]EventHandler, len(handlers))
	for _, h := range handlers {
		u, ok := h.(interface{ EventName() string })
		if !ok {
			panic(fmt.Errorf("handler %T does not have a function `EventName()`", h))
		}

		name := u.EventName()
		if _, exists := m[name]; exists {
			panic(fmt.Errorf("duplicate handler for event %s: %w", name, ErrDuplicateHandler))
		}
		m[name] = h
	}

	return &EventGroupProcessor{handlers: m}
}

// Handle routes the given event to the correct typed handler.
// Returns ErrSkippedEvent if no handler exists for the event type.
func (p *EventGroupProcessor) Handle(ctx context.Context, ev Event) error {
	h, ok := p.handlers[TypeName(ev)]
	if !ok {
		return &ErrSkippedEvent{Event: ev}
	}
	return h.Handle(ctx, ev)
}

// Accepts reports whether the group has a handler for ev. It fits
// eventbus/memory.WithFilter.
func (p *EventGroupProcessor) Accepts(ev Event) bool {
	_, ok := p.handlers[TypeName(ev)]
	return ok
}

// EventNames returns the sorted type names handled by this group.
func (p *EventGroupProcessor) EventNames() []string {
	out := make([]string, 0, len(p.handlers))
	for name := range p.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
