package memento

import (
	"context"
	"reflect"
)

// HydrateHandler applies one event type to aggregate state.
type HydrateHandler interface {
	EventType() reflect.Type
	Apply(ctx context.Context, event Event)
}

type genericHydrateHandler[T Event] struct {
	handleFunc func(ctx context.Context, event T)
}

// NewHydrateHandler creates a HydrateHandler for the event type inferred from
// the function argument.
func NewHydrateHandler[T Event](handleFunc func(ctx context.Context, event T)) HydrateHandler {
	return genericHydrateHandler[T]{handleFunc: handleFunc}
}

func (c genericHydrateHandler[T]) EventType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (c genericHydrateHandler[T]) Apply(ctx context.Context, e Event) {
	c.handleFunc(ctx, e.(T))
}

// Hydrate returns a function applying each event to the handler registered
// for its exact type. Events without a handler are ignored.
//
// Example Usage:
//
//	apply := memento.Hydrate(
//	    memento.NewHydrateHandler(account.onDeposited),
//	    memento.NewHydrateHandler(account.onWithdrawn),
//	)
func Hydrate(handlers ...HydrateHandler) func(ctx context.Context, ev Event) {
	byType := make(map[reflect.Type]HydrateHandler, len(handlers))
	for _, handler := range handlers {
		byType[handler.EventType()] = handler
	}

	return func(ctx context.Context, ev Event) {
		if handler, ok := byType[reflect.TypeOf(ev)]; ok {
			handler.Apply(ctx, ev)
		}
	}
}

// Replay drains it in order, passing every event to apply, and returns how
// many events were applied. It stops at the first iterator error.
func Replay(ctx context.Context, it *Iterator[Event], apply func(ctx context.Context, ev Event)) (int, error) {
	if it == nil {
		return 0, NilArgument("iterator")
	}
	n := 0
	for it.Next(ctx) {
		apply(ctx, it.Value())
		n++
	}
	return n, it.Err()
}
