package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/terraskye/memento"
)

var (
	// ErrBusClosed is returned when dispatching to or subscribing on a closed bus.
	ErrBusClosed = errors.New("eventbus is closed")

	// ErrSubscriberBusy is reported on Errors when an event was dropped because
	// a subscriber's buffer was full.
	ErrSubscriberBusy = errors.New("subscriber buffer full, event dropped")
)

var _ memento.EventDispatcher = (*EventBus)(nil)

// SubscriberOption configures a subscription.
type SubscriberOption func(*subscriber)

// WithFilter restricts a subscription to the events keep accepts.
func WithFilter(keep func(memento.Event) bool) SubscriberOption {
	return func(s *subscriber) {
		s.filter = keep
	}
}

type subscriber struct {
	name    string
	filter  func(memento.Event) bool
	handler memento.EventHandler
	events  chan memento.Event
	cancel  context.CancelFunc
}

// EventBus fans saved events out to named subscribers. Each subscriber has
// its own buffered queue and goroutine, so Dispatch never waits on a handler.
type EventBus struct {
	mu         sync.RWMutex
	subs       map[string]*subscriber
	closed     bool
	errs       chan error
	wg         sync.WaitGroup
	bufferSize int
}

// NewEventBus constructs a new bus with a given subscriber buffer size.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &EventBus{
		subs:       make(map[string]*subscriber),
		errs:       make(chan error, 64),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a handler under a unique name. The subscription ends
// when ctx is done, on Unsubscribe or on Close.
func (b *EventBus) Subscribe(
	ctx context.Context,
	name string,
	handler memento.EventHandler,
	opts ...SubscriberOption,
) error {
	if memento.IsNil(handler) {
		return memento.NilArgument("handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	if _, exists := b.subs[name]; exists {
		return fmt.Errorf("handler with name %q already registered", name)
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	s := &subscriber{
		name:    name,
		handler: handler,
		events:  make(chan memento.Event, b.bufferSize),
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	b.subs[name] = s

	b.wg.Add(1)
	go b.runSubscriber(workerCtx, s)

	go func() {
		select {
		case <-ctx.Done():
			b.Unsubscribe(name)
		case <-workerCtx.Done():
		}
	}()

	return nil
}

// Errors reports handler failures and dropped events. It is closed by Close.
// Errors are dropped when nobody drains the channel.
func (b *EventBus) Errors() <-chan error {
	return b.errs
}

// Close shuts down the bus and waits for all workers.
func (b *EventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	for name, s := range b.subs {
		close(s.events)
		delete(b.subs, name)
	}
	b.mu.Unlock()

	// workers drain what is already queued before they exit
	b.wg.Wait()

	close(b.errs)

	return nil
}

// Unsubscribe removes the named subscriber. Events still queued for it are
// discarded.
func (b *EventBus) Unsubscribe(name string) {
	b.mu.Lock()
	s, ok := b.subs[name]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subs, name)
	b.mu.Unlock()

	s.cancel()
	close(s.events)
}

func (b *EventBus) runSubscriber(ctx context.Context, s *subscriber) {
	defer b.wg.Done()
	defer s.cancel()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-s.events:
			if !ok {
				return
			}

			if err := s.handler.Handle(memento.WithEvent(ctx, ev), ev); err != nil {
				b.report(fmt.Errorf("handler %q: %w", s.name, err))
			}
		}
	}
}

func (b *EventBus) report(err error) {
	select {
	case b.errs <- err:
	default:
	}
}

// Dispatch queues ev for every subscriber whose filter accepts it. It returns
// ErrBusClosed after Close. A full subscriber queue drops the event for that
// subscriber only and reports ErrSubscriberBusy on Errors.
func (b *EventBus) Dispatch(ctx context.Context, ev memento.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	for _, s := range b.subs {
		if s.filter != nil && !s.filter(ev) {
			continue
		}
		select {
		case s.events <- ev:
		default:
			b.report(fmt.Errorf("subscriber %q, event %s: %w", s.name, ev.EventID(), ErrSubscriberBusy))
		}
	}
	return nil
}
