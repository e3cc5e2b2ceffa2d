// Package nats publishes dispatched events to NATS subjects and delivers
// events received from NATS to memento handlers.
//
// Events travel as memento codec records. Each event goes to
// <prefix>.<event name>, so subscribers can use wildcards such as
// "memento.events.>". Trace context, when a propagator is configured, is
// carried in the message headers.
package nats

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gonats "github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/propagation"

	"github.com/terraskye/memento"
)

// DefaultSubjectPrefix is the subject prefix used unless WithSubjectPrefix is given.
const DefaultSubjectPrefix = "memento.events"

var _ memento.EventDispatcher = (*Publisher)(nil)

type config struct {
	prefix     string
	propagator propagation.TextMapPropagator
	connOpts   []gonats.Option
}

// headerCarrier adapts NATS headers to propagation.TextMapCarrier. NATS
// header keys are case-sensitive, unlike http.Header, so keys are stored and
// looked up exactly as the propagator spells them.
type headerCarrier gonats.Header

var _ propagation.TextMapCarrier = headerCarrier(nil)

func (c headerCarrier) Get(key string) string {
	return gonats.Header(c).Get(key)
}

func (c headerCarrier) Set(key, value string) {
	gonats.Header(c).Set(key, value)
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Option configures a Publisher or Subscriber.
type Option func(*config)

// WithSubjectPrefix sets the subject prefix events are published under.
func WithSubjectPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = strings.TrimSuffix(prefix, ".")
	}
}

// WithPropagator carries trace context in message headers.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *config) {
		c.propagator = p
	}
}

// WithConnOptions passes options to nats.Connect.
func WithConnOptions(opts ...gonats.Option) Option {
	return func(c *config) {
		c.connOpts = append(c.connOpts, opts...)
	}
}

func newConfig(opts []Option) *config {
	c := &config{prefix: DefaultSubjectPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subject returns the subject an event with the given name is published to.
// Characters NATS treats as wildcards are replaced.
func Subject(prefix, eventName string) string {
	name := strings.TrimLeft(eventName, "*")
	name = strings.NewReplacer("*", "_", ">", "_", " ", "_").Replace(name)
	return prefix + "." + name
}

// Publisher is an EventDispatcher publishing every event to NATS.
type Publisher struct {
	conn *gonats.Conn
	cfg  *config
}

// NewPublisher connects to the NATS server at url.
func NewPublisher(url string, opts ...Option) (*Publisher, error) {
	cfg := newConfig(opts)
	nc, err := gonats.Connect(url, cfg.connOpts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &Publisher{conn: nc, cfg: cfg}, nil
}

// Dispatch implements memento.EventDispatcher. Publishing is fire-and-forget:
// a nil error means the message was handed to the connection.
func (p *Publisher) Dispatch(ctx context.Context, ev memento.Event) error {
	data, err := memento.MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	msg := gonats.NewMsg(Subject(p.cfg.prefix, memento.EventName(ev)))
	msg.Data = data
	if p.cfg.propagator != nil {
		p.cfg.propagator.Inject(ctx, headerCarrier(msg.Header))
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing %s: %w", msg.Subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	err := p.conn.FlushTimeout(5 * time.Second)
	p.conn.Close()
	return err
}

// Subscriber receives published events and hands them to handlers.
type Subscriber struct {
	conn *gonats.Conn
	cfg  *config
	errs chan error
	once sync.Once
}

// NewSubscriber connects to NATS with automatic reconnection support.
func NewSubscriber(url string, opts ...Option) (*Subscriber, error) {
	cfg := newConfig(opts)
	defaults := []gonats.Option{
		gonats.MaxReconnects(-1),
		gonats.ReconnectWait(time.Second),
	}
	nc, err := gonats.Connect(url, append(defaults, cfg.connOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &Subscriber{conn: nc, cfg: cfg, errs: make(chan error, 64)}, nil
}

// Subscribe decodes every message on subject and passes the event to
// handler. subject may use NATS wildcards; an empty subject subscribes to
// all events under the configured prefix. Call the returned function to
// unsubscribe.
func (s *Subscriber) Subscribe(subject string, handler memento.EventHandler) (func(), error) {
	if memento.IsNil(handler) {
		return nil, memento.NilArgument("handler")
	}
	if subject == "" {
		subject = s.cfg.prefix + ".>"
	}

	sub, err := s.conn.Subscribe(subject, func(msg *gonats.Msg) {
		ev, err := memento.UnmarshalEvent(msg.Data)
		if err != nil {
			s.report(fmt.Errorf("decoding %s: %w", msg.Subject, err))
			return
		}

		ctx := context.Background()
		if s.cfg.propagator != nil && msg.Header != nil {
			ctx = s.cfg.propagator.Extract(ctx, headerCarrier(msg.Header))
		}
		if err := handler.Handle(memento.WithEvent(ctx, ev), ev); err != nil {
			s.report(fmt.Errorf("handling %s: %w", msg.Subject, err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	// the subscription must be known to the server before we return
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}

	return func() { _ = sub.Unsubscribe() }, nil
}

// Errors reports decode and handler failures. Errors are dropped when nobody
// drains the channel.
func (s *Subscriber) Errors() <-chan error {
	return s.errs
}

func (s *Subscriber) report(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// Close drains the subscriptions and closes the connection.
func (s *Subscriber) Close() error {
	s.once.Do(func() {
		s.conn.Close()
	})
	return nil
}
