// Package publisher emits audit events to a store, either synchronously or
// through a buffered channel so hot paths (the scan loop) never block on the
// audit sink.
package publisher

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"turnstile/pkg/requestcontext"

	audit "turnstile/pkg/platform/audit"
)

var droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "turnstile_audit_events_dropped_total",
	Help: "Audit events dropped because the async buffer was full",
})

// Publisher writes audit events to a store. In async mode events are queued
// on a buffered channel and persisted by a background goroutine; a full
// buffer drops the event rather than blocking the caller.
type Publisher struct {
	store audit.Store

	inbox  chan audit.Event
	done   chan struct{}
	closed sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous publishing with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

// NewPublisher constructs a Publisher. Without options it writes through to
// the store synchronously.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

// Emit publishes an audit event. A zero timestamp is stamped with the
// request-scoped time so events within one request agree on "now".
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
	default:
		droppedEvents.Inc()
	}
	return nil
}

// List returns events for a subject, delegating to the store.
func (p *Publisher) List(ctx context.Context, subject string) ([]audit.Event, error) {
	return p.store.ListBySubject(ctx, subject)
}

// Close stops async publishing and drains any buffered events.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
		}
	})
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		// Background persistence uses its own context: the request that
		// emitted the event may be long gone.
		_ = p.store.Append(context.Background(), event)
	}
}
