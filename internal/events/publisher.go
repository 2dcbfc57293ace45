package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler processes a drained event.
type Handler func(context.Context, Event) error

// Publisher accepts workflow events after the triggering mutation committed.
// Publish failures must never be propagated into the workflow result.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// OutboxStore persists events for deferred dispatch.
type OutboxStore interface {
	Enqueue(ctx context.Context, event Event) error
}

// outboxPublisher writes events to a durable outbox drained by the worker.
type outboxPublisher struct {
	store OutboxStore
}

// NewOutboxPublisher creates a publisher backed by the given store.
func NewOutboxPublisher(store OutboxStore) Publisher {
	return &outboxPublisher{store: store}
}

func (p *outboxPublisher) Publish(ctx context.Context, event Event) error {
	stamp(&event)
	return p.store.Enqueue(ctx, event)
}

// inMemoryPublisher invokes handlers synchronously. Used in tests and when
// no durable store is configured.
type inMemoryPublisher struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewInMemoryPublisher creates a synchronous publisher.
func NewInMemoryPublisher(handlers ...Handler) *inMemoryPublisher {
	return &inMemoryPublisher{handlers: handlers}
}

// Subscribe registers an additional handler.
func (p *inMemoryPublisher) Subscribe(handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler)
}

// Publish synchronously invokes handlers; handler errors do not stop the rest.
func (p *inMemoryPublisher) Publish(ctx context.Context, event Event) error {
	stamp(&event)
	p.mu.RLock()
	handlers := append([]Handler{}, p.handlers...)
	p.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

func stamp(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
}
