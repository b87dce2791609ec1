package event

import (
	"context"
	"sync"

	"github.com/erp/servicedesk/internal/domain/shared"
	"go.uber.org/zap"
)

// Default worker pool sizing for the in-memory bus
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// InMemoryEventBus delivers events to subscribed handlers. Once started,
// Publish only enqueues and a worker pool runs the handlers, so a slow
// notifier never holds up the request that committed the change. Before
// Start and after Stop delivery is synchronous. Handler errors and panics are
// logged and never reach the publisher.
type InMemoryEventBus struct {
	registry  *handlerRegistry
	logger    *zap.Logger
	workers   int
	queueSize int

	mu      sync.RWMutex
	running bool
	queue   chan envelope
	wg      sync.WaitGroup
}

// NewInMemoryEventBus creates a bus with the given worker count and queue
// size. Non-positive values fall back to the defaults.
func NewInMemoryEventBus(logger *zap.Logger, workers, queueSize int) *InMemoryEventBus {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &InMemoryEventBus{
		registry:  newHandlerRegistry(),
		logger:    logger,
		workers:   workers,
		queueSize: queueSize,
	}
}

// Publish hands events to their handlers. It never returns a handler error.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, event := range events {
		if !b.running {
			b.dispatch(ctx, event)
			continue
		}
		select {
		case b.queue <- envelope{ctx: context.WithoutCancel(ctx), event: event}:
		default:
			b.logger.Warn("event queue full, delivering inline",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
			)
			b.dispatch(ctx, event)
		}
	}
	return nil
}

// Subscribe registers handler for eventTypes, or for its own EventTypes when
// none are given.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.unregister(handler)
}

// Start launches the worker pool
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}
	b.running = true
	b.queue = make(chan envelope, b.queueSize)
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.work(b.queue)
	}
	b.logger.Info("event bus started", zap.Int("workers", b.workers))
	return nil
}

// Stop stops accepting queued work and waits for the queue to drain or ctx
// to end.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.queue)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *InMemoryEventBus) work(queue <-chan envelope) {
	defer b.wg.Done()
	for env := range queue {
		b.dispatch(env.ctx, env.event)
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.lookup(event.EventType()) {
		if err := b.safeHandle(ctx, handler, event); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

func (b *InMemoryEventBus) safeHandle(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Any("panic", r),
			)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
