package uow

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Effect is a side effect that must not influence the primary operation
type Effect func(ctx context.Context) error

type namedEffect struct {
	name string
	fn   Effect
}

// Effects collects after-commit effects for one transaction
type Effects struct {
	mu    sync.Mutex
	items []namedEffect
}

// Add queues an effect
func (e *Effects) Add(name string, fn Effect) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(e.items, namedEffect{name: name, fn: fn})
}

// Len returns the number of queued effects
func (e *Effects) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}

// Run executes the queued effects in registration order and empties the queue.
// Failures are logged with the effect name; the returned count is the number of
// effects that failed.
func (e *Effects) Run(ctx context.Context, logger *zap.Logger) int {
	e.mu.Lock()
	items := e.items
	e.items = nil
	e.mu.Unlock()

	failed := 0
	for _, item := range items {
		if err := runEffect(ctx, item); err != nil {
			failed++
			logger.Warn("Best-effort effect failed",
				zap.String("effect", item.name),
				zap.Error(err),
			)
		}
	}
	return failed
}

// Discard drops queued effects, used on rollback
func (e *Effects) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = nil
}

func runEffect(ctx context.Context, item namedEffect) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in effect %s: %v", item.name, r)
		}
	}()
	return item.fn(ctx)
}
