package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys that have already been handled, so at-least-once
// deliveries (event handlers, outbound notifications) act only once.
type IdempotencyStore interface {
	// MarkProcessed returns true if the key was newly marked, false if it was already there
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a claim so the key can be processed again
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
