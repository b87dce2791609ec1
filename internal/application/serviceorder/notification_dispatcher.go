package serviceorder

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultNotificationDedupTTL is how long a delivered event id is remembered
const DefaultNotificationDedupTTL = 24 * time.Hour

// StatusNotificationDispatcher sends the customer a message for every
// os.status.updated event. Delivery is at most once per event id while the
// idempotency store remembers it.
type StatusNotificationDispatcher struct {
	customers   serviceorder.CustomerDirectory
	notifier    serviceorder.Notifier
	idempotency shared.IdempotencyStore
	dedupTTL    time.Duration
	logger      *zap.Logger
}

// NewStatusNotificationDispatcher creates a new dispatcher. idempotency may be nil.
func NewStatusNotificationDispatcher(
	customers serviceorder.CustomerDirectory,
	notifier serviceorder.Notifier,
	idempotency shared.IdempotencyStore,
	dedupTTL time.Duration,
	logger *zap.Logger,
) *StatusNotificationDispatcher {
	if dedupTTL <= 0 {
		dedupTTL = DefaultNotificationDedupTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusNotificationDispatcher{
		customers:   customers,
		notifier:    notifier,
		idempotency: idempotency,
		dedupTTL:    dedupTTL,
		logger:      logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (d *StatusNotificationDispatcher) EventTypes() []string {
	return []string{serviceorder.EventTypeStatusUpdated}
}

// Handle processes a StatusUpdatedEvent
func (d *StatusNotificationDispatcher) Handle(ctx context.Context, event shared.DomainEvent) error {
	updated, ok := event.(*serviceorder.StatusUpdatedEvent)
	if !ok {
		d.logger.Error("unexpected event type",
			zap.String("expected", serviceorder.EventTypeStatusUpdated),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			serviceorder.EventTypeStatusUpdated, event.EventType())
	}

	if updated.Order.CustomerID == nil {
		d.logger.Debug("order has no customer, skipping status notification",
			zap.String("order_id", updated.AggregateID().String()),
		)
		return nil
	}

	key := "notify:" + updated.EventID().String()
	claimed := false
	if d.idempotency != nil {
		first, err := d.idempotency.MarkProcessed(ctx, key, d.dedupTTL)
		if err != nil {
			// Store unavailable: a duplicate message beats a lost one.
			d.logger.Warn("idempotency check failed, sending anyway",
				zap.String("event_id", updated.EventID().String()),
				zap.Error(err),
			)
		} else if !first {
			d.logger.Debug("status notification already sent",
				zap.String("event_id", updated.EventID().String()),
			)
			return nil
		} else {
			claimed = true
		}
	}

	if err := d.send(ctx, updated); err != nil {
		if claimed {
			// A failed send must stay retryable on redelivery.
			if releaseErr := d.idempotency.Release(ctx, key); releaseErr != nil {
				d.logger.Warn("failed to release notification claim",
					zap.String("event_id", updated.EventID().String()),
					zap.Error(releaseErr),
				)
			}
		}
		return err
	}
	return nil
}

func (d *StatusNotificationDispatcher) send(ctx context.Context, updated *serviceorder.StatusUpdatedEvent) error {
	contact, err := d.customers.FindContact(ctx, *updated.Order.CustomerID)
	if err != nil {
		return fmt.Errorf("resolve customer contact: %w", err)
	}
	address := contact.Address()
	if address == "" {
		d.logger.Info("customer has no contact address, skipping status notification",
			zap.String("customer_id", contact.CustomerID.String()),
		)
		return nil
	}

	vars := map[string]string{
		"customer_name": contact.Name,
		"old_status":    updated.OldStatus.String(),
		"new_status":    updated.NewStatus.String(),
		"public_token":  updated.Order.PublicToken,
	}
	if err := d.notifier.Notify(ctx, address, serviceorder.TemplateStatusUpdated, vars); err != nil {
		return fmt.Errorf("send status notification: %w", err)
	}

	d.logger.Info("status notification sent",
		zap.String("order_id", updated.AggregateID().String()),
		zap.String("new_status", updated.NewStatus.String()),
	)
	return nil
}

var _ shared.EventHandler = (*StatusNotificationDispatcher)(nil)
