package kanban

import (
	"context"
	"sync"
	"time"

	"github.com/erp/servicedesk/internal/application/uow"
	"github.com/erp/servicedesk/internal/domain/kanban"
	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// notificationTimeout bounds one ready-for-pickup delivery
const notificationTimeout = 30 * time.Second

// OrderTransitioner is the board entry point of the order state machine
type OrderTransitioner interface {
	UpdateStatusFromKanban(ctx context.Context, tx uow.Tx, orderID uuid.UUID, target serviceorder.Status, actorID uuid.UUID) (bool, error)
}

// AutomationBridge turns a card landing in a completion column into an order
// transition inside the same transaction, then notifies the customer in the
// background once the move has committed.
type AutomationBridge struct {
	transitioner OrderTransitioner
	orders       serviceorder.ServiceOrderRepository
	customers    serviceorder.CustomerDirectory
	notifier     serviceorder.Notifier
	logger       *zap.Logger

	inflight sync.WaitGroup
}

// NewAutomationBridge creates a new AutomationBridge. customers and notifier may be
// nil, in which case no completion notification is sent.
func NewAutomationBridge(
	transitioner OrderTransitioner,
	orders serviceorder.ServiceOrderRepository,
	customers serviceorder.CustomerDirectory,
	notifier serviceorder.Notifier,
	logger *zap.Logger,
) *AutomationBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutomationBridge{
		transitioner: transitioner,
		orders:       orders,
		customers:    customers,
		notifier:     notifier,
		logger:       logger,
	}
}

// OnCardLanded runs for every cross-column move. Only completion columns with a
// linked order do anything; an error here aborts the move.
func (b *AutomationBridge) OnCardLanded(ctx context.Context, tx uow.Tx, card *kanban.Card, column *kanban.Column, actorID uuid.UUID) error {
	if column.Role != kanban.ColumnRoleCompletionSystem || !card.HasOrder() {
		return nil
	}
	orderID := *card.ServiceOrderID

	changed, err := b.transitioner.UpdateStatusFromKanban(ctx, tx, orderID, column.TargetStatus, actorID)
	if err != nil {
		return err
	}
	if !changed || b.notifier == nil || b.customers == nil {
		return nil
	}

	target := column.TargetStatus
	tx.AfterCommit("ready_for_pickup_notification", func(ctx context.Context) error {
		b.inflight.Add(1)
		go func() {
			defer b.inflight.Done()
			b.notifyReadyForPickup(ctx, orderID, target)
		}()
		return nil
	})
	return nil
}

// Wait blocks until every background notification has finished
func (b *AutomationBridge) Wait() {
	b.inflight.Wait()
}

func (b *AutomationBridge) notifyReadyForPickup(ctx context.Context, orderID uuid.UUID, status serviceorder.Status) {
	ctx, cancel := context.WithTimeout(ctx, notificationTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("ready-for-pickup notification panicked",
				zap.String("order_id", orderID.String()),
				zap.Any("panic", r),
			)
		}
	}()

	order, err := b.orders.FindByID(ctx, orderID)
	if err != nil {
		b.logger.Warn("ready-for-pickup notification: order lookup failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return
	}
	if order.CustomerID == nil {
		return
	}

	contact, err := b.customers.FindContact(ctx, *order.CustomerID)
	if err != nil {
		b.logger.Warn("ready-for-pickup notification: customer lookup failed",
			zap.String("order_id", orderID.String()),
			zap.String("customer_id", order.CustomerID.String()),
			zap.Error(err),
		)
		return
	}
	address := contact.Address()
	if address == "" {
		return
	}

	vars := map[string]string{
		"customer_name": contact.Name,
		"status":        status.String(),
		"public_token":  order.PublicToken,
		"items_total":   order.ItemsTotal().StringFixed(2),
	}
	if err := b.notifier.Notify(ctx, address, serviceorder.TemplateReadyForPickup, vars); err != nil {
		b.logger.Warn("ready-for-pickup notification failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return
	}
	b.logger.Info("ready-for-pickup notification sent", zap.String("order_id", orderID.String()))
}
