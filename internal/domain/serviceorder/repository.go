package serviceorder

import (
	"context"

	"github.com/google/uuid"
)

// ServiceOrderRepository stores orders and their items
type ServiceOrderRepository interface {
	// FindByID loads an order with its items
	FindByID(ctx context.Context, id uuid.UUID) (*ServiceOrder, error)
	// FindByIDForUpdate loads an order with its items and holds a row lock on it
	// until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ServiceOrder, error)
	FindByPublicToken(ctx context.Context, token string) (*ServiceOrder, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// Create inserts the order and any items it already carries
	Create(ctx context.Context, order *ServiceOrder) error
	// UpdateStatus persists the status and updated_at of an order
	UpdateStatus(ctx context.Context, order *ServiceOrder) error
	AddItem(ctx context.Context, item *OrderItem) error
}

// StatusHistoryRepository is the append-only audit trail of status changes
type StatusHistoryRepository interface {
	Append(ctx context.Context, entry *StatusHistoryEntry) error
	// ListByOrder returns entries oldest first
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]StatusHistoryEntry, error)
}
