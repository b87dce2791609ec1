package serviceorder

import (
	"context"

	"github.com/google/uuid"
)

// PermissionGate answers whether a user holds a capability
type PermissionGate interface {
	HasCapability(ctx context.Context, userID uuid.UUID, capability string) (bool, error)
}

// StockLedger adjusts part stock. Implementations are bound to the transaction
// they were obtained from.
type StockLedger interface {
	// DecrementStock fails with CONSTRAINT_VIOLATION when stock is insufficient
	DecrementStock(ctx context.Context, partID uuid.UUID, quantity int) error
}

// PurchaseAutomation raises purchase requests for parts running low after an
// order consumed them.
type PurchaseAutomation interface {
	CheckAndRequestPartsForOrder(ctx context.Context, orderID uuid.UUID) error
}

// Activity kinds written to the feed
const (
	ActivityOrderFinished = "service_order.finished"
)

// ActivityFeed records user-visible activity entries
type ActivityFeed interface {
	RecordActivity(ctx context.Context, userID, branchID uuid.UUID, kind string, payload map[string]any) error
}

// Notification templates
const (
	TemplateStatusUpdated  = "os_status_updated"
	TemplateReadyForPickup = "os_ready_for_pickup"
)

// Notifier delivers an outbound message to a phone number or address
type Notifier interface {
	Notify(ctx context.Context, address, template string, variables map[string]string) error
}

// CustomerContact holds the reachable details of a customer
type CustomerContact struct {
	CustomerID uuid.UUID
	Name       string
	Phone      string
	Email      string
}

// Address picks the phone when present, falling back to email
func (c CustomerContact) Address() string {
	if c.Phone != "" {
		return c.Phone
	}
	return c.Email
}

// CustomerDirectory looks up customer contact details
type CustomerDirectory interface {
	FindContact(ctx context.Context, customerID uuid.UUID) (*CustomerContact, error)
}
