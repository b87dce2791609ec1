package serviceorder

import (
	"time"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Request DTOs ====================

// CreateServiceOrderRequest represents a request to open a service order
type CreateServiceOrderRequest struct {
	CustomerID     *uuid.UUID       `json:"customer_id"`
	AssignedUserID uuid.UUID        `json:"assigned_user_id" binding:"required"`
	BranchID       uuid.UUID        `json:"branch_id"`
	Priority       string           `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	Tags           []string         `json:"tags" binding:"omitempty,max=20,dive,max=50"`
	BudgetValue    decimal.Decimal  `json:"budget_value"`
	Items          []OrderItemInput `json:"items" binding:"omitempty,dive"`
}

// OrderItemInput represents one line of an order
type OrderItemInput struct {
	PartID      *uuid.UUID      `json:"part_id"`
	Description string          `json:"description" binding:"max=500"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// AddOrderItemRequest represents a request to add an item to an open order
type AddOrderItemRequest = OrderItemInput

// ChangeStatusRequest represents a manual status change
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ==================== Response DTOs ====================

// ServiceOrderResponse represents a service order in API responses
type ServiceOrderResponse struct {
	ID                 uuid.UUID           `json:"id"`
	Status             string              `json:"status"`
	CustomerID         *uuid.UUID          `json:"customer_id,omitempty"`
	AssignedUserID     uuid.UUID           `json:"assigned_user_id"`
	BranchID           uuid.UUID           `json:"branch_id"`
	Priority           string              `json:"priority"`
	Tags               []string            `json:"tags"`
	BudgetValue        decimal.Decimal     `json:"budget_value"`
	ItemsTotal         decimal.Decimal     `json:"items_total"`
	PublicToken        string              `json:"public_token"`
	Items              []OrderItemResponse `json:"items"`
	AllowedTransitions []string            `json:"allowed_transitions"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	PartID      *uuid.UUID      `json:"part_id,omitempty"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// StatusHistoryResponse represents one status change
type StatusHistoryResponse struct {
	ID        uuid.UUID `json:"id"`
	OldStatus *string   `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedBy uuid.UUID `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// PublicServiceOrderResponse is what a customer sees through the public token.
// It carries no internal identifiers.
type PublicServiceOrderResponse struct {
	Status    string                `json:"status"`
	History   []PublicHistoryEntry  `json:"history"`
	Items     []PublicOrderItemLine `json:"items"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// PublicHistoryEntry is a status change without the actor
type PublicHistoryEntry struct {
	OldStatus *string   `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

// PublicOrderItemLine is an order line without part references
type PublicOrderItemLine struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

// ==================== Mappers ====================

// ToServiceOrderResponse converts a domain ServiceOrder to a response DTO
func ToServiceOrderResponse(order *serviceorder.ServiceOrder) ServiceOrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = ToOrderItemResponse(item)
	}
	allowed := order.Status.AllowedTargets()
	transitions := make([]string, len(allowed))
	for i, st := range allowed {
		transitions[i] = st.String()
	}
	tags := order.Tags
	if tags == nil {
		tags = []string{}
	}
	return ServiceOrderResponse{
		ID:                 order.ID,
		Status:             order.Status.String(),
		CustomerID:         order.CustomerID,
		AssignedUserID:     order.AssignedUserID,
		BranchID:           order.BranchID,
		Priority:           string(order.Priority),
		Tags:               tags,
		BudgetValue:        order.BudgetValue,
		ItemsTotal:         order.ItemsTotal(),
		PublicToken:        order.PublicToken,
		Items:              items,
		AllowedTransitions: transitions,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
}

// ToOrderItemResponse converts a domain OrderItem to a response DTO
func ToOrderItemResponse(item serviceorder.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:          item.ID,
		PartID:      item.PartID,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		Amount:      item.Amount(),
		CreatedAt:   item.CreatedAt,
	}
}

// ToStatusHistoryResponses converts history entries to response DTOs
func ToStatusHistoryResponses(entries []serviceorder.StatusHistoryEntry) []StatusHistoryResponse {
	out := make([]StatusHistoryResponse, len(entries))
	for i, e := range entries {
		out[i] = StatusHistoryResponse{
			ID:        e.ID,
			OldStatus: statusPtr(e.OldStatus),
			NewStatus: e.NewStatus.String(),
			ChangedBy: e.ChangedBy,
			ChangedAt: e.ChangedAt,
		}
	}
	return out
}

// ToPublicServiceOrderResponse builds the customer-facing view
func ToPublicServiceOrderResponse(order *serviceorder.ServiceOrder, entries []serviceorder.StatusHistoryEntry) PublicServiceOrderResponse {
	history := make([]PublicHistoryEntry, len(entries))
	for i, e := range entries {
		history[i] = PublicHistoryEntry{
			OldStatus: statusPtr(e.OldStatus),
			NewStatus: e.NewStatus.String(),
			ChangedAt: e.ChangedAt,
		}
	}
	items := make([]PublicOrderItemLine, len(order.Items))
	for i, item := range order.Items {
		items[i] = PublicOrderItemLine{
			Description: item.Description,
			Quantity:    item.Quantity,
			Amount:      item.Amount(),
		}
	}
	return PublicServiceOrderResponse{
		Status:    order.Status.String(),
		History:   history,
		Items:     items,
		UpdatedAt: order.UpdatedAt,
	}
}

func statusPtr(s *serviceorder.Status) *string {
	if s == nil {
		return nil
	}
	v := s.String()
	return &v
}
