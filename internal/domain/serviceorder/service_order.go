package serviceorder

import (
	"strings"
	"time"

	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Priority ranks how urgently an order should be worked on
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid checks if the priority is a known value
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// OrderItem is a part or service line on an order. PartID is set when the line
// consumes stock.
type OrderItem struct {
	ID             uuid.UUID
	ServiceOrderID uuid.UUID
	PartID         *uuid.UUID
	Description    string
	Quantity       int
	UnitPrice      decimal.Decimal
	CreatedAt      time.Time
}

// Amount returns quantity * unit price
func (i OrderItem) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// StatusHistoryEntry is one immutable row of an order's audit trail.
// OldStatus is nil for the entry written at intake.
type StatusHistoryEntry struct {
	ID             uuid.UUID
	ServiceOrderID uuid.UUID
	OldStatus      *Status
	NewStatus      Status
	ChangedBy      uuid.UUID
	ChangedAt      time.Time
}

// ServiceOrder is the aggregate root for a repair/service job
type ServiceOrder struct {
	shared.BaseAggregateRoot
	Status         Status
	CustomerID     *uuid.UUID
	AssignedUserID uuid.UUID
	BranchID       uuid.UUID
	Priority       Priority
	Tags           []string
	BudgetValue    decimal.Decimal
	PublicToken    string
	Items          []OrderItem
}

// NewOrderParams carries the intake data for a service order
type NewOrderParams struct {
	CustomerID     *uuid.UUID
	AssignedUserID uuid.UUID
	BranchID       uuid.UUID
	Priority       Priority
	Tags           []string
	BudgetValue    decimal.Decimal
	CreatedBy      uuid.UUID
}

// NewServiceOrder creates an order in Aguardando Avaliação together with its
// first history entry.
func NewServiceOrder(p NewOrderParams) (*ServiceOrder, *StatusHistoryEntry, error) {
	if p.AssignedUserID == uuid.Nil {
		return nil, nil, shared.NewDomainError(shared.CodeInvalidInput, "Assigned user is required")
	}
	if p.BranchID == uuid.Nil {
		return nil, nil, shared.NewDomainError(shared.CodeInvalidInput, "Branch is required")
	}
	if p.Priority == "" {
		p.Priority = PriorityNormal
	}
	if !p.Priority.IsValid() {
		return nil, nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid priority: "+string(p.Priority))
	}
	if p.BudgetValue.IsNegative() {
		return nil, nil, shared.NewDomainError(shared.CodeInvalidInput, "Budget value cannot be negative")
	}
	if p.CreatedBy == uuid.Nil {
		p.CreatedBy = p.AssignedUserID
	}

	order := &ServiceOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Status:            StatusAwaitingEvaluation,
		CustomerID:        p.CustomerID,
		AssignedUserID:    p.AssignedUserID,
		BranchID:          p.BranchID,
		Priority:          p.Priority,
		Tags:              NormalizeTags(p.Tags),
		BudgetValue:       p.BudgetValue,
		PublicToken:       newPublicToken(),
		Items:             make([]OrderItem, 0),
	}

	entry := &StatusHistoryEntry{
		ID:             uuid.New(),
		ServiceOrderID: order.ID,
		OldStatus:      nil,
		NewStatus:      order.Status,
		ChangedBy:      p.CreatedBy,
		ChangedAt:      order.CreatedAt,
	}

	return order, entry, nil
}

// AddItem appends a line. Items are frozen once the order is closed because
// stock may already have been committed against them.
func (o *ServiceOrder) AddItem(partID *uuid.UUID, description string, quantity int, unitPrice decimal.Decimal) (*OrderItem, error) {
	if o.Status.IsTerminal() {
		return nil, shared.NewDomainError(shared.CodeInvalidTransition, "Items cannot change once the order is "+o.Status.String())
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unit price cannot be negative")
	}
	if partID != nil && *partID == uuid.Nil {
		partID = nil
	}

	item := OrderItem{
		ID:             uuid.New(),
		ServiceOrderID: o.ID,
		PartID:         partID,
		Description:    strings.TrimSpace(description),
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		CreatedAt:      time.Now(),
	}
	o.Items = append(o.Items, item)
	o.Touch()
	return &item, nil
}

// ResolveEdge returns the table edge from the current status to target
func (o *ServiceOrder) ResolveEdge(target Status) (Edge, error) {
	if !target.IsValid() {
		return Edge{}, shared.NewDomainError(shared.CodeInvalidInput, "Unknown status: "+target.String())
	}
	edge, ok := o.Status.EdgeTo(target)
	if !ok {
		return Edge{}, shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot move order from "+o.Status.String()+" to "+target.String())
	}
	return edge, nil
}

// ApplyTransition moves the order along a resolved edge and returns the history
// row that must be persisted with it. Callers resolve the edge and check its
// capability first.
func (o *ServiceOrder) ApplyTransition(edge Edge, actor uuid.UUID, source TransitionSource) (*StatusHistoryEntry, error) {
	if edge.From != o.Status {
		return nil, shared.NewDomainError(shared.CodeInvalidTransition,
			"Order status changed to "+o.Status.String()+" before the transition was applied")
	}
	old := o.Status
	o.Status = edge.To
	o.Touch()

	entry := &StatusHistoryEntry{
		ID:             uuid.New(),
		ServiceOrderID: o.ID,
		OldStatus:      &old,
		NewStatus:      edge.To,
		ChangedBy:      actor,
		ChangedAt:      o.UpdatedAt,
	}
	o.AddDomainEvent(NewStatusUpdatedEvent(o, old, actor, source))
	return entry, nil
}

// StockConsumingItems returns the items that reference a part
func (o *ServiceOrder) StockConsumingItems() []OrderItem {
	out := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		if item.PartID != nil {
			out = append(out, item)
		}
	}
	return out
}

// ItemsTotal sums the amount of every item
func (o *ServiceOrder) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Amount())
	}
	return total
}

// NormalizeTags trims, drops empties and de-duplicates while keeping first-seen order
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func newPublicToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
