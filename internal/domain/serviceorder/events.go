package serviceorder

import (
	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeServiceOrder = "ServiceOrder"

// EventTypeStatusUpdated is the only topic published for service orders.
// Intake is recorded by its first history row instead.
const EventTypeStatusUpdated = "os.status.updated"

// TransitionSource records which entry point drove a status change
type TransitionSource string

const (
	SourceManual TransitionSource = "manual"
	SourceKanban TransitionSource = "kanban"
)

// OrderSnapshot is the order state carried by events
type OrderSnapshot struct {
	ID             uuid.UUID       `json:"id"`
	Status         Status          `json:"status"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty"`
	AssignedUserID uuid.UUID       `json:"assigned_user_id"`
	BranchID       uuid.UUID       `json:"branch_id"`
	Priority       Priority        `json:"priority"`
	Tags           []string        `json:"tags"`
	BudgetValue    decimal.Decimal `json:"budget_value"`
	PublicToken    string          `json:"public_token"`
}

// Snapshot copies the fields published with events
func (o *ServiceOrder) Snapshot() OrderSnapshot {
	tags := make([]string, len(o.Tags))
	copy(tags, o.Tags)
	return OrderSnapshot{
		ID:             o.ID,
		Status:         o.Status,
		CustomerID:     o.CustomerID,
		AssignedUserID: o.AssignedUserID,
		BranchID:       o.BranchID,
		Priority:       o.Priority,
		Tags:           tags,
		BudgetValue:    o.BudgetValue,
		PublicToken:    o.PublicToken,
	}
}

// StatusUpdatedEvent is published after a committed status change.
// Subscribers must never be able to undo the transition.
type StatusUpdatedEvent struct {
	shared.BaseDomainEvent
	OldStatus Status           `json:"old_status"`
	NewStatus Status           `json:"new_status"`
	ActorID   uuid.UUID        `json:"actor_id"`
	Source    TransitionSource `json:"source"`
	Order     OrderSnapshot    `json:"order"`
}

// NewStatusUpdatedEvent creates a new StatusUpdatedEvent
func NewStatusUpdatedEvent(order *ServiceOrder, old Status, actor uuid.UUID, source TransitionSource) *StatusUpdatedEvent {
	return &StatusUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStatusUpdated, AggregateTypeServiceOrder, order.ID),
		OldStatus:       old,
		NewStatus:       order.Status,
		ActorID:         actor,
		Source:          source,
		Order:           order.Snapshot(),
	}
}
