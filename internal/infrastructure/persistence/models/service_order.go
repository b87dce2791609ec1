package models

import (
	"time"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceOrderModel is the persistence model for the ServiceOrder aggregate root.
type ServiceOrderModel struct {
	BaseModel
	Status         string           `gorm:"type:varchar(40);not null;index"`
	CustomerID     *uuid.UUID       `gorm:"type:uuid;index"`
	AssignedUserID uuid.UUID        `gorm:"type:uuid;not null;index"`
	BranchID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	Priority       string           `gorm:"type:varchar(10);not null;default:'normal'"`
	Tags           []string         `gorm:"type:jsonb;serializer:json"`
	BudgetValue    decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	PublicToken    string           `gorm:"type:varchar(64);not null;uniqueIndex"`
	Items          []OrderItemModel `gorm:"foreignKey:ServiceOrderID;references:ID"`
}

// TableName returns the table name for GORM
func (ServiceOrderModel) TableName() string {
	return "service_orders"
}

// ToDomain converts the persistence model to a domain ServiceOrder.
func (m *ServiceOrderModel) ToDomain() *serviceorder.ServiceOrder {
	order := &serviceorder.ServiceOrder{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		Status:            serviceorder.Status(m.Status),
		CustomerID:        m.CustomerID,
		AssignedUserID:    m.AssignedUserID,
		BranchID:          m.BranchID,
		Priority:          serviceorder.Priority(m.Priority),
		Tags:              m.Tags,
		BudgetValue:       m.BudgetValue,
		PublicToken:       m.PublicToken,
		Items:             make([]serviceorder.OrderItem, 0, len(m.Items)),
	}
	if order.Tags == nil {
		order.Tags = []string{}
	}
	for i := range m.Items {
		order.Items = append(order.Items, m.Items[i].ToDomain())
	}
	return order
}

// FromDomain populates the model from a domain ServiceOrder, items included.
func (m *ServiceOrderModel) FromDomain(o *serviceorder.ServiceOrder) {
	m.FromDomainBaseEntity(o.BaseEntity)
	m.Status = o.Status.String()
	m.CustomerID = o.CustomerID
	m.AssignedUserID = o.AssignedUserID
	m.BranchID = o.BranchID
	m.Priority = string(o.Priority)
	m.Tags = o.Tags
	m.BudgetValue = o.BudgetValue
	m.PublicToken = o.PublicToken
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i].FromDomain(o.Items[i])
	}
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ServiceOrderID uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartID         *uuid.UUID      `gorm:"type:uuid;index"`
	Description    string          `gorm:"type:varchar(255)"`
	Quantity       int             `gorm:"not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "service_order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() serviceorder.OrderItem {
	return serviceorder.OrderItem{
		ID:             m.ID,
		ServiceOrderID: m.ServiceOrderID,
		PartID:         m.PartID,
		Description:    m.Description,
		Quantity:       m.Quantity,
		UnitPrice:      m.UnitPrice,
		CreatedAt:      m.CreatedAt,
	}
}

// FromDomain populates the model from a domain OrderItem.
func (m *OrderItemModel) FromDomain(i serviceorder.OrderItem) {
	m.ID = i.ID
	m.ServiceOrderID = i.ServiceOrderID
	m.PartID = i.PartID
	m.Description = i.Description
	m.Quantity = i.Quantity
	m.UnitPrice = i.UnitPrice
	m.CreatedAt = i.CreatedAt
}

// StatusHistoryModel is one append-only audit row.
type StatusHistoryModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ServiceOrderID uuid.UUID `gorm:"type:uuid;not null;index:idx_status_history_order_time,priority:1"`
	OldStatus      *string   `gorm:"type:varchar(40)"`
	NewStatus      string    `gorm:"type:varchar(40);not null"`
	ChangedBy      uuid.UUID `gorm:"type:uuid;not null"`
	ChangedAt      time.Time `gorm:"not null;index:idx_status_history_order_time,priority:2"`
}

// TableName returns the table name for GORM
func (StatusHistoryModel) TableName() string {
	return "service_order_status_history"
}

// ToDomain converts the persistence model to a domain StatusHistoryEntry.
func (m *StatusHistoryModel) ToDomain() serviceorder.StatusHistoryEntry {
	entry := serviceorder.StatusHistoryEntry{
		ID:             m.ID,
		ServiceOrderID: m.ServiceOrderID,
		NewStatus:      serviceorder.Status(m.NewStatus),
		ChangedBy:      m.ChangedBy,
		ChangedAt:      m.ChangedAt,
	}
	if m.OldStatus != nil {
		old := serviceorder.Status(*m.OldStatus)
		entry.OldStatus = &old
	}
	return entry
}

// FromDomain populates the model from a domain StatusHistoryEntry.
func (m *StatusHistoryModel) FromDomain(e *serviceorder.StatusHistoryEntry) {
	m.ID = e.ID
	m.ServiceOrderID = e.ServiceOrderID
	m.NewStatus = e.NewStatus.String()
	m.ChangedBy = e.ChangedBy
	m.ChangedAt = e.ChangedAt
	m.OldStatus = nil
	if e.OldStatus != nil {
		old := e.OldStatus.String()
		m.OldStatus = &old
	}
}
