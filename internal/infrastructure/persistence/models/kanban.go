package models

import (
	"time"

	"github.com/erp/servicedesk/internal/domain/kanban"
	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/google/uuid"
)

// KanbanColumnModel is the persistence model for a board column.
// IsSystem is stored alongside Role for consumers that only read the flag.
type KanbanColumnModel struct {
	BaseModel
	Title        string `gorm:"type:varchar(100);not null"`
	Position     int    `gorm:"not null;index"`
	WipLimit     int    `gorm:"not null;default:-1"`
	Role         string `gorm:"type:varchar(30);not null;default:'normal'"`
	TargetStatus string `gorm:"type:varchar(40);not null;default:''"`
	IsSystem     bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (KanbanColumnModel) TableName() string {
	return "kanban_columns"
}

// ToDomain converts the persistence model to a domain Column.
func (m *KanbanColumnModel) ToDomain() *kanban.Column {
	return &kanban.Column{
		BaseEntity:   m.BaseModel.ToDomain(),
		Title:        m.Title,
		Position:     m.Position,
		WipLimit:     m.WipLimit,
		Role:         kanban.ColumnRole(m.Role),
		TargetStatus: serviceorder.Status(m.TargetStatus),
	}
}

// FromDomain populates the model from a domain Column.
func (m *KanbanColumnModel) FromDomain(c *kanban.Column) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Title = c.Title
	m.Position = c.Position
	m.WipLimit = c.WipLimit
	m.Role = string(c.Role)
	m.TargetStatus = c.TargetStatus.String()
	m.IsSystem = c.IsSystem()
}

// KanbanCardModel is the persistence model for a board card.
// (column_id, position) is unique at commit time in PostgreSQL through a deferred
// constraint; the index here only serves lookups.
type KanbanCardModel struct {
	BaseModel
	ColumnID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_kanban_cards_column_position,priority:1"`
	Position       int        `gorm:"not null;index:idx_kanban_cards_column_position,priority:2"`
	Title          string     `gorm:"type:varchar(200);not null"`
	Description    string     `gorm:"type:text"`
	DueDate        *time.Time
	AssigneeID     *uuid.UUID `gorm:"type:uuid;index"`
	Priority       string     `gorm:"type:varchar(10);not null;default:'normal'"`
	ServiceOrderID *uuid.UUID `gorm:"type:uuid;index"`
	Tags           []string   `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (KanbanCardModel) TableName() string {
	return "kanban_cards"
}

// ToDomain converts the persistence model to a domain Card.
func (m *KanbanCardModel) ToDomain() *kanban.Card {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return &kanban.Card{
		BaseEntity:     m.BaseModel.ToDomain(),
		ColumnID:       m.ColumnID,
		Position:       m.Position,
		Title:          m.Title,
		Description:    m.Description,
		DueDate:        m.DueDate,
		AssigneeID:     m.AssigneeID,
		Priority:       serviceorder.Priority(m.Priority),
		ServiceOrderID: m.ServiceOrderID,
		Tags:           tags,
	}
}

// FromDomain populates the model from a domain Card.
func (m *KanbanCardModel) FromDomain(c *kanban.Card) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.ColumnID = c.ColumnID
	m.Position = c.Position
	m.Title = c.Title
	m.Description = c.Description
	m.DueDate = c.DueDate
	m.AssigneeID = c.AssigneeID
	m.Priority = string(c.Priority)
	m.ServiceOrderID = c.ServiceOrderID
	m.Tags = c.Tags
}
