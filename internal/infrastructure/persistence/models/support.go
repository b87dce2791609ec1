package models

import (
	"time"

	"github.com/google/uuid"
)

// PartModel is a stocked part consumed by service order items.
type PartModel struct {
	BaseModel
	SKU           string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name          string `gorm:"type:varchar(200);not null"`
	StockQuantity int    `gorm:"not null;default:0"`
	MinStock      int    `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (PartModel) TableName() string {
	return "parts"
}

// Purchase request statuses
const (
	PurchaseRequestPending = "pending"
)

// PurchaseRequestModel is a replenishment request raised when a part runs low.
type PurchaseRequestModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	PartID         uuid.UUID `gorm:"type:uuid;not null;index"`
	ServiceOrderID uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity       int       `gorm:"not null"`
	Status         string    `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseRequestModel) TableName() string {
	return "purchase_requests"
}

// ActivityEntryModel is one row of the activity feed.
type ActivityEntryModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	BranchID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Kind      string         `gorm:"type:varchar(60);not null"`
	Payload   map[string]any `gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ActivityEntryModel) TableName() string {
	return "activity_entries"
}

// CustomerModel holds the contact data the notifier needs.
type CustomerModel struct {
	BaseModel
	Name  string `gorm:"type:varchar(200);not null"`
	Phone string `gorm:"type:varchar(30)"`
	Email string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// UserCapabilityModel grants one capability to one user.
type UserCapabilityModel struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Capability string    `gorm:"type:varchar(60);primaryKey"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserCapabilityModel) TableName() string {
	return "user_capabilities"
}
