package persistence

import (
	"context"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerDirectory reads customer contact data
type GormCustomerDirectory struct {
	db *gorm.DB
}

// NewGormCustomerDirectory creates a new GormCustomerDirectory
func NewGormCustomerDirectory(db *gorm.DB) *GormCustomerDirectory {
	return &GormCustomerDirectory{db: db}
}

// FindContact returns the contact details of a customer
func (d *GormCustomerDirectory) FindContact(ctx context.Context, customerID uuid.UUID) (*serviceorder.CustomerContact, error) {
	var model models.CustomerModel
	if err := d.db.WithContext(ctx).First(&model, "id = ?", customerID).Error; err != nil {
		return nil, translateError(err)
	}
	return &serviceorder.CustomerContact{
		CustomerID: model.ID,
		Name:       model.Name,
		Phone:      model.Phone,
		Email:      model.Email,
	}, nil
}

var _ serviceorder.CustomerDirectory = (*GormCustomerDirectory)(nil)
