package persistence

import (
	"context"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormServiceOrderRepository implements serviceorder.ServiceOrderRepository using GORM
type GormServiceOrderRepository struct {
	db *gorm.DB
}

// NewGormServiceOrderRepository creates a new GormServiceOrderRepository
func NewGormServiceOrderRepository(db *gorm.DB) *GormServiceOrderRepository {
	return &GormServiceOrderRepository{db: db}
}

func (r *GormServiceOrderRepository) findOne(ctx context.Context, lock bool, query string, args ...any) (*serviceorder.ServiceOrder, error) {
	var model models.ServiceOrderModel
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Where(query, args...).First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByID loads an order with its items
func (r *GormServiceOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*serviceorder.ServiceOrder, error) {
	return r.findOne(ctx, false, "id = ?", id)
}

// FindByIDForUpdate loads an order with SELECT ... FOR UPDATE
func (r *GormServiceOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*serviceorder.ServiceOrder, error) {
	return r.findOne(ctx, true, "id = ?", id)
}

// FindByPublicToken loads an order by its customer-facing token
func (r *GormServiceOrderRepository) FindByPublicToken(ctx context.Context, token string) (*serviceorder.ServiceOrder, error) {
	return r.findOne(ctx, false, "public_token = ?", token)
}

// Exists reports whether an order with the id exists
func (r *GormServiceOrderRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ServiceOrderModel{}).
		Where("id = ?", id).Count(&count).Error; err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Create inserts the order and its items
func (r *GormServiceOrderRepository) Create(ctx context.Context, order *serviceorder.ServiceOrder) error {
	model := &models.ServiceOrderModel{}
	model.FromDomain(order)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// UpdateStatus persists status and updated_at only
func (r *GormServiceOrderRepository) UpdateStatus(ctx context.Context, order *serviceorder.ServiceOrder) error {
	result := r.db.WithContext(ctx).Model(&models.ServiceOrderModel{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":     order.Status.String(),
			"updated_at": order.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

// AddItem inserts one order line
func (r *GormServiceOrderRepository) AddItem(ctx context.Context, item *serviceorder.OrderItem) error {
	model := &models.OrderItemModel{}
	model.FromDomain(*item)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

var _ serviceorder.ServiceOrderRepository = (*GormServiceOrderRepository)(nil)
