package persistence

import (
	"context"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStatusHistoryRepository implements serviceorder.StatusHistoryRepository using GORM.
// Rows are only ever inserted.
type GormStatusHistoryRepository struct {
	db *gorm.DB
}

// NewGormStatusHistoryRepository creates a new GormStatusHistoryRepository
func NewGormStatusHistoryRepository(db *gorm.DB) *GormStatusHistoryRepository {
	return &GormStatusHistoryRepository{db: db}
}

// Append inserts one history entry
func (r *GormStatusHistoryRepository) Append(ctx context.Context, entry *serviceorder.StatusHistoryEntry) error {
	model := &models.StatusHistoryModel{}
	model.FromDomain(entry)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// ListByOrder returns an order's history oldest first
func (r *GormStatusHistoryRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]serviceorder.StatusHistoryEntry, error) {
	var rows []models.StatusHistoryModel
	if err := r.db.WithContext(ctx).
		Where("service_order_id = ?", orderID).
		Order("changed_at ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	entries := make([]serviceorder.StatusHistoryEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

var _ serviceorder.StatusHistoryRepository = (*GormStatusHistoryRepository)(nil)
