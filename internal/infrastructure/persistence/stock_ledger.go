package persistence

import (
	"context"
	"fmt"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/erp/servicedesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockLedger implements serviceorder.StockLedger over the parts table.
// Bind it to a transaction handle to take part in that transaction.
type GormStockLedger struct {
	db *gorm.DB
}

// NewGormStockLedger creates a new GormStockLedger
func NewGormStockLedger(db *gorm.DB) *GormStockLedger {
	return &GormStockLedger{db: db}
}

// DecrementStock subtracts quantity with a guarded update, so stock never goes
// negative even without an explicit lock on the part row.
func (l *GormStockLedger) DecrementStock(ctx context.Context, partID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Stock decrement must be positive")
	}
	result := l.db.WithContext(ctx).Model(&models.PartModel{}).
		Where("id = ? AND stock_quantity >= ?", partID, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := l.db.WithContext(ctx).Model(&models.PartModel{}).Where("id = ?", partID).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count == 0 {
		return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Part %s not found", partID))
	}
	return shared.NewDomainError(shared.CodeConstraintViolation,
		fmt.Sprintf("Insufficient stock for part %s (requested %d)", partID, quantity))
}

// StockOf returns the current stock of a part
func (l *GormStockLedger) StockOf(ctx context.Context, partID uuid.UUID) (int, error) {
	var part models.PartModel
	if err := l.db.WithContext(ctx).Select("stock_quantity").First(&part, "id = ?", partID).Error; err != nil {
		return 0, translateError(err)
	}
	return part.StockQuantity, nil
}

// CountLowStock returns how many parts sit at or below their minimum stock.
// Parts without a minimum are not counted.
func (l *GormStockLedger) CountLowStock(ctx context.Context) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&models.PartModel{}).
		Where("min_stock > 0 AND stock_quantity <= min_stock").
		Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

var _ serviceorder.StockLedger = (*GormStockLedger)(nil)
