package persistence

import (
	"context"
	"time"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormPurchaseAutomation raises pending purchase requests for parts of an order
// that dropped to or below their minimum stock.
type GormPurchaseAutomation struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormPurchaseAutomation creates a new GormPurchaseAutomation
func NewGormPurchaseAutomation(db *gorm.DB, logger *zap.Logger) *GormPurchaseAutomation {
	return &GormPurchaseAutomation{db: db, logger: logger}
}

// CheckAndRequestPartsForOrder inspects every part referenced by the order.
// A part that already has a pending request is skipped.
func (a *GormPurchaseAutomation) CheckAndRequestPartsForOrder(ctx context.Context, orderID uuid.UUID) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parts []models.PartModel
		err := tx.Model(&models.PartModel{}).
			Where("id IN (?)", tx.Model(&models.OrderItemModel{}).
				Select("part_id").
				Where("service_order_id = ? AND part_id IS NOT NULL", orderID)).
			Where("stock_quantity <= min_stock").
			Find(&parts).Error
		if err != nil {
			return translateError(err)
		}

		for _, part := range parts {
			var pending int64
			if err := tx.Model(&models.PurchaseRequestModel{}).
				Where("part_id = ? AND status = ?", part.ID, models.PurchaseRequestPending).
				Count(&pending).Error; err != nil {
				return translateError(err)
			}
			if pending > 0 {
				continue
			}

			request := &models.PurchaseRequestModel{
				ID:             uuid.New(),
				PartID:         part.ID,
				ServiceOrderID: orderID,
				Quantity:       reorderQuantity(part),
				Status:         models.PurchaseRequestPending,
				CreatedAt:      time.Now(),
			}
			if err := tx.Create(request).Error; err != nil {
				return translateError(err)
			}
			a.logger.Info("Purchase request raised for low stock part",
				zap.String("part_id", part.ID.String()),
				zap.String("sku", part.SKU),
				zap.Int("stock", part.StockQuantity),
				zap.Int("min_stock", part.MinStock),
				zap.Int("quantity", request.Quantity),
			)
		}
		return nil
	})
}

// reorderQuantity tops the part back up to twice its minimum
func reorderQuantity(part models.PartModel) int {
	qty := part.MinStock*2 - part.StockQuantity
	if qty < 1 {
		qty = 1
	}
	return qty
}

var _ serviceorder.PurchaseAutomation = (*GormPurchaseAutomation)(nil)
