package persistence

import (
	"context"
	"time"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPermissionGate answers capability checks from the user_capabilities table
type GormPermissionGate struct {
	db *gorm.DB
}

// NewGormPermissionGate creates a new GormPermissionGate
func NewGormPermissionGate(db *gorm.DB) *GormPermissionGate {
	return &GormPermissionGate{db: db}
}

// HasCapability reports whether the user was granted the capability
func (g *GormPermissionGate) HasCapability(ctx context.Context, userID uuid.UUID, capability string) (bool, error) {
	var count int64
	if err := g.db.WithContext(ctx).Model(&models.UserCapabilityModel{}).
		Where("user_id = ? AND capability = ?", userID, capability).
		Count(&count).Error; err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Grant gives a capability to a user; granting twice is a no-op
func (g *GormPermissionGate) Grant(ctx context.Context, userID uuid.UUID, capability string) error {
	return translateError(g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserCapabilityModel{UserID: userID, Capability: capability, CreatedAt: time.Now()}).Error)
}

var _ serviceorder.PermissionGate = (*GormPermissionGate)(nil)
