package persistence

import (
	"context"
	"time"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormActivityFeed appends to the activity_entries table
type GormActivityFeed struct {
	db *gorm.DB
}

// NewGormActivityFeed creates a new GormActivityFeed
func NewGormActivityFeed(db *gorm.DB) *GormActivityFeed {
	return &GormActivityFeed{db: db}
}

// RecordActivity appends one entry
func (f *GormActivityFeed) RecordActivity(ctx context.Context, userID, branchID uuid.UUID, kind string, payload map[string]any) error {
	entry := &models.ActivityEntryModel{
		ID:        uuid.New(),
		UserID:    userID,
		BranchID:  branchID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	return translateError(f.db.WithContext(ctx).Create(entry).Error)
}

var _ serviceorder.ActivityFeed = (*GormActivityFeed)(nil)
