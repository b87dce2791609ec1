package persistence

import (
	"context"
	"sort"

	"github.com/erp/servicedesk/internal/domain/kanban"
	"github.com/erp/servicedesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormKanbanColumnRepository implements kanban.ColumnRepository using GORM
type GormKanbanColumnRepository struct {
	db *gorm.DB
}

// NewGormKanbanColumnRepository creates a new GormKanbanColumnRepository
func NewGormKanbanColumnRepository(db *gorm.DB) *GormKanbanColumnRepository {
	return &GormKanbanColumnRepository{db: db}
}

// FindByID finds a column by its ID
func (r *GormKanbanColumnRepository) FindByID(ctx context.Context, id uuid.UUID) (*kanban.Column, error) {
	var model models.KanbanColumnModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// LockByIDs locks the distinct ids in ascending order and returns the columns in
// that order. Any missing id yields NOT_FOUND.
func (r *GormKanbanColumnRepository) LockByIDs(ctx context.Context, ids ...uuid.UUID) ([]kanban.Column, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].String() < unique[j].String() })

	columns := make([]kanban.Column, 0, len(unique))
	for _, id := range unique {
		var model models.KanbanColumnModel
		if err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error; err != nil {
			return nil, translateError(err)
		}
		columns = append(columns, *model.ToDomain())
	}
	return columns, nil
}

// boardLockKey identifies the board in pg_advisory_xact_lock
const boardLockKey int64 = 0x6b616e62616e

// LockAll takes the board lock, then locks every column in id order (the same
// order LockByIDs uses) and returns them by position. Row locks alone cannot
// cover a column another transaction is about to insert, so on PostgreSQL a
// transaction-scoped advisory lock serializes the board-wide operations.
func (r *GormKanbanColumnRepository) LockAll(ctx context.Context) ([]kanban.Column, error) {
	if r.db.Dialector.Name() == "postgres" {
		if err := r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", boardLockKey).Error; err != nil {
			return nil, translateError(err)
		}
	}
	return r.list(ctx, true)
}

// List returns every column by position
func (r *GormKanbanColumnRepository) List(ctx context.Context) ([]kanban.Column, error) {
	return r.list(ctx, false)
}

func (r *GormKanbanColumnRepository) list(ctx context.Context, lock bool) ([]kanban.Column, error) {
	var rows []models.KanbanColumnModel
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"}).Order("id ASC")
	} else {
		q = q.Order("position ASC")
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	columns := make([]kanban.Column, len(rows))
	for i := range rows {
		columns[i] = *rows[i].ToDomain()
	}
	if lock {
		sort.Slice(columns, func(i, j int) bool { return columns[i].Position < columns[j].Position })
	}
	return columns, nil
}

// Create inserts a column
func (r *GormKanbanColumnRepository) Create(ctx context.Context, column *kanban.Column) error {
	model := &models.KanbanColumnModel{}
	model.FromDomain(column)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// Update persists the non-positional fields of a column
func (r *GormKanbanColumnRepository) Update(ctx context.Context, column *kanban.Column) error {
	result := r.db.WithContext(ctx).Model(&models.KanbanColumnModel{}).
		Where("id = ?", column.ID).
		Updates(map[string]any{
			"title":         column.Title,
			"wip_limit":     column.WipLimit,
			"role":          string(column.Role),
			"target_status": column.TargetStatus.String(),
			"is_system":     column.IsSystem(),
			"updated_at":    column.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

// SetPosition writes a column's board position
func (r *GormKanbanColumnRepository) SetPosition(ctx context.Context, id uuid.UUID, position int) error {
	return translateError(r.db.WithContext(ctx).Model(&models.KanbanColumnModel{}).
		Where("id = ?", id).
		UpdateColumn("position", position).Error)
}

// Shift adjusts board positions inside the shift range
func (r *GormKanbanColumnRepository) Shift(ctx context.Context, shift kanban.Shift) error {
	q := r.db.WithContext(ctx).Model(&models.KanbanColumnModel{}).Where("position >= ?", shift.From)
	if shift.To != kanban.OpenEnded {
		q = q.Where("position <= ?", shift.To)
	}
	return translateError(q.UpdateColumn("position", gorm.Expr("position + ?", shift.Delta)).Error)
}

// Delete removes a column
func (r *GormKanbanColumnRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.KanbanColumnModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

var _ kanban.ColumnRepository = (*GormKanbanColumnRepository)(nil)
