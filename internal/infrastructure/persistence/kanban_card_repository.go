package persistence

import (
	"context"

	"github.com/erp/servicedesk/internal/domain/kanban"
	"github.com/erp/servicedesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormKanbanCardRepository implements kanban.CardRepository using GORM
type GormKanbanCardRepository struct {
	db *gorm.DB
}

// NewGormKanbanCardRepository creates a new GormKanbanCardRepository
func NewGormKanbanCardRepository(db *gorm.DB) *GormKanbanCardRepository {
	return &GormKanbanCardRepository{db: db}
}

// FindByID finds a card by its ID
func (r *GormKanbanCardRepository) FindByID(ctx context.Context, id uuid.UUID) (*kanban.Card, error) {
	var model models.KanbanCardModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a card with SELECT ... FOR UPDATE
func (r *GormKanbanCardRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*kanban.Card, error) {
	var model models.KanbanCardModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// ListAll returns every card ordered by column then position
func (r *GormKanbanCardRepository) ListAll(ctx context.Context) ([]kanban.Card, error) {
	return r.list(r.db.WithContext(ctx).Order("column_id ASC").Order("position ASC"))
}

// ListByColumn returns a column's cards by position
func (r *GormKanbanCardRepository) ListByColumn(ctx context.Context, columnID uuid.UUID) ([]kanban.Card, error) {
	return r.list(r.db.WithContext(ctx).Where("column_id = ?", columnID).Order("position ASC"))
}

func (r *GormKanbanCardRepository) list(q *gorm.DB) ([]kanban.Card, error) {
	var rows []models.KanbanCardModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	cards := make([]kanban.Card, len(rows))
	for i := range rows {
		cards[i] = *rows[i].ToDomain()
	}
	return cards, nil
}

// CountInColumn counts the cards currently in a column
func (r *GormKanbanCardRepository) CountInColumn(ctx context.Context, columnID uuid.UUID) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.KanbanCardModel{}).
		Where("column_id = ?", columnID).
		Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return int(count), nil
}

// Create inserts a card
func (r *GormKanbanCardRepository) Create(ctx context.Context, card *kanban.Card) error {
	model := &models.KanbanCardModel{}
	model.FromDomain(card)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// UpdateDetails persists the editable fields, leaving column and position alone
func (r *GormKanbanCardRepository) UpdateDetails(ctx context.Context, card *kanban.Card) error {
	model := &models.KanbanCardModel{}
	model.FromDomain(card)
	result := r.db.WithContext(ctx).Model(model).
		Select("title", "description", "due_date", "assignee_id", "priority", "tags", "updated_at").
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

// Place writes a card's column and position
func (r *GormKanbanCardRepository) Place(ctx context.Context, id, columnID uuid.UUID, position int) error {
	return translateError(r.db.WithContext(ctx).Model(&models.KanbanCardModel{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"column_id": columnID, "position": position}).Error)
}

// Shift adjusts positions inside one column
func (r *GormKanbanCardRepository) Shift(ctx context.Context, columnID uuid.UUID, shift kanban.Shift) error {
	q := r.db.WithContext(ctx).Model(&models.KanbanCardModel{}).
		Where("column_id = ? AND position >= ?", columnID, shift.From)
	if shift.To != kanban.OpenEnded {
		q = q.Where("position <= ?", shift.To)
	}
	return translateError(q.UpdateColumn("position", gorm.Expr("position + ?", shift.Delta)).Error)
}

// Delete removes a card
func (r *GormKanbanCardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.KanbanCardModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

var _ kanban.CardRepository = (*GormKanbanCardRepository)(nil)
