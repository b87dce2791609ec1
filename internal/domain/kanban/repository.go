package kanban

import (
	"context"

	"github.com/google/uuid"
)

// ColumnRepository stores board columns. Positions are board-wide.
type ColumnRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Column, error)
	// LockByIDs row-locks the given columns in ascending id order, so concurrent
	// movers touching the same pair of columns never deadlock
	LockByIDs(ctx context.Context, ids ...uuid.UUID) ([]Column, error)
	// LockAll serializes board-wide changes (column create, move, delete),
	// row-locks every column and returns them by position
	LockAll(ctx context.Context) ([]Column, error)
	// List returns every column by position
	List(ctx context.Context) ([]Column, error)
	Create(ctx context.Context, column *Column) error
	// Update persists title, wip limit, role and target status
	Update(ctx context.Context, column *Column) error
	SetPosition(ctx context.Context, id uuid.UUID, position int) error
	Shift(ctx context.Context, shift Shift) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CardRepository stores cards. Positions are per column.
type CardRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Card, error)
	// FindByIDForUpdate loads the card holding a row lock until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Card, error)
	// ListAll returns every card ordered by column then position
	ListAll(ctx context.Context) ([]Card, error)
	ListByColumn(ctx context.Context, columnID uuid.UUID) ([]Card, error)
	CountInColumn(ctx context.Context, columnID uuid.UUID) (int, error)
	Create(ctx context.Context, card *Card) error
	// UpdateDetails persists the editable fields, never column or position
	UpdateDetails(ctx context.Context, card *Card) error
	Place(ctx context.Context, id, columnID uuid.UUID, position int) error
	Shift(ctx context.Context, columnID uuid.UUID, shift Shift) error
	Delete(ctx context.Context, id uuid.UUID) error
}
