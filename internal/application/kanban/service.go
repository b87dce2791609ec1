package kanban

import (
	"context"

	"github.com/erp/servicedesk/internal/application/uow"
	"github.com/erp/servicedesk/internal/domain/kanban"
	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/erp/servicedesk/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KanbanService keeps card and column positions dense under concurrent writers.
//
// Lock order for every mutation is columns (ascending id), then the card, then the
// linked order. Reading the destination count after its column row is locked is
// what makes the WIP check safe against concurrent movers.
type KanbanService struct {
	scope   uow.TransactionScope
	columns kanban.ColumnRepository
	cards   kanban.CardRepository
	logger  *zap.Logger

	bridge          *AutomationBridge
	businessMetrics *telemetry.BusinessMetrics
}

// NewKanbanService creates a new KanbanService
func NewKanbanService(
	scope uow.TransactionScope,
	columns kanban.ColumnRepository,
	cards kanban.CardRepository,
	logger *zap.Logger,
) *KanbanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KanbanService{
		scope:   scope,
		columns: columns,
		cards:   cards,
		logger:  logger,
	}
}

// SetAutomationBridge sets the bridge consulted on cross-column moves
func (s *KanbanService) SetAutomationBridge(bridge *AutomationBridge) {
	s.bridge = bridge
}

// SetBusinessMetrics sets the business metrics collector
func (s *KanbanService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// GetBoard returns every column with its cards, both in position order
func (s *KanbanService) GetBoard(ctx context.Context) (*BoardResponse, error) {
	columns, err := s.columns.List(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := s.cards.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byColumn := make(map[uuid.UUID][]kanban.Card, len(columns))
	for _, card := range cards {
		byColumn[card.ColumnID] = append(byColumn[card.ColumnID], card)
	}

	board := &BoardResponse{Columns: make([]ColumnResponse, len(columns))}
	for i := range columns {
		board.Columns[i] = ToColumnResponse(&columns[i], byColumn[columns[i].ID])
	}
	return board, nil
}

// ==================== Columns ====================

// CreateColumn appends a column to the board
func (s *KanbanService) CreateColumn(ctx context.Context, req CreateColumnRequest) (*ColumnResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "kanban", "create_column")
	defer span.End()

	wip := kanban.UnlimitedWIP
	if req.WipLimit != nil {
		wip = *req.WipLimit
	}
	var target serviceorder.Status
	if req.TargetStatus != "" {
		parsed, ok := serviceorder.ParseStatus(req.TargetStatus)
		if !ok {
			err := shared.NewDomainError(shared.CodeInvalidInput, "Unknown status: "+req.TargetStatus)
			telemetry.RecordError(span, err)
			return nil, err
		}
		target = parsed
	}
	column, err := kanban.NewColumn(req.Title, wip, kanban.ColumnRole(req.Role), target)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.scope.Execute(ctx, func(tx uow.Tx) error {
		existing, err := tx.Columns().LockAll(ctx)
		if err != nil {
			return err
		}
		column.Position = len(existing)
		return tx.Columns().Create(ctx, column)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Kanban column created",
		zap.String("column_id", column.ID.String()),
		zap.String("title", column.Title),
		zap.Int("position", column.Position),
		zap.String("role", string(column.Role)),
	)
	telemetry.SetOK(span)
	resp := ToColumnResponse(column, nil)
	return &resp, nil
}

// UpdateColumn renames a column or changes its WIP limit. A limit below the
// current card count is refused.
func (s *KanbanService) UpdateColumn(ctx context.Context, columnID uuid.UUID, req UpdateColumnRequest) (*ColumnResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "kanban", "update_column")
	defer span.End()

	var (
		column *kanban.Column
		cards  []kanban.Card
	)
	err := s.scope.Execute(ctx, func(tx uow.Tx) error {
		locked, err := tx.Columns().LockByIDs(ctx, columnID)
		if err != nil {
			return err
		}
		column = &locked[0]

		if req.Title != nil {
			if err := column.Rename(*req.Title); err != nil {
				return err
			}
		}
		cards, err = tx.Cards().ListByColumn(ctx, columnID)
		if err != nil {
			return err
		}
		if req.WipLimit != nil {
			if err := column.ChangeWipLimit(*req.WipLimit, len(cards)); err != nil {
				return err
			}
		}
		return tx.Columns().Update(ctx, column)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	resp := ToColumnResponse(column, cards)
	return &resp, nil
}

// MoveColumn reorders the board. Positions past the end are clamped.
func (s *KanbanService) MoveColumn(ctx context.Context, columnID uuid.UUID, position int) (*BoardResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "kanban", "move_column")
	defer span.End()
	telemetry.SetAttributes(span,
		"column_id", columnID.String(),
		"position", position,
	)

	if position < 0 {
		err := shared.NewDomainError(shared.CodeInvalidInput, "Position cannot be negative")
		telemetry.RecordError(span, err)
		return nil, err
	}

	err := s.scope.Execute(ctx, func(tx uow.Tx) error {
		columns, err := tx.Columns().LockAll(ctx)
		if err != nil {
			return err
		}
		column := findColumn(columns, columnID)
		if column == nil {
			return shared.NewDomainError(shared.CodeNotFound, "Column not found")
		}

		newPos, err := kanban.ClampPosition(position, len(columns)-1)
		if err != nil {
			return err
		}
		shift, ok := kanban.ReorderShift(column.Position, newPos)
		if !ok {
			return nil
		}
		if err := tx.Columns().Shift(ctx, shift); err != nil {
			return err
		}
		return tx.Columns().SetPosition(ctx, column.ID, newPos)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	return s.GetBoard(ctx)
}

// DeleteColumn removes an empty column and closes the gap it leaves
func (s *KanbanService) DeleteColumn(ctx context.Context, columnID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "kanban", "delete_column")
	defer span.End()

	err := s.scope.Execute(ctx, func(tx uow.Tx) error {
		columns, err := tx.Columns().LockAll(ctx)
		if err != nil {
			return err
		}
		column := findColumn(columns, columnID)
		if column == nil {
			return shared.NewDomainError(shared.CodeNotFound, "Column not found")
		}
		count, err := tx.Cards().CountInColumn(ctx, columnID)
		if err != nil {
			return err
		}
		if count > 0 {
			return shared.NewDomainError(shared.CodeConstraintViolation, "Only empty columns can be deleted")
		}
		if err := tx.Columns().Delete(ctx, columnID); err != nil {
			return err
		}
		return tx.Columns().Shift(ctx, kanban.CloseGapShift(column.Position))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	telemetry.SetOK(span)
	return nil
}

// ==================== Cards ====================

// CreateCard appends a card to the end of a column
func (s *KanbanService) CreateCard(ctx context.Context, req CreateCardRequest) (*CardResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "kanban", "create_card")
	defer span.End()

	card, err := kanban.NewCard(req.ColumnID, kanban.CardDetails{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		AssigneeID:  req.AssigneeID,
		Priority:    serviceorder.Priority(req.Priority),
		Tags:        req.Tags,
	}, req.ServiceOrderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.scope.Execute(ctx, func(tx uow.Tx) error {
		locked, err := tx.Columns().LockByIDs(ctx, card.ColumnID)
		if err != nil {
			return err
		}
		column := &locked[0]

		if card.HasOrder() {
			exists, err := tx.Orders().Exists(ctx, *card.ServiceOrderID)
			if err != nil {
				return err
			}
			if !exists {
				return shared.NewDomainError(shared.CodeNotFound, "Service order not found")
			}
		}

		count, err := tx.Cards().CountInColumn(ctx, column.ID)
		if err != nil {
			return err
		}
		if !column.CanAccept(count) {
			return wipLimitError(column)
		}
		card.Position = count
		return tx.Cards().Create(ctx, card)
	})
	if err != nil {
		s.recordWipRejection(ctx, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	resp := ToCardResponse(card)
	return &resp, nil
}

// UpdateCard changes a card's details; position and column are untouched
func (s *KanbanService) UpdateCard(ctx context.Context, cardID uuid.UUID, req UpdateCardRequest) (*CardResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "kanban", "update_card")
	defer span.End()

	var card *kanban.Card
	err := s.scope.Execute(ctx, func(tx uow.Tx) error {
		c, err := tx.Cards().FindByIDForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		details := c.Details()
		if req.Title != nil {
			details.Title = *req.Title
		}
		if req.Description != nil {
			details.Description = *req.Description
		}
		if req.DueDate != nil {
			details.DueDate = req.DueDate
		}
		if req.AssigneeID != nil {
			details.AssigneeID = req.AssigneeID
		}
		if req.Priority != nil {
			details.Priority = serviceorder.Priority(*req.Priority)
		}
		if req.Tags != nil {
			details.Tags = req.Tags
		}
		if err := c.UpdateDetails(details); err != nil {
			return err
		}
		if err := tx.Cards().UpdateDetails(ctx, c); err != nil {
			return err
		}
		card = c
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	resp := ToCardResponse(card)
	return &resp, nil
}

// MoveCard relocates a card within its column or into another one. Moving into a
// completion column drives the linked order's transition in the same transaction.
func (s *KanbanService) MoveCard(ctx context.Context, cardID, actorID uuid.UUID, req MoveCardRequest) (*CardResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "kanban", "move_card")
	defer span.End()

	position := 0
	if req.Position != nil {
		position = *req.Position
	}
	telemetry.SetAttributes(span,
		"card_id", cardID.String(),
		"column_id", req.ColumnID.String(),
		"position", position,
	)
	if position < 0 {
		err := shared.NewDomainError(shared.CodeInvalidInput, "Position cannot be negative")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		card        *kanban.Card
		crossColumn bool
	)
	err := s.scope.Execute(ctx, func(tx uow.Tx) error {
		// Unlocked read only to learn which columns to lock.
		seen, err := tx.Cards().FindByID(ctx, cardID)
		if err != nil {
			return err
		}
		columns, err := tx.Columns().LockByIDs(ctx, seen.ColumnID, req.ColumnID)
		if err != nil {
			return err
		}
		dst := findColumn(columns, req.ColumnID)

		c, err := tx.Cards().FindByIDForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		if c.ColumnID != seen.ColumnID {
			return shared.NewDomainError(shared.CodeConstraintViolation, "Card was moved concurrently, reload the board and retry")
		}
		card = c

		if c.ColumnID == dst.ID {
			return s.reorderWithinColumn(ctx, tx, c, dst, position)
		}
		crossColumn = true
		return s.moveAcrossColumns(ctx, tx, c, dst, position, actorID)
	})
	if err != nil {
		s.recordWipRejection(ctx, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordCardMove(ctx, crossColumn)
	}
	telemetry.SetOK(span)
	resp := ToCardResponse(card)
	return &resp, nil
}

func (s *KanbanService) reorderWithinColumn(ctx context.Context, tx uow.Tx, card *kanban.Card, column *kanban.Column, position int) error {
	count, err := tx.Cards().CountInColumn(ctx, column.ID)
	if err != nil {
		return err
	}
	newPos, err := kanban.ClampPosition(position, count-1)
	if err != nil {
		return err
	}
	shift, ok := kanban.ReorderShift(card.Position, newPos)
	if !ok {
		return nil
	}
	if err := tx.Cards().Shift(ctx, column.ID, shift); err != nil {
		return err
	}
	if err := tx.Cards().Place(ctx, card.ID, column.ID, newPos); err != nil {
		return err
	}
	card.Position = newPos
	return nil
}

func (s *KanbanService) moveAcrossColumns(ctx context.Context, tx uow.Tx, card *kanban.Card, dst *kanban.Column, position int, actorID uuid.UUID) error {
	count, err := tx.Cards().CountInColumn(ctx, dst.ID)
	if err != nil {
		return err
	}
	if !dst.CanAccept(count) {
		return wipLimitError(dst)
	}
	newPos, err := kanban.ClampPosition(position, count)
	if err != nil {
		return err
	}

	if s.bridge != nil {
		if err := s.bridge.OnCardLanded(ctx, tx, card, dst, actorID); err != nil {
			return err
		}
	}

	srcID, oldPos := card.ColumnID, card.Position
	if err := tx.Cards().Shift(ctx, srcID, kanban.CloseGapShift(oldPos)); err != nil {
		return err
	}
	if err := tx.Cards().Shift(ctx, dst.ID, kanban.OpenSlotShift(newPos)); err != nil {
		return err
	}
	if err := tx.Cards().Place(ctx, card.ID, dst.ID, newPos); err != nil {
		return err
	}
	card.ColumnID, card.Position = dst.ID, newPos

	cardID := card.ID
	tx.AfterCommit("log_card_move", func(ctx context.Context) error {
		s.logger.Info("Kanban card moved",
			zap.String("card_id", cardID.String()),
			zap.String("from_column", srcID.String()),
			zap.String("to_column", dst.ID.String()),
			zap.Int("position", newPos),
		)
		return nil
	})
	return nil
}

// DeleteCard removes a card and closes the gap in its column
func (s *KanbanService) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "kanban", "delete_card")
	defer span.End()

	err := s.scope.Execute(ctx, func(tx uow.Tx) error {
		seen, err := tx.Cards().FindByID(ctx, cardID)
		if err != nil {
			return err
		}
		if _, err := tx.Columns().LockByIDs(ctx, seen.ColumnID); err != nil {
			return err
		}
		card, err := tx.Cards().FindByIDForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		if card.ColumnID != seen.ColumnID {
			return shared.NewDomainError(shared.CodeConstraintViolation, "Card was moved concurrently, reload the board and retry")
		}
		if err := tx.Cards().Delete(ctx, card.ID); err != nil {
			return err
		}
		return tx.Cards().Shift(ctx, card.ColumnID, kanban.CloseGapShift(card.Position))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	telemetry.SetOK(span)
	return nil
}

func (s *KanbanService) recordWipRejection(ctx context.Context, err error) {
	if s.businessMetrics != nil && shared.IsCode(err, shared.CodeWipLimitExceeded) {
		s.businessMetrics.RecordWipRejection(ctx)
	}
}

func wipLimitError(column *kanban.Column) error {
	return shared.NewDomainError(shared.CodeWipLimitExceeded,
		"Column "+column.Title+" is at its WIP limit")
}

func findColumn(columns []kanban.Column, id uuid.UUID) *kanban.Column {
	for i := range columns {
		if columns[i].ID == id {
			return &columns[i]
		}
	}
	return nil
}
