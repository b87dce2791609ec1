package handler

import (
	"context"

	kanbanapp "github.com/erp/servicedesk/internal/application/kanban"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// KanbanUseCases is the application surface the board endpoints need
type KanbanUseCases interface {
	GetBoard(ctx context.Context) (*kanbanapp.BoardResponse, error)
	CreateColumn(ctx context.Context, req kanbanapp.CreateColumnRequest) (*kanbanapp.ColumnResponse, error)
	UpdateColumn(ctx context.Context, columnID uuid.UUID, req kanbanapp.UpdateColumnRequest) (*kanbanapp.ColumnResponse, error)
	MoveColumn(ctx context.Context, columnID uuid.UUID, position int) (*kanbanapp.BoardResponse, error)
	DeleteColumn(ctx context.Context, columnID uuid.UUID) error
	CreateCard(ctx context.Context, req kanbanapp.CreateCardRequest) (*kanbanapp.CardResponse, error)
	UpdateCard(ctx context.Context, cardID uuid.UUID, req kanbanapp.UpdateCardRequest) (*kanbanapp.CardResponse, error)
	MoveCard(ctx context.Context, cardID, actorID uuid.UUID, req kanbanapp.MoveCardRequest) (*kanbanapp.CardResponse, error)
	DeleteCard(ctx context.Context, cardID uuid.UUID) error
}

// KanbanHandler handles board, column and card endpoints
type KanbanHandler struct {
	BaseHandler
	board KanbanUseCases
}

// NewKanbanHandler creates a new KanbanHandler
func NewKanbanHandler(board KanbanUseCases) *KanbanHandler {
	return &KanbanHandler{board: board}
}

// GetBoard returns every column with its cards, both in position order.
// GET /kanban/board
func (h *KanbanHandler) GetBoard(c *gin.Context) {
	board, err := h.board.GetBoard(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, board)
}

// CreateColumn appends a column.
// POST /kanban/columns
func (h *KanbanHandler) CreateColumn(c *gin.Context) {
	var req kanbanapp.CreateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	column, err := h.board.CreateColumn(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, column)
}

// UpdateColumn changes a column's title or WIP limit.
// PUT /kanban/columns/:id
func (h *KanbanHandler) UpdateColumn(c *gin.Context) {
	columnID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req kanbanapp.UpdateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	column, err := h.board.UpdateColumn(c.Request.Context(), columnID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, column)
}

// MoveColumn moves a column to a board position and returns the new board.
// POST /kanban/columns/:id/move
func (h *KanbanHandler) MoveColumn(c *gin.Context) {
	columnID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req kanbanapp.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	board, err := h.board.MoveColumn(c.Request.Context(), columnID, *req.Position)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, board)
}

// DeleteColumn removes an empty column.
// DELETE /kanban/columns/:id
func (h *KanbanHandler) DeleteColumn(c *gin.Context) {
	columnID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.board.DeleteColumn(c.Request.Context(), columnID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// CreateCard appends a card to a column.
// POST /kanban/cards
func (h *KanbanHandler) CreateCard(c *gin.Context) {
	var req kanbanapp.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	card, err := h.board.CreateCard(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, card)
}

// UpdateCard edits card details. Column and position are ignored here.
// PUT /kanban/cards/:id
func (h *KanbanHandler) UpdateCard(c *gin.Context) {
	cardID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req kanbanapp.UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	card, err := h.board.UpdateCard(c.Request.Context(), cardID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, card)
}

// MoveCard moves a card within or across columns. Landing in a completion
// column transitions the linked order in the same transaction.
// POST /kanban/cards/:id/move
func (h *KanbanHandler) MoveCard(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	cardID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req kanbanapp.MoveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	card, err := h.board.MoveCard(c.Request.Context(), cardID, actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, card)
}

// DeleteCard removes a card and closes the gap in its column.
// DELETE /kanban/cards/:id
func (h *KanbanHandler) DeleteCard(c *gin.Context) {
	cardID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.board.DeleteCard(c.Request.Context(), cardID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
