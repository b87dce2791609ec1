package kanban

import (
	"time"

	"github.com/erp/servicedesk/internal/domain/kanban"
	"github.com/google/uuid"
)

// ==================== Column DTOs ====================

// CreateColumnRequest represents a request to append a column to the board.
// A nil WipLimit means unlimited.
type CreateColumnRequest struct {
	Title        string `json:"title" binding:"required,min=1,max=100"`
	WipLimit     *int   `json:"wip_limit" binding:"omitempty,min=-1"`
	Role         string `json:"role" binding:"omitempty,oneof=normal completion_system"`
	TargetStatus string `json:"target_status"`
}

// UpdateColumnRequest represents a partial column update
type UpdateColumnRequest struct {
	Title    *string `json:"title" binding:"omitempty,min=1,max=100"`
	WipLimit *int    `json:"wip_limit" binding:"omitempty,min=-1"`
}

// MoveRequest moves a column to a board position
type MoveRequest struct {
	Position *int `json:"position" binding:"required"`
}

// ColumnResponse represents a column with its cards
type ColumnResponse struct {
	ID           uuid.UUID      `json:"id"`
	Title        string         `json:"title"`
	Position     int            `json:"position"`
	WipLimit     int            `json:"wip_limit"`
	Role         string         `json:"role"`
	TargetStatus *string        `json:"target_status,omitempty"`
	IsSystem     bool           `json:"is_system"`
	CardCount    int            `json:"card_count"`
	Cards        []CardResponse `json:"cards"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// BoardResponse is the whole board, columns and cards in position order
type BoardResponse struct {
	Columns []ColumnResponse `json:"columns"`
}

// ==================== Card DTOs ====================

// CreateCardRequest represents a request to add a card at the end of a column
type CreateCardRequest struct {
	ColumnID       uuid.UUID  `json:"column_id" binding:"required"`
	Title          string     `json:"title" binding:"required,min=1,max=200"`
	Description    string     `json:"description" binding:"max=2000"`
	DueDate        *time.Time `json:"due_date"`
	AssigneeID     *uuid.UUID `json:"assignee_id"`
	Priority       string     `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	ServiceOrderID *uuid.UUID `json:"service_order_id"`
	Tags           []string   `json:"tags" binding:"omitempty,max=20,dive,max=50"`
}

// UpdateCardRequest represents a partial card update. Position and column only
// change through MoveCard.
type UpdateCardRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	DueDate     *time.Time `json:"due_date"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`
	Priority    *string    `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	Tags        []string   `json:"tags" binding:"omitempty,max=20,dive,max=50"`
}

// MoveCardRequest moves a card to a column and position
type MoveCardRequest struct {
	ColumnID uuid.UUID `json:"column_id" binding:"required"`
	Position *int      `json:"position" binding:"required"`
}

// CardResponse represents a card in API responses
type CardResponse struct {
	ID             uuid.UUID  `json:"id"`
	ColumnID       uuid.UUID  `json:"column_id"`
	Position       int        `json:"position"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	AssigneeID     *uuid.UUID `json:"assignee_id,omitempty"`
	Priority       string     `json:"priority"`
	ServiceOrderID *uuid.UUID `json:"service_order_id,omitempty"`
	Tags           []string   `json:"tags"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ==================== Mappers ====================

// ToColumnResponse converts a column and its cards to a response DTO
func ToColumnResponse(column *kanban.Column, cards []kanban.Card) ColumnResponse {
	resp := ColumnResponse{
		ID:        column.ID,
		Title:     column.Title,
		Position:  column.Position,
		WipLimit:  column.WipLimit,
		Role:      string(column.Role),
		IsSystem:  column.IsSystem(),
		CardCount: len(cards),
		Cards:     make([]CardResponse, len(cards)),
		CreatedAt: column.CreatedAt,
		UpdatedAt: column.UpdatedAt,
	}
	if column.TargetStatus != "" {
		target := column.TargetStatus.String()
		resp.TargetStatus = &target
	}
	for i := range cards {
		resp.Cards[i] = ToCardResponse(&cards[i])
	}
	return resp
}

// ToCardResponse converts a domain Card to a response DTO
func ToCardResponse(card *kanban.Card) CardResponse {
	tags := card.Tags
	if tags == nil {
		tags = []string{}
	}
	return CardResponse{
		ID:             card.ID,
		ColumnID:       card.ColumnID,
		Position:       card.Position,
		Title:          card.Title,
		Description:    card.Description,
		DueDate:        card.DueDate,
		AssigneeID:     card.AssigneeID,
		Priority:       string(card.Priority),
		ServiceOrderID: card.ServiceOrderID,
		Tags:           tags,
		CreatedAt:      card.CreatedAt,
		UpdatedAt:      card.UpdatedAt,
	}
}
