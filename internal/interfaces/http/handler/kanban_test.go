package handler

import (
	"net/http"
	"testing"

	kanbanapp "github.com/erp/servicedesk/internal/application/kanban"
	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/erp/servicedesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newKanbanRouter(board KanbanUseCases, userID uuid.UUID) *gin.Engine {
	h := NewKanbanHandler(board)
	router := gin.New()
	g := router.Group("/kanban", withActor(userID, uuid.New()))
	g.GET("/board", h.GetBoard)
	g.POST("/columns", h.CreateColumn)
	g.PUT("/columns/:id", h.UpdateColumn)
	g.POST("/columns/:id/move", h.MoveColumn)
	g.DELETE("/columns/:id", h.DeleteColumn)
	g.POST("/cards", h.CreateCard)
	g.PUT("/cards/:id", h.UpdateCard)
	g.POST("/cards/:id/move", h.MoveCard)
	g.DELETE("/cards/:id", h.DeleteCard)
	return router
}

func TestKanbanHandler_MoveCard(t *testing.T) {
	userID := uuid.New()
	cardID, columnID := uuid.New(), uuid.New()
	path := "/kanban/cards/" + cardID.String() + "/move"

	t.Run("passes column and position through", func(t *testing.T) {
		board := new(MockKanbanUseCases)
		board.On("MoveCard", mock.Anything, cardID, userID, mock.MatchedBy(func(req kanbanapp.MoveCardRequest) bool {
			return req.ColumnID == columnID && req.Position != nil && *req.Position == 0
		})).Return(&kanbanapp.CardResponse{ID: cardID, ColumnID: columnID, Position: 0}, nil)

		rec := performRequest(newKanbanRouter(board, userID), http.MethodPost, path, map[string]any{
			"column_id": columnID, "position": 0,
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		board.AssertExpectations(t)
	})

	t.Run("position is required", func(t *testing.T) {
		board := new(MockKanbanUseCases)

		rec := performRequest(newKanbanRouter(board, userID), http.MethodPost, path, map[string]any{"column_id": columnID})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "position", resp.Error.Details[0].Field)
	})

	errorCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"wip limit", shared.NewDomainError(shared.CodeWipLimitExceeded, "Column Em Andamento is at its WIP limit of 3"), http.StatusConflict, dto.ErrCodeWipLimitExceeded},
		{"concurrent move", shared.NewDomainError(shared.CodeConstraintViolation, "Card was moved concurrently, reload the board and retry"), http.StatusConflict, dto.ErrCodeConstraintViolation},
		{"negative position", shared.NewDomainError(shared.CodeInvalidInput, "Position cannot be negative"), http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"order gate", shared.NewDomainError(shared.CodeInvalidTransition, "Order cannot be finalized from Aguardando Avaliação"), http.StatusUnprocessableEntity, dto.ErrCodeInvalidTransition},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			board := new(MockKanbanUseCases)
			board.On("MoveCard", mock.Anything, cardID, userID, mock.Anything).Return(nil, tt.err)

			rec := performRequest(newKanbanRouter(board, userID), http.MethodPost, path, map[string]any{
				"column_id": columnID, "position": 1,
			})

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeResponse(t, rec).Error.Code)
		})
	}
}

func TestKanbanHandler_Columns(t *testing.T) {
	userID := uuid.New()
	columnID := uuid.New()

	t.Run("create", func(t *testing.T) {
		board := new(MockKanbanUseCases)
		board.On("CreateColumn", mock.Anything, mock.MatchedBy(func(req kanbanapp.CreateColumnRequest) bool {
			return req.Title == "Entregue" && req.Role == "completion_system" && req.WipLimit == nil
		})).Return(&kanbanapp.ColumnResponse{ID: columnID, Title: "Entregue", IsSystem: true}, nil)

		rec := performRequest(newKanbanRouter(board, userID), http.MethodPost, "/kanban/columns", map[string]any{
			"title": "Entregue", "role": "completion_system",
		})

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("create rejects unknown role", func(t *testing.T) {
		board := new(MockKanbanUseCases)
		rec := performRequest(newKanbanRouter(board, userID), http.MethodPost, "/kanban/columns", map[string]any{
			"title": "X", "role": "archive",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("lowering the limit below the card count", func(t *testing.T) {
		board := new(MockKanbanUseCases)
		board.On("UpdateColumn", mock.Anything, columnID, mock.Anything).
			Return(nil, shared.NewDomainError(shared.CodeWipLimitExceeded, "Column holds 4 cards, more than the new limit of 2"))

		rec := performRequest(newKanbanRouter(board, userID), http.MethodPut, "/kanban/columns/"+columnID.String(), map[string]any{"wip_limit": 2})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("move", func(t *testing.T) {
		board := new(MockKanbanUseCases)
		board.On("MoveColumn", mock.Anything, columnID, 2).Return(&kanbanapp.BoardResponse{}, nil)

		rec := performRequest(newKanbanRouter(board, userID), http.MethodPost, "/kanban/columns/"+columnID.String()+"/move", map[string]any{"position": 2})
		assert.Equal(t, http.StatusOK, rec.Code)
		board.AssertExpectations(t)
	})

	t.Run("delete non-empty", func(t *testing.T) {
		board := new(MockKanbanUseCases)
		board.On("DeleteColumn", mock.Anything, columnID).
			Return(shared.NewDomainError(shared.CodeConstraintViolation, "Column still has cards"))

		rec := performRequest(newKanbanRouter(board, userID), http.MethodDelete, "/kanban/columns/"+columnID.String(), nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestKanbanHandler_Cards(t *testing.T) {
	userID := uuid.New()
	cardID, columnID := uuid.New(), uuid.New()

	t.Run("board", func(t *testing.T) {
		board := new(MockKanbanUseCases)
		board.On("GetBoard", mock.Anything).Return(&kanbanapp.BoardResponse{
			Columns: []kanbanapp.ColumnResponse{{ID: columnID, Title: "A Fazer", Cards: []kanbanapp.CardResponse{}}},
		}, nil)

		rec := performRequest(newKanbanRouter(board, userID), http.MethodGet, "/kanban/board", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("create links an unknown order", func(t *testing.T) {
		board := new(MockKanbanUseCases)
		board.On("CreateCard", mock.Anything, mock.Anything).
			Return(nil, shared.NewDomainError(shared.CodeNotFound, "Service order not found"))

		rec := performRequest(newKanbanRouter(board, userID), http.MethodPost, "/kanban/cards", map[string]any{
			"column_id": columnID, "title": "OS 1042", "service_order_id": uuid.New(),
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		board := new(MockKanbanUseCases)
		board.On("UpdateCard", mock.Anything, cardID, mock.MatchedBy(func(req kanbanapp.UpdateCardRequest) bool {
			return req.Title != nil && *req.Title == "Trocar bateria"
		})).Return(&kanbanapp.CardResponse{ID: cardID}, nil)

		rec := performRequest(newKanbanRouter(board, userID), http.MethodPut, "/kanban/cards/"+cardID.String(), map[string]any{"title": "Trocar bateria"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		board := new(MockKanbanUseCases)
		board.On("DeleteCard", mock.Anything, cardID).Return(nil)

		rec := performRequest(newKanbanRouter(board, userID), http.MethodDelete, "/kanban/cards/"+cardID.String(), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
