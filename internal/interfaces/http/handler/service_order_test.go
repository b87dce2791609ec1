package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	soapp "github.com/erp/servicedesk/internal/application/serviceorder"
	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/erp/servicedesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newServiceOrderRouter(orders ServiceOrderUseCases, userID, branchID uuid.UUID) *gin.Engine {
	h := NewServiceOrderHandler(orders)
	router := gin.New()
	authed := router.Group("/service-orders", withActor(userID, branchID))
	authed.POST("", h.Create)
	authed.GET("/:id", h.GetByID)
	authed.GET("/:id/history", h.ListHistory)
	authed.POST("/:id/items", h.AddItem)
	authed.PUT("/:id/status", h.ChangeStatus)
	router.GET("/public/service-orders/:token", h.GetPublic)
	router.PUT("/anonymous/:id/status", h.ChangeStatus)
	return router
}

func TestServiceOrderHandler_Create(t *testing.T) {
	userID, branchID := uuid.New(), uuid.New()
	assignee := uuid.New()

	t.Run("defaults branch to the caller's", func(t *testing.T) {
		orders := new(MockServiceOrderUseCases)
		orders.On("Create", mock.Anything, userID, mock.MatchedBy(func(req soapp.CreateServiceOrderRequest) bool {
			return req.AssignedUserID == assignee &&
				req.BranchID == branchID &&
				req.BudgetValue.StringFixed(2) == "150.50" &&
				len(req.Items) == 1 && req.Items[0].Quantity == 2
		})).Return(&soapp.ServiceOrderResponse{ID: uuid.New(), Status: "Aguardando Avaliação"}, nil)

		rec := performRequest(newServiceOrderRouter(orders, userID, branchID), http.MethodPost, "/service-orders", map[string]any{
			"assigned_user_id": assignee,
			"budget_value":     "150.50",
			"priority":         "high",
			"items":            []map[string]any{{"description": "Troca de tela", "quantity": 2, "unit_price": "75.25"}},
		})

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, decodeResponse(t, rec).Success)
		orders.AssertExpectations(t)
	})

	t.Run("validation errors list the fields", func(t *testing.T) {
		orders := new(MockServiceOrderUseCases)

		rec := performRequest(newServiceOrderRouter(orders, userID, branchID), http.MethodPost, "/service-orders", map[string]any{
			"priority": "whenever",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidInput, resp.Error.Code)
		fields := make([]string, 0, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"assigned_user_id", "priority"}, fields)
		orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed json", func(t *testing.T) {
		orders := new(MockServiceOrderUseCases)

		rec := performRequest(newServiceOrderRouter(orders, userID, branchID), http.MethodPost, "/service-orders", `{"assigned_user_id":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		assert.Equal(t, dto.ErrCodeInvalidInput, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})
}

func TestServiceOrderHandler_ChangeStatus(t *testing.T) {
	userID, branchID := uuid.New(), uuid.New()
	orderID := uuid.New()
	path := "/service-orders/" + orderID.String() + "/status"

	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		contains string
	}{
		{
			name:   "invalid transition is 422",
			err:    shared.NewDomainError(shared.CodeInvalidTransition, "Cannot move from Finalizado to Em Reparo"),
			status: http.StatusUnprocessableEntity,
			code:   dto.ErrCodeInvalidTransition,
		},
		{
			name:   "missing capability is 403",
			err:    shared.NewDomainError(shared.CodePermissionDenied, "QA approval required"),
			status: http.StatusForbidden,
			code:   dto.ErrCodePermissionDenied,
		},
		{
			name:   "unknown order is 404",
			err:    shared.NewDomainError(shared.CodeNotFound, "Service order not found"),
			status: http.StatusNotFound,
			code:   dto.ErrCodeNotFound,
		},
		{
			name:     "infrastructure failure is 500 without details",
			err:      errors.New("pq: connection reset by peer"),
			status:   http.StatusInternalServerError,
			code:     dto.ErrCodeInternal,
			contains: "unexpected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(MockServiceOrderUseCases)
			orders.On("ChangeStatus", mock.Anything, orderID, userID, soapp.ChangeStatusRequest{Status: "Em Reparo"}).
				Return(nil, tt.err)

			rec := performRequest(newServiceOrderRouter(orders, userID, branchID), http.MethodPut, path, map[string]string{"status": "Em Reparo"})

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			if tt.contains != "" {
				assert.Contains(t, resp.Error.Message, tt.contains)
				assert.NotContains(t, resp.Error.Message, "pq:")
			}
		})
	}

	t.Run("success", func(t *testing.T) {
		orders := new(MockServiceOrderUseCases)
		orders.On("ChangeStatus", mock.Anything, orderID, userID, soapp.ChangeStatusRequest{Status: "Em Reparo"}).
			Return(&soapp.ServiceOrderResponse{ID: orderID, Status: "Em Reparo"}, nil)

		rec := performRequest(newServiceOrderRouter(orders, userID, branchID), http.MethodPut, path, map[string]string{"status": "Em Reparo"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeResponse(t, rec).Success)
	})

	t.Run("requires an authenticated actor", func(t *testing.T) {
		orders := new(MockServiceOrderUseCases)

		rec := performRequest(newServiceOrderRouter(orders, userID, branchID), http.MethodPut,
			"/anonymous/"+orderID.String()+"/status", map[string]string{"status": "Em Reparo"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		orders.AssertNotCalled(t, "ChangeStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestServiceOrderHandler_Queries(t *testing.T) {
	userID, branchID := uuid.New(), uuid.New()
	orderID := uuid.New()

	t.Run("bad id", func(t *testing.T) {
		orders := new(MockServiceOrderUseCases)
		rec := performRequest(newServiceOrderRouter(orders, userID, branchID), http.MethodGet, "/service-orders/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get by id", func(t *testing.T) {
		orders := new(MockServiceOrderUseCases)
		orders.On("GetByID", mock.Anything, orderID).Return(&soapp.ServiceOrderResponse{ID: orderID}, nil)

		rec := performRequest(newServiceOrderRouter(orders, userID, branchID), http.MethodGet, "/service-orders/"+orderID.String(), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("history", func(t *testing.T) {
		orders := new(MockServiceOrderUseCases)
		orders.On("ListStatusHistory", mock.Anything, orderID).Return([]soapp.StatusHistoryResponse{
			{ID: uuid.New(), NewStatus: "Aguardando Avaliação", ChangedAt: time.Now()},
		}, nil)

		rec := performRequest(newServiceOrderRouter(orders, userID, branchID), http.MethodGet, "/service-orders/"+orderID.String()+"/history", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		data, ok := decodeResponse(t, rec).Data.([]any)
		require.True(t, ok)
		assert.Len(t, data, 1)
	})

	t.Run("public page needs no actor", func(t *testing.T) {
		orders := new(MockServiceOrderUseCases)
		orders.On("GetByPublicToken", mock.Anything, "abc123").Return(&soapp.PublicServiceOrderResponse{Status: "Em Reparo"}, nil)

		rec := performRequest(newServiceOrderRouter(orders, userID, branchID), http.MethodGet, "/public/service-orders/abc123", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("add item to finished order", func(t *testing.T) {
		orders := new(MockServiceOrderUseCases)
		orders.On("AddItem", mock.Anything, orderID, mock.Anything).
			Return(nil, shared.NewDomainError(shared.CodeInvalidTransition, "Items cannot change after the order is finished"))

		rec := performRequest(newServiceOrderRouter(orders, userID, branchID), http.MethodPost,
			"/service-orders/"+orderID.String()+"/items", map[string]any{"quantity": 1, "unit_price": "10"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
