package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	kanbanapp "github.com/erp/servicedesk/internal/application/kanban"
	soapp "github.com/erp/servicedesk/internal/application/serviceorder"
	"github.com/erp/servicedesk/internal/interfaces/http/dto"
	"github.com/erp/servicedesk/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type MockServiceOrderUseCases struct {
	mock.Mock
}

func (m *MockServiceOrderUseCases) Create(ctx context.Context, actorID uuid.UUID, req soapp.CreateServiceOrderRequest) (*soapp.ServiceOrderResponse, error) {
	args := m.Called(ctx, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*soapp.ServiceOrderResponse), args.Error(1)
}

func (m *MockServiceOrderUseCases) GetByID(ctx context.Context, orderID uuid.UUID) (*soapp.ServiceOrderResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*soapp.ServiceOrderResponse), args.Error(1)
}

func (m *MockServiceOrderUseCases) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]soapp.StatusHistoryResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]soapp.StatusHistoryResponse), args.Error(1)
}

func (m *MockServiceOrderUseCases) GetByPublicToken(ctx context.Context, token string) (*soapp.PublicServiceOrderResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*soapp.PublicServiceOrderResponse), args.Error(1)
}

func (m *MockServiceOrderUseCases) AddItem(ctx context.Context, orderID uuid.UUID, req soapp.AddOrderItemRequest) (*soapp.ServiceOrderResponse, error) {
	args := m.Called(ctx, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*soapp.ServiceOrderResponse), args.Error(1)
}

func (m *MockServiceOrderUseCases) ChangeStatus(ctx context.Context, orderID, actorID uuid.UUID, req soapp.ChangeStatusRequest) (*soapp.ServiceOrderResponse, error) {
	args := m.Called(ctx, orderID, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*soapp.ServiceOrderResponse), args.Error(1)
}

type MockKanbanUseCases struct {
	mock.Mock
}

func (m *MockKanbanUseCases) GetBoard(ctx context.Context) (*kanbanapp.BoardResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kanbanapp.BoardResponse), args.Error(1)
}

func (m *MockKanbanUseCases) CreateColumn(ctx context.Context, req kanbanapp.CreateColumnRequest) (*kanbanapp.ColumnResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kanbanapp.ColumnResponse), args.Error(1)
}

func (m *MockKanbanUseCases) UpdateColumn(ctx context.Context, columnID uuid.UUID, req kanbanapp.UpdateColumnRequest) (*kanbanapp.ColumnResponse, error) {
	args := m.Called(ctx, columnID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kanbanapp.ColumnResponse), args.Error(1)
}

func (m *MockKanbanUseCases) MoveColumn(ctx context.Context, columnID uuid.UUID, position int) (*kanbanapp.BoardResponse, error) {
	args := m.Called(ctx, columnID, position)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kanbanapp.BoardResponse), args.Error(1)
}

func (m *MockKanbanUseCases) DeleteColumn(ctx context.Context, columnID uuid.UUID) error {
	args := m.Called(ctx, columnID)
	return args.Error(0)
}

func (m *MockKanbanUseCases) CreateCard(ctx context.Context, req kanbanapp.CreateCardRequest) (*kanbanapp.CardResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kanbanapp.CardResponse), args.Error(1)
}

func (m *MockKanbanUseCases) UpdateCard(ctx context.Context, cardID uuid.UUID, req kanbanapp.UpdateCardRequest) (*kanbanapp.CardResponse, error) {
	args := m.Called(ctx, cardID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kanbanapp.CardResponse), args.Error(1)
}

func (m *MockKanbanUseCases) MoveCard(ctx context.Context, cardID, actorID uuid.UUID, req kanbanapp.MoveCardRequest) (*kanbanapp.CardResponse, error) {
	args := m.Called(ctx, cardID, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kanbanapp.CardResponse), args.Error(1)
}

func (m *MockKanbanUseCases) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	args := m.Called(ctx, cardID)
	return args.Error(0)
}

var (
	_ ServiceOrderUseCases = (*MockServiceOrderUseCases)(nil)
	_ KanbanUseCases       = (*MockKanbanUseCases)(nil)
)

// withActor stands in for JWTAuth
func withActor(userID, branchID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTUserIDKey, userID)
		c.Set(middleware.JWTBranchIDKey, branchID)
		c.Next()
	}
}

func performRequest(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}
