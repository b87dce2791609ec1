package handler

import (
	"context"

	soapp "github.com/erp/servicedesk/internal/application/serviceorder"
	"github.com/erp/servicedesk/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ServiceOrderUseCases is the application surface the order endpoints need
type ServiceOrderUseCases interface {
	Create(ctx context.Context, actorID uuid.UUID, req soapp.CreateServiceOrderRequest) (*soapp.ServiceOrderResponse, error)
	GetByID(ctx context.Context, orderID uuid.UUID) (*soapp.ServiceOrderResponse, error)
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]soapp.StatusHistoryResponse, error)
	GetByPublicToken(ctx context.Context, token string) (*soapp.PublicServiceOrderResponse, error)
	AddItem(ctx context.Context, orderID uuid.UUID, req soapp.AddOrderItemRequest) (*soapp.ServiceOrderResponse, error)
	ChangeStatus(ctx context.Context, orderID, actorID uuid.UUID, req soapp.ChangeStatusRequest) (*soapp.ServiceOrderResponse, error)
}

// ServiceOrderHandler handles service order endpoints
type ServiceOrderHandler struct {
	BaseHandler
	orders ServiceOrderUseCases
}

// NewServiceOrderHandler creates a new ServiceOrderHandler
func NewServiceOrderHandler(orders ServiceOrderUseCases) *ServiceOrderHandler {
	return &ServiceOrderHandler{orders: orders}
}

// Create opens a service order in Aguardando Avaliação.
// POST /service-orders
func (h *ServiceOrderHandler) Create(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	var req soapp.CreateServiceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	if req.BranchID == uuid.Nil {
		req.BranchID, _ = middleware.GetBranchID(c)
	}

	order, err := h.orders.Create(c.Request.Context(), actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// GetByID returns an order with its items.
// GET /service-orders/:id
func (h *ServiceOrderHandler) GetByID(c *gin.Context) {
	orderID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// ListHistory returns the status history oldest first.
// GET /service-orders/:id/history
func (h *ServiceOrderHandler) ListHistory(c *gin.Context) {
	orderID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	history, err := h.orders.ListStatusHistory(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}

// AddItem appends a line to a non-terminal order.
// POST /service-orders/:id/items
func (h *ServiceOrderHandler) AddItem(c *gin.Context) {
	orderID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req soapp.AddOrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	order, err := h.orders.AddItem(c.Request.Context(), orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// ChangeStatus applies a manual transition.
// PUT /service-orders/:id/status
func (h *ServiceOrderHandler) ChangeStatus(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req soapp.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	order, err := h.orders.ChangeStatus(c.Request.Context(), orderID, actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// GetPublic serves the customer status page. No authentication.
// GET /public/service-orders/:token
func (h *ServiceOrderHandler) GetPublic(c *gin.Context) {
	token := c.Param("token")
	if token == "" || len(token) > 64 {
		h.BadRequest(c, "Invalid token")
		return
	}

	order, err := h.orders.GetByPublicToken(c.Request.Context(), token)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}
