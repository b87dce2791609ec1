package serviceorder

import (
	"context"

	"github.com/erp/servicedesk/internal/application/uow"
	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/erp/servicedesk/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServiceOrderService is the order state machine. Every status change, manual or
// board-driven, goes through applyTransition so the transition table, history and
// stock consumption stay in one place.
type ServiceOrderService struct {
	scope   uow.TransactionScope
	orders  serviceorder.ServiceOrderRepository
	history serviceorder.StatusHistoryRepository
	gate    serviceorder.PermissionGate
	logger  *zap.Logger

	purchase        serviceorder.PurchaseAutomation
	activity        serviceorder.ActivityFeed
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics

	kanbanRequiresCapability bool
}

// NewServiceOrderService creates a new ServiceOrderService
func NewServiceOrderService(
	scope uow.TransactionScope,
	orders serviceorder.ServiceOrderRepository,
	history serviceorder.StatusHistoryRepository,
	gate serviceorder.PermissionGate,
	logger *zap.Logger,
) *ServiceOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceOrderService{
		scope:   scope,
		orders:  orders,
		history: history,
		gate:    gate,
		logger:  logger,
	}
}

// SetEventPublisher sets the publisher that receives os.* events after commit
func (s *ServiceOrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetPurchaseAutomation sets the low-stock check run after an order is finished
func (s *ServiceOrderService) SetPurchaseAutomation(purchase serviceorder.PurchaseAutomation) {
	s.purchase = purchase
}

// SetActivityFeed sets the feed that records finished orders
func (s *ServiceOrderService) SetActivityFeed(feed serviceorder.ActivityFeed) {
	s.activity = feed
}

// SetBusinessMetrics sets the business metrics collector
func (s *ServiceOrderService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetKanbanRequiresCapability makes board-driven transitions honour capability
// gated edges the same way manual ones do.
func (s *ServiceOrderService) SetKanbanRequiresCapability(required bool) {
	s.kanbanRequiresCapability = required
}

// Create opens a new order in Aguardando Avaliação with its initial history row
func (s *ServiceOrderService) Create(ctx context.Context, actorID uuid.UUID, req CreateServiceOrderRequest) (*ServiceOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "service_order", "create")
	defer span.End()

	order, entry, err := serviceorder.NewServiceOrder(serviceorder.NewOrderParams{
		CustomerID:     req.CustomerID,
		AssignedUserID: req.AssignedUserID,
		BranchID:       req.BranchID,
		Priority:       serviceorder.Priority(req.Priority),
		Tags:           req.Tags,
		BudgetValue:    req.BudgetValue,
		CreatedBy:      actorID,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, item := range req.Items {
		if _, err := order.AddItem(item.PartID, item.Description, item.Quantity, item.UnitPrice); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, order.ID.String(),
		"items_count", len(order.Items),
	)

	err = s.scope.Execute(ctx, func(tx uow.Tx) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		return tx.History().Append(ctx, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderCreated(ctx, string(order.Priority))
	}
	s.logger.Info("Service order created",
		zap.String("order_id", order.ID.String()),
		zap.String("branch_id", order.BranchID.String()),
		zap.Int("items", len(order.Items)),
	)

	telemetry.SetOK(span)
	response := ToServiceOrderResponse(order)
	return &response, nil
}

// GetByID returns an order with its items
func (s *ServiceOrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*ServiceOrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToServiceOrderResponse(order)
	return &response, nil
}

// ListStatusHistory returns the order's history, oldest first
func (s *ServiceOrderService) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]StatusHistoryResponse, error) {
	exists, err := s.orders.Exists(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Service order not found")
	}
	entries, err := s.history.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToStatusHistoryResponses(entries), nil
}

// GetByPublicToken returns the customer-facing view of an order
func (s *ServiceOrderService) GetByPublicToken(ctx context.Context, token string) (*PublicServiceOrderResponse, error) {
	if token == "" {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Service order not found")
	}
	order, err := s.orders.FindByPublicToken(ctx, token)
	if err != nil {
		return nil, err
	}
	entries, err := s.history.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	response := ToPublicServiceOrderResponse(order, entries)
	return &response, nil
}

// AddItem appends a line to a non-terminal order
func (s *ServiceOrderService) AddItem(ctx context.Context, orderID uuid.UUID, req AddOrderItemRequest) (*ServiceOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "service_order", "add_item")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, orderID.String())

	var order *serviceorder.ServiceOrder
	err := s.scope.Execute(ctx, func(tx uow.Tx) error {
		// Locked so a concurrent finalize cannot consume stock for a list that is still growing.
		o, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		item, err := o.AddItem(req.PartID, req.Description, req.Quantity, req.UnitPrice)
		if err != nil {
			return err
		}
		if err := tx.Orders().AddItem(ctx, item); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	response := ToServiceOrderResponse(order)
	return &response, nil
}

// ChangeStatus applies a manual transition. Capability-gated edges require the
// actor to hold the capability; the edge itself is checked against the locked row.
func (s *ServiceOrderService) ChangeStatus(ctx context.Context, orderID, actorID uuid.UUID, req ChangeStatusRequest) (*ServiceOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "service_order", "change_status")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		"target_status", req.Status,
	)

	target, ok := serviceorder.ParseStatus(req.Status)
	if !ok {
		err := shared.NewDomainError(shared.CodeInvalidInput, "Unknown status: "+req.Status)
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Resolved before the transaction so no row lock is held across the gate lookup.
	granted, err := s.grantedCapabilities(ctx, actorID, target)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var order *serviceorder.ServiceOrder
	err = s.scope.Execute(ctx, func(tx uow.Tx) error {
		o, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		edge, err := o.ResolveEdge(target)
		if err != nil {
			return err
		}
		if edge.RequiredCapability != "" && !granted[edge.RequiredCapability] {
			return shared.NewDomainError(shared.CodePermissionDenied,
				"Capability "+edge.RequiredCapability+" is required to move an order to "+target.String())
		}
		if err := s.applyTransition(ctx, tx, o, edge, actorID, serviceorder.SourceManual); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrOrderStatus, order.Status.String())
	telemetry.SetOK(span)
	response := ToServiceOrderResponse(order)
	return &response, nil
}

// UpdateStatusFromKanban is the board entry point. It joins tx when one is given,
// so a card move and the order transition commit or roll back together; with a nil
// tx it opens its own. An order already at target is left untouched.
func (s *ServiceOrderService) UpdateStatusFromKanban(ctx context.Context, tx uow.Tx, orderID uuid.UUID, target serviceorder.Status, actorID uuid.UUID) (bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "service_order", "update_status_from_kanban")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		"target_status", target.String(),
	)

	var changed bool
	run := func(tx uow.Tx) error {
		o, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == target {
			return nil
		}
		edge, err := o.ResolveEdge(target)
		if err != nil {
			return err
		}
		if s.kanbanRequiresCapability && edge.RequiredCapability != "" {
			ok, err := s.gate.HasCapability(ctx, actorID, edge.RequiredCapability)
			if err != nil {
				return err
			}
			if !ok {
				return shared.NewDomainError(shared.CodePermissionDenied,
					"Capability "+edge.RequiredCapability+" is required to move an order to "+target.String())
			}
		}
		if err := s.applyTransition(ctx, tx, o, edge, actorID, serviceorder.SourceKanban); err != nil {
			return err
		}
		changed = true
		return nil
	}

	var err error
	if tx != nil {
		err = run(tx)
	} else {
		err = s.scope.Execute(ctx, run)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return false, err
	}
	telemetry.SetAttribute(span, "changed", changed)
	telemetry.SetOK(span)
	return changed, nil
}

// applyTransition writes the status, the history row and, on Finalizado, the stock
// decrements inside tx. Everything else is queued to run after commit.
func (s *ServiceOrderService) applyTransition(
	ctx context.Context,
	tx uow.Tx,
	order *serviceorder.ServiceOrder,
	edge serviceorder.Edge,
	actorID uuid.UUID,
	source serviceorder.TransitionSource,
) error {
	entry, err := order.ApplyTransition(edge, actorID, source)
	if err != nil {
		return err
	}
	if err := tx.Orders().UpdateStatus(ctx, order); err != nil {
		return err
	}
	if err := tx.History().Append(ctx, entry); err != nil {
		return err
	}

	if edge.To == serviceorder.StatusFinished {
		for _, item := range order.StockConsumingItems() {
			if err := tx.Stock().DecrementStock(ctx, *item.PartID, item.Quantity); err != nil {
				s.logger.Warn("Stock decrement failed, rolling back finalization",
					zap.String("order_id", order.ID.String()),
					zap.String("part_id", item.PartID.String()),
					zap.Int("quantity", item.Quantity),
					zap.Error(err),
				)
				return err
			}
		}
		s.afterCommitFinished(tx, order, actorID)
	}

	s.afterCommitPublish(tx, order)

	orderID := order.ID
	tx.AfterCommit("log_transition", func(ctx context.Context) error {
		s.logger.Info("Service order status changed",
			zap.String("order_id", orderID.String()),
			zap.String("from", edge.From.String()),
			zap.String("to", edge.To.String()),
			zap.String("actor_id", actorID.String()),
			zap.String("source", string(source)),
		)
		if s.businessMetrics != nil {
			s.businessMetrics.RecordStatusTransition(ctx, edge.From.String(), edge.To.String(), string(source))
		}
		return nil
	})
	return nil
}

func (s *ServiceOrderService) afterCommitFinished(tx uow.Tx, order *serviceorder.ServiceOrder, actorID uuid.UUID) {
	orderID, branchID := order.ID, order.BranchID
	if s.purchase != nil {
		tx.AfterCommit("purchase_low_stock_check", func(ctx context.Context) error {
			return s.purchase.CheckAndRequestPartsForOrder(ctx, orderID)
		})
	}
	if s.activity != nil {
		payload := map[string]any{
			"service_order_id": orderID.String(),
			"items_total":      order.ItemsTotal().String(),
			"items":            len(order.Items),
		}
		tx.AfterCommit("activity_feed", func(ctx context.Context) error {
			return s.activity.RecordActivity(ctx, actorID, branchID, serviceorder.ActivityOrderFinished, payload)
		})
	}
}

// afterCommitPublish hands the pending domain events to the publisher once the
// transaction has committed.
func (s *ServiceOrderService) afterCommitPublish(tx uow.Tx, order *serviceorder.ServiceOrder) {
	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	tx.AfterCommit("publish_events", func(ctx context.Context) error {
		return s.eventPublisher.Publish(ctx, events...)
	})
}

// grantedCapabilities resolves the capability any edge into target may require.
func (s *ServiceOrderService) grantedCapabilities(ctx context.Context, actorID uuid.UUID, target serviceorder.Status) (map[string]bool, error) {
	capability := serviceorder.CapabilityRequiredFor(target)
	if capability == "" {
		return nil, nil
	}
	ok, err := s.gate.HasCapability(ctx, actorID, capability)
	if err != nil {
		return nil, err
	}
	return map[string]bool{capability: ok}, nil
}
