package serviceorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockCustomerDirectory struct {
	mock.Mock
}

func (m *MockCustomerDirectory) FindContact(ctx context.Context, customerID uuid.UUID) (*serviceorder.CustomerContact, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*serviceorder.CustomerContact), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, address, template string, variables map[string]string) error {
	args := m.Called(ctx, address, template, variables)
	return args.Error(0)
}

// memoryIdempotency is a map-backed store; MarkProcessed reports true the first time.
type memoryIdempotency struct {
	seen map[string]bool
	err  error
}

func (s *memoryIdempotency) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *memoryIdempotency) IsProcessed(ctx context.Context, key string) (bool, error) {
	return s.seen[key], s.err
}

func (s *memoryIdempotency) Release(ctx context.Context, key string) error {
	delete(s.seen, key)
	return s.err
}

func (s *memoryIdempotency) Close() error { return nil }

type otherEvent struct {
	shared.BaseDomainEvent
}

func newStatusEvent(t *testing.T, customerID *uuid.UUID) *serviceorder.StatusUpdatedEvent {
	t.Helper()
	order, _, err := serviceorder.NewServiceOrder(serviceorder.NewOrderParams{
		CustomerID:     customerID,
		AssignedUserID: uuid.New(),
		BranchID:       uuid.New(),
		BudgetValue:    decimal.Zero,
	})
	require.NoError(t, err)
	edge, err := order.ResolveEdge(serviceorder.StatusInRepair)
	require.NoError(t, err)
	_, err = order.ApplyTransition(edge, order.AssignedUserID, serviceorder.SourceManual)
	require.NoError(t, err)

	events := order.GetDomainEvents()
	return events[len(events)-1].(*serviceorder.StatusUpdatedEvent)
}

func TestStatusNotificationDispatcher_EventTypes(t *testing.T) {
	d := NewStatusNotificationDispatcher(nil, nil, nil, 0, zap.NewNop())
	assert.Equal(t, []string{serviceorder.EventTypeStatusUpdated}, d.EventTypes())
}

func TestStatusNotificationDispatcher_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("sends once per event", func(t *testing.T) {
		customerID := uuid.New()
		event := newStatusEvent(t, &customerID)

		customers := new(MockCustomerDirectory)
		customers.On("FindContact", ctx, customerID).Return(&serviceorder.CustomerContact{
			CustomerID: customerID, Name: "Maria", Phone: "+5511999990000",
		}, nil).Once()
		notifier := new(MockNotifier)
		notifier.On("Notify", ctx, "+5511999990000", serviceorder.TemplateStatusUpdated,
			mock.MatchedBy(func(vars map[string]string) bool {
				return vars["customer_name"] == "Maria" &&
					vars["old_status"] == serviceorder.StatusAwaitingEvaluation.String() &&
					vars["new_status"] == serviceorder.StatusInRepair.String() &&
					vars["public_token"] == event.Order.PublicToken
			})).Return(nil).Once()

		d := NewStatusNotificationDispatcher(customers, notifier, &memoryIdempotency{seen: map[string]bool{}}, time.Hour, zap.NewNop())

		require.NoError(t, d.Handle(ctx, event))
		require.NoError(t, d.Handle(ctx, event))

		customers.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("order without customer is skipped", func(t *testing.T) {
		event := newStatusEvent(t, nil)
		customers := new(MockCustomerDirectory)
		notifier := new(MockNotifier)
		d := NewStatusNotificationDispatcher(customers, notifier, nil, 0, zap.NewNop())

		require.NoError(t, d.Handle(ctx, event))

		customers.AssertNotCalled(t, "FindContact", mock.Anything, mock.Anything)
		notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("falls back to email and sends when the store is down", func(t *testing.T) {
		customerID := uuid.New()
		event := newStatusEvent(t, &customerID)
		customers := new(MockCustomerDirectory)
		customers.On("FindContact", ctx, customerID).Return(&serviceorder.CustomerContact{
			CustomerID: customerID, Name: "João", Email: "joao@example.com",
		}, nil)
		notifier := new(MockNotifier)
		notifier.On("Notify", ctx, "joao@example.com", serviceorder.TemplateStatusUpdated, mock.Anything).Return(nil)
		store := &memoryIdempotency{seen: map[string]bool{}, err: errors.New("redis: connection refused")}

		d := NewStatusNotificationDispatcher(customers, notifier, store, 0, zap.NewNop())

		require.NoError(t, d.Handle(ctx, event))
		notifier.AssertExpectations(t)
	})

	t.Run("notifier failure is returned", func(t *testing.T) {
		customerID := uuid.New()
		event := newStatusEvent(t, &customerID)
		customers := new(MockCustomerDirectory)
		customers.On("FindContact", ctx, customerID).Return(&serviceorder.CustomerContact{
			CustomerID: customerID, Phone: "+5511988887777",
		}, nil)
		notifier := new(MockNotifier)
		notifier.On("Notify", ctx, "+5511988887777", serviceorder.TemplateStatusUpdated, mock.Anything).
			Return(errors.New("gateway timeout"))

		d := NewStatusNotificationDispatcher(customers, notifier, nil, 0, zap.NewNop())

		err := d.Handle(ctx, event)
		assert.ErrorContains(t, err, "gateway timeout")
	})

	t.Run("failed send is retried on redelivery", func(t *testing.T) {
		customerID := uuid.New()
		event := newStatusEvent(t, &customerID)
		customers := new(MockCustomerDirectory)
		customers.On("FindContact", ctx, customerID).Return(&serviceorder.CustomerContact{
			CustomerID: customerID, Phone: "+5511977776666",
		}, nil)
		notifier := new(MockNotifier)
		notifier.On("Notify", ctx, "+5511977776666", serviceorder.TemplateStatusUpdated, mock.Anything).
			Return(errors.New("gateway timeout")).Once()
		notifier.On("Notify", ctx, "+5511977776666", serviceorder.TemplateStatusUpdated, mock.Anything).
			Return(nil).Once()
		store := &memoryIdempotency{seen: map[string]bool{}}

		d := NewStatusNotificationDispatcher(customers, notifier, store, time.Hour, zap.NewNop())

		assert.Error(t, d.Handle(ctx, event))
		assert.False(t, store.seen["notify:"+event.EventID().String()])

		require.NoError(t, d.Handle(ctx, event))
		assert.True(t, store.seen["notify:"+event.EventID().String()])

		// delivered now, so a third delivery is dropped
		require.NoError(t, d.Handle(ctx, event))
		notifier.AssertNumberOfCalls(t, "Notify", 2)
	})

	t.Run("failed contact lookup releases the claim", func(t *testing.T) {
		customerID := uuid.New()
		event := newStatusEvent(t, &customerID)
		customers := new(MockCustomerDirectory)
		customers.On("FindContact", ctx, customerID).Return(nil, errors.New("db down"))
		store := &memoryIdempotency{seen: map[string]bool{}}

		d := NewStatusNotificationDispatcher(customers, new(MockNotifier), store, time.Hour, zap.NewNop())

		assert.ErrorContains(t, d.Handle(ctx, event), "db down")
		assert.Empty(t, store.seen)
	})

	t.Run("rejects other events", func(t *testing.T) {
		d := NewStatusNotificationDispatcher(nil, nil, nil, 0, zap.NewNop())

		err := d.Handle(ctx, &otherEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent("os.other", serviceorder.AggregateTypeServiceOrder, uuid.New()),
		})
		assert.Error(t, err)
	})
}

var _ shared.IdempotencyStore = (*memoryIdempotency)(nil)
