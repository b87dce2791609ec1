package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Test", uuid.New())}
}

type testHandler struct {
	eventTypes []string
	err        error
	panics     bool

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	h.mu.Unlock()
	if h.panics {
		panic("handler exploded")
	}
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_SynchronousBeforeStart(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), 0, 0)
	status := &testHandler{eventTypes: []string{"os.status.updated"}}
	all := &testHandler{}
	bus.Subscribe(status)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("os.status.updated"),
		newTestEvent("board.rebuilt"),
	))

	assert.Equal(t, 1, status.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_ErrorsAndPanicsAreIsolated(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), 1, 1)
	failing := &testHandler{eventTypes: []string{"x"}, err: errors.New("smtp down")}
	panicking := &testHandler{eventTypes: []string{"x"}, panics: true}
	healthy := &testHandler{eventTypes: []string{"x"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	assert.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_AsyncDrainOnStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), 2, 64)
	handler := &testHandler{eventTypes: []string{"x"}}
	bus.Subscribe(handler)
	require.NoError(t, bus.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 50; i++ {
		require.NoError(t, bus.Publish(ctx, newTestEvent("x")))
	}
	cancel()

	stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, bus.Stop(stopCtx))
	assert.Equal(t, 50, handler.count())

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))
	assert.Equal(t, 51, handler.count())
}

func TestInMemoryEventBus_RestartAfterStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), 1, 4)
	handler := &testHandler{eventTypes: []string{"x"}}
	bus.Subscribe(handler)

	for round := 0; round < 2; round++ {
		require.NoError(t, bus.Start(context.Background()))
		require.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))
		require.NoError(t, bus.Stop(context.Background()))
	}
	assert.Equal(t, 2, handler.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), 0, 0)
	handler := &testHandler{eventTypes: []string{"a", "b"}}
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("a"), newTestEvent("b")))
	assert.Zero(t, handler.count())
}
