//go:build integration

package persistence_test

import (
	"context"
	"sync"
	"testing"
	"time"

	kanbanapp "github.com/erp/servicedesk/internal/application/kanban"
	soapp "github.com/erp/servicedesk/internal/application/serviceorder"
	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/erp/servicedesk/internal/infrastructure/migration"
	"github.com/erp/servicedesk/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type boardFixture struct {
	orders *soapp.ServiceOrderService
	board  *kanbanapp.KanbanService
	bridge *kanbanapp.AutomationBridge
}

// newPostgresBoard starts PostgreSQL, applies the SQL migrations and wires the
// services the way the server does.
func newPostgresBoard(t *testing.T) *boardFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("servicedesk_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	migrator, err := migration.New(sqlDB, "../../../migrations", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up())

	log := zap.NewNop()
	scope := persistence.NewGormTransactionScope(db, log)
	orderRepo := persistence.NewGormServiceOrderRepository(db)

	orders := soapp.NewServiceOrderService(scope, orderRepo,
		persistence.NewGormStatusHistoryRepository(db),
		persistence.NewGormPermissionGate(db), log)
	bridge := kanbanapp.NewAutomationBridge(orders, orderRepo, nil, nil, log)
	board := kanbanapp.NewKanbanService(scope,
		persistence.NewGormKanbanColumnRepository(db),
		persistence.NewGormKanbanCardRepository(db), log)
	board.SetAutomationBridge(bridge)

	return &boardFixture{orders: orders, board: board, bridge: bridge}
}

func (f *boardFixture) column(t *testing.T, title string) kanbanapp.ColumnResponse {
	t.Helper()
	board, err := f.board.GetBoard(context.Background())
	require.NoError(t, err)
	for _, c := range board.Columns {
		if c.Title == title {
			return c
		}
	}
	t.Fatalf("column %q not seeded", title)
	return kanbanapp.ColumnResponse{}
}

func (f *boardFixture) card(t *testing.T, columnID uuid.UUID, title string, orderID *uuid.UUID) *kanbanapp.CardResponse {
	t.Helper()
	card, err := f.board.CreateCard(context.Background(), kanbanapp.CreateCardRequest{
		ColumnID:       columnID,
		Title:          title,
		ServiceOrderID: orderID,
	})
	require.NoError(t, err)
	return card
}

func intPtr(v int) *int { return &v }

func TestBoard_ConcurrentMovesRespectWipLimit(t *testing.T) {
	f := newPostgresBoard(t)
	ctx := context.Background()

	todo := f.column(t, "A Fazer")
	doing := f.column(t, "Em Andamento")
	_, err := f.board.UpdateColumn(ctx, doing.ID, kanbanapp.UpdateColumnRequest{WipLimit: intPtr(1)})
	require.NoError(t, err)

	const movers = 4
	cards := make([]*kanbanapp.CardResponse, movers)
	for i := range cards {
		cards[i] = f.card(t, todo.ID, "OS concorrente", nil)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		moved    int
		rejected int
	)
	actor := uuid.New()
	for _, c := range cards {
		wg.Add(1)
		go func(cardID uuid.UUID) {
			defer wg.Done()
			_, err := f.board.MoveCard(ctx, cardID, actor, kanbanapp.MoveCardRequest{ColumnID: doing.ID, Position: intPtr(0)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				moved++
			case shared.IsCode(err, shared.CodeWipLimitExceeded):
				rejected++
			default:
				t.Errorf("unexpected move error: %v", err)
			}
		}(c.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, moved)
	assert.Equal(t, movers-1, rejected)

	board, err := f.board.GetBoard(ctx)
	require.NoError(t, err)
	for _, column := range board.Columns {
		for i, c := range column.Cards {
			assert.Equal(t, i, c.Position, "column %s is not dense", column.Title)
		}
		if column.ID == doing.ID {
			assert.Len(t, column.Cards, 1)
		}
		if column.ID == todo.ID {
			assert.Len(t, column.Cards, movers-1)
		}
	}
}

func TestBoard_ReorderPassesDeferredUniqueness(t *testing.T) {
	f := newPostgresBoard(t)
	ctx := context.Background()
	todo := f.column(t, "A Fazer")

	first := f.card(t, todo.ID, "Primeiro", nil)
	f.card(t, todo.ID, "Segundo", nil)
	last := f.card(t, todo.ID, "Terceiro", nil)

	moved, err := f.board.MoveCard(ctx, last.ID, uuid.New(), kanbanapp.MoveCardRequest{ColumnID: todo.ID, Position: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Position)

	// oversized positions clamp to the end
	moved, err = f.board.MoveCard(ctx, first.ID, uuid.New(), kanbanapp.MoveCardRequest{ColumnID: todo.ID, Position: intPtr(50)})
	require.NoError(t, err)
	assert.Equal(t, 2, moved.Position)

	col := f.column(t, "A Fazer")
	titles := make([]string, len(col.Cards))
	for i, c := range col.Cards {
		titles[i] = c.Title
	}
	assert.Equal(t, []string{"Terceiro", "Segundo", "Primeiro"}, titles)
}

func TestBoard_CompletionColumnFinalizesOrder(t *testing.T) {
	f := newPostgresBoard(t)
	ctx := context.Background()
	actor := uuid.New()

	order, err := f.orders.Create(ctx, actor, soapp.CreateServiceOrderRequest{
		AssignedUserID: actor,
		BranchID:       uuid.New(),
	})
	require.NoError(t, err)

	todo := f.column(t, "A Fazer")
	done := f.column(t, "Concluído")
	card := f.card(t, todo.ID, "OS finalizar", &order.ID)

	t.Run("order not ready rolls the move back", func(t *testing.T) {
		_, err := f.board.MoveCard(ctx, card.ID, actor, kanbanapp.MoveCardRequest{ColumnID: done.ID, Position: intPtr(0)})
		assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition), "got %v", err)

		assert.Len(t, f.column(t, "Concluído").Cards, 0)
		assert.Len(t, f.column(t, "A Fazer").Cards, 1)
	})

	t.Run("order in QA is finalized with the move", func(t *testing.T) {
		for _, status := range []serviceorder.Status{serviceorder.StatusInRepair, serviceorder.StatusAwaitingQA} {
			_, err := f.orders.ChangeStatus(ctx, order.ID, actor, soapp.ChangeStatusRequest{Status: status.String()})
			require.NoError(t, err)
		}

		_, err := f.board.MoveCard(ctx, card.ID, actor, kanbanapp.MoveCardRequest{ColumnID: done.ID, Position: intPtr(0)})
		require.NoError(t, err)
		f.bridge.Wait()

		got, err := f.orders.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, serviceorder.StatusFinished.String(), got.Status)

		history, err := f.orders.ListStatusHistory(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, history, 4)
		assert.Equal(t, serviceorder.StatusFinished.String(), history[3].NewStatus)
	})
}

func TestBoard_ConcurrentColumnCreatesStayDense(t *testing.T) {
	f := newPostgresBoard(t)
	ctx := context.Background()

	before, err := f.board.GetBoard(ctx)
	require.NoError(t, err)

	const creators = 5
	var wg sync.WaitGroup
	errs := make(chan error, creators)
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.board.CreateColumn(ctx, kanbanapp.CreateColumnRequest{Title: "Triagem"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	board, err := f.board.GetBoard(ctx)
	require.NoError(t, err)
	require.Len(t, board.Columns, len(before.Columns)+creators)
	for i, c := range board.Columns {
		assert.Equal(t, i, c.Position)
	}
}
