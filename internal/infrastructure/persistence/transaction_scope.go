package persistence

import (
	"context"

	"github.com/erp/servicedesk/internal/application/uow"
	"github.com/erp/servicedesk/internal/domain/kanban"
	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormTransactionScope implements uow.TransactionScope using GORM transactions.
// Effects registered through Tx.AfterCommit run after the commit returns.
type GormTransactionScope struct {
	db             *gorm.DB
	logger         *zap.Logger
	onEffectFailed func(ctx context.Context, failed int)
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, logger *zap.Logger) *GormTransactionScope {
	return &GormTransactionScope{db: db, logger: logger}
}

// SetEffectFailureHook registers a callback invoked with the number of after-commit
// effects that failed in one Execute call.
func (s *GormTransactionScope) SetEffectFailureHook(fn func(ctx context.Context, failed int)) {
	s.onEffectFailed = fn
}

// Execute runs fn within a database transaction.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(tx uow.Tx) error) error {
	effects := &uow.Effects{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{tx: tx, effects: effects})
	})
	if err != nil {
		effects.Discard()
		return translateError(err)
	}
	detached := context.WithoutCancel(ctx)
	if failed := effects.Run(detached, s.logger); failed > 0 && s.onEffectFailed != nil {
		s.onEffectFailed(detached, failed)
	}
	return nil
}

// gormTx provides access to all repositories within a transaction.
type gormTx struct {
	tx      *gorm.DB
	effects *uow.Effects
}

func (t *gormTx) Orders() serviceorder.ServiceOrderRepository {
	return NewGormServiceOrderRepository(t.tx)
}

func (t *gormTx) History() serviceorder.StatusHistoryRepository {
	return NewGormStatusHistoryRepository(t.tx)
}

func (t *gormTx) Stock() serviceorder.StockLedger {
	return NewGormStockLedger(t.tx)
}

func (t *gormTx) Columns() kanban.ColumnRepository {
	return NewGormKanbanColumnRepository(t.tx)
}

func (t *gormTx) Cards() kanban.CardRepository {
	return NewGormKanbanCardRepository(t.tx)
}

func (t *gormTx) AfterCommit(name string, fn uow.Effect) {
	t.effects.Add(name, fn)
}

// Ensure GormTransactionScope implements TransactionScope
var _ uow.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTx implements Tx
var _ uow.Tx = (*gormTx)(nil)
