// Package uow defines the unit of work shared by the service order state machine
// and the board reindexer, so a card move and the order transition it triggers
// commit or roll back together.
package uow

import (
	"context"

	"github.com/erp/servicedesk/internal/domain/kanban"
	"github.com/erp/servicedesk/internal/domain/serviceorder"
)

// TransactionScope runs work inside one database transaction.
// If fn returns an error, the transaction is rolled back and no after-commit
// effect runs. If fn succeeds, the transaction is committed and then the
// registered effects run.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(tx Tx) error) error
}

// Tx gives access to repositories bound to the current transaction.
type Tx interface {
	Orders() serviceorder.ServiceOrderRepository
	History() serviceorder.StatusHistoryRepository
	Stock() serviceorder.StockLedger
	Columns() kanban.ColumnRepository
	Cards() kanban.CardRepository

	// AfterCommit registers a best-effort effect. It runs only after a successful
	// commit; its error or panic is logged and never changes the outcome.
	AfterCommit(name string, fn Effect)
}
