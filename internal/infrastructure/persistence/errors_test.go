package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		code string
		same bool
	}{
		{name: "nil", err: nil},
		{name: "record not found", err: gorm.ErrRecordNotFound, code: shared.CodeNotFound},
		{name: "wrapped record not found", err: fmt.Errorf("find card: %w", gorm.ErrRecordNotFound), code: shared.CodeNotFound},
		{name: "duplicated key", err: gorm.ErrDuplicatedKey, code: shared.CodeConstraintViolation},
		{name: "foreign key", err: gorm.ErrForeignKeyViolated, code: shared.CodeConstraintViolation},
		{
			name: "deferred unique violation",
			err:  &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "uq_kanban_cards_column_position"`},
			code: shared.CodeConstraintViolation,
		},
		{name: "serialization failure is not an integrity error", err: &pgconn.PgError{Code: "40001"}, same: true},
		{name: "domain errors pass through", err: shared.NewDomainError(shared.CodeWipLimitExceeded, "full"), code: shared.CodeWipLimitExceeded, same: true},
		{name: "other errors pass through", err: plain, same: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			if tt.same {
				assert.Same(t, tt.err, got)
			}
			if tt.code != "" {
				assert.True(t, shared.IsCode(got, tt.code), "got %v", got)
			}
		})
	}
}
