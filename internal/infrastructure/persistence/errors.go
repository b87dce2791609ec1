package persistence

import (
	"errors"

	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL integrity violation class (23xxx), see
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const pgIntegrityClass = "23"

// translateError maps store errors onto domain errors. Errors already carrying a
// domain code pass through untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := shared.AsDomainError(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return shared.NewDomainError(shared.CodeConstraintViolation, err.Error())
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == pgIntegrityClass {
		return shared.NewDomainError(shared.CodeConstraintViolation, pgErr.Message)
	}
	return err
}
