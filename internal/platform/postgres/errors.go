package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/vocab-review/internal/store"
)

// PostgreSQL SQLSTATE codes the stores react to.
const (
	uniqueViolationCode      = "23505"
	foreignKeyViolationCode  = "23503"
	checkViolationCode       = "23514"
	notNullViolationCode     = "23502"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
)

// constraintKinds names the integrity violations that make an entity invalid.
var constraintKinds = map[string]string{
	foreignKeyViolationCode: "foreign key violation",
	checkViolationCode:      "check constraint violation",
	notNullViolationCode:    "not null violation",
}

// MapError maps a database error to the matching store error, wrapping the
// original. Errors without a mapping are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	pgErr := pgError(err)
	if pgErr == nil {
		return err
	}

	switch {
	case pgErr.Code == uniqueViolationCode:
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case IsConcurrencyFailure(err):
		return fmt.Errorf("%w: %v", store.ErrVersionConflict, err)
	}

	if kind, ok := constraintKinds[pgErr.Code]; ok {
		return fmt.Errorf("%w: %s (%s): %v", store.ErrInvalidEntity, kind, violatedObject(pgErr), err)
	}

	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	pgErr := pgError(err)
	return pgErr != nil && pgErr.Code == uniqueViolationCode
}

// IsConcurrencyFailure reports whether err is a serialization failure or
// deadlock. Both abort the transaction, which may be retried from the start.
func IsConcurrencyFailure(err error) bool {
	pgErr := pgError(err)
	return pgErr != nil &&
		(pgErr.Code == serializationFailureCode || pgErr.Code == deadlockDetectedCode)
}

// CheckRowsAffected returns store.ErrNotFound when result touched no rows.
func CheckRowsAffected(result sql.Result, entityName string) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if entityName == "" {
			return store.ErrNotFound
		}
		return fmt.Errorf("%w: %s not found", store.ErrNotFound, entityName)
	}

	return nil
}

func pgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

// violatedObject names the constraint, or the column for NOT NULL violations.
func violatedObject(pgErr *pgconn.PgError) string {
	if pgErr.Code == notNullViolationCode && pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	return pgErr.ConstraintName
}
