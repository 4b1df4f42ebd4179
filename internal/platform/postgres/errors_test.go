package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/vocab-review/internal/platform/postgres"
	"github.com/phrazzld/vocab-review/internal/store"
	"github.com/stretchr/testify/assert"
)

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		Detail:         "Key (learner_id, word)=(...) already exists.",
		SchemaName:     "public",
		TableName:      "vocabulary_items",
		ColumnName:     "word",
		ConstraintName: "vocabulary_items_learner_id_word_key",
	}
}

type mockResult struct {
	rowsAffected int64
	err          error
}

func (m mockResult) LastInsertId() (int64, error) { return 0, m.err }
func (m mockResult) RowsAffected() (int64, error) { return m.rowsAffected, m.err }

func TestErrorPredicates(t *testing.T) {
	t.Parallel()

	codes := []string{"23505", "23503", "23514", "23502", "40001", "40P01", "42P01"}
	for _, code := range codes {
		wrapped := fmt.Errorf("query failed: %w", newPgError(code))
		assert.Equal(t, code == "23505", postgres.IsUniqueViolation(wrapped), "code %s", code)
		assert.Equal(t, code == "40001" || code == "40P01", postgres.IsConcurrencyFailure(wrapped), "code %s", code)
	}

	for _, pred := range []func(error) bool{postgres.IsUniqueViolation, postgres.IsConcurrencyFailure} {
		assert.False(t, pred(nil))
		assert.False(t, pred(errors.New("generic error")))
	}
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		result     sql.Result
		entityName string
		wantErr    bool
		errIs      error
	}{
		{name: "nil result", result: nil, wantErr: true},
		{name: "zero rows affected", result: mockResult{rowsAffected: 0}, wantErr: true, errIs: store.ErrNotFound},
		{
			name:       "zero rows affected with entity name",
			result:     mockResult{rowsAffected: 0},
			entityName: "vocabulary item",
			wantErr:    true,
			errIs:      store.ErrNotFound,
		},
		{name: "one row affected", result: mockResult{rowsAffected: 1}},
		{name: "error getting rows affected", result: mockResult{err: errors.New("rows affected error")}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := postgres.CheckRowsAffected(tt.result, tt.entityName)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		errIs  error
		errMsg string
	}{
		{name: "nil error"},
		{name: "sql.ErrNoRows", err: sql.ErrNoRows, errIs: store.ErrNotFound, errMsg: "entity not found"},
		{name: "unique violation", err: newPgError("23505"), errIs: store.ErrDuplicate, errMsg: "entity already exists"},
		{name: "foreign key violation", err: newPgError("23503"), errIs: store.ErrInvalidEntity, errMsg: "foreign key violation"},
		{name: "check constraint violation", err: newPgError("23514"), errIs: store.ErrInvalidEntity, errMsg: "check constraint violation"},
		{name: "not null violation", err: newPgError("23502"), errIs: store.ErrInvalidEntity, errMsg: "not null violation"},
		{name: "serialization failure", err: newPgError("40001"), errIs: store.ErrVersionConflict, errMsg: "version conflict"},
		{name: "deadlock", err: newPgError("40P01"), errIs: store.ErrVersionConflict, errMsg: "version conflict"},
		{name: "other postgres error", err: newPgError("42P01")},
		{name: "generic error", err: errors.New("generic error")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := postgres.MapError(tt.err)

			if tt.err == nil {
				assert.Nil(t, result)
				return
			}

			if tt.errIs == nil {
				// Unmapped errors are returned unchanged
				assert.Equal(t, tt.err, result)
				return
			}

			assert.ErrorIs(t, result, tt.errIs)
			assert.Contains(t, result.Error(), tt.errMsg)
		})
	}
}

func TestMapError_NamesViolatedObject(t *testing.T) {
	t.Parallel()

	err := postgres.MapError(newPgError("23503"))
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.Contains(t, err.Error(), "foreign key violation (vocabulary_items_learner_id_word_key)")

	err = postgres.MapError(newPgError("23502"))
	assert.Contains(t, err.Error(), "not null violation (word)")

	notNull := newPgError("23502")
	notNull.ColumnName = ""
	assert.Contains(t, postgres.MapError(notNull).Error(), "(vocabulary_items_learner_id_word_key)")
}
