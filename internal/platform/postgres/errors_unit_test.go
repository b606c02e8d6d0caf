package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantMsg string
	}{
		{name: "no_rows", err: sql.ErrNoRows, wantIs: store.ErrNotFound},
		{
			name:   "email_taken",
			err:    &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_email_key"},
			wantIs: store.ErrEmailExists,
		},
		{
			name:   "member_exists",
			err:    &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "group_members_pkey"},
			wantIs: store.ErrMemberExists,
		},
		{
			name:   "other_unique",
			err:    &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "something_key"},
			wantIs: store.ErrDuplicate,
		},
		{
			name:    "foreign_key",
			err:     &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "tasks_prev_fkey"},
			wantIs:  store.ErrInvalidEntity,
			wantMsg: "tasks_prev_fkey",
		},
		{
			name:   "restrict",
			err:    &pgconn.PgError{Code: restrictViolationCode},
			wantIs: store.ErrInvalidEntity,
		},
		{
			name:    "check",
			err:     &pgconn.PgError{Code: checkViolationCode, ConstraintName: "tasks_cost_check"},
			wantIs:  store.ErrInvalidEntity,
			wantMsg: "check constraint violation",
		},
		{
			name:    "not_null",
			err:     &pgconn.PgError{Code: notNullViolationCode, ColumnName: "title"},
			wantIs:  store.ErrInvalidEntity,
			wantMsg: "title",
		},
		{
			name:   "wrapped_pg_error",
			err:    fmt.Errorf("exec: %w", &pgconn.PgError{Code: uniqueViolationCode}),
			wantIs: store.ErrDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			require.Error(t, got)
			assert.ErrorIs(t, got, tt.wantIs)
			if tt.wantMsg != "" {
				assert.Contains(t, got.Error(), tt.wantMsg)
			}
		})
	}

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, MapError(nil))
	})

	t.Run("passthrough", func(t *testing.T) {
		plain := errors.New("connection reset")
		assert.Same(t, plain, MapError(plain))

		unknown := &pgconn.PgError{Code: "99999"}
		assert.Equal(t, error(unknown), MapError(unknown))
	})
}

func TestViolationPredicates(t *testing.T) {
	unique := fmt.Errorf("ctx: %w", &pgconn.PgError{Code: uniqueViolationCode})
	fk := &pgconn.PgError{Code: foreignKeyViolationCode}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(errors.New("x")))
}

func TestCheckRowsAffected(t *testing.T) {
	assert.ErrorIs(t, CheckRowsAffected(sqlmock.NewResult(0, 0), store.ErrTaskNotFound), store.ErrTaskNotFound)
	assert.NoError(t, CheckRowsAffected(sqlmock.NewResult(0, 1), store.ErrTaskNotFound))
	assert.Error(t, CheckRowsAffected(nil, store.ErrTaskNotFound))
	assert.ErrorContains(t,
		CheckRowsAffected(sqlmock.NewErrorResult(errors.New("driver")), store.ErrTaskNotFound),
		"failed to get rows affected")
}
