package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// PostgreSQL error codes (SQLSTATE) that MapError translates. See
// https://www.postgresql.org/docs/current/errcodes-appendix.html.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
	restrictViolationCode   = "23001"
)

// constraintErrors maps named constraints to the store error they signal.
var constraintErrors = map[string]error{
	"users_email_key":    store.ErrEmailExists,
	"group_members_pkey": store.ErrMemberExists,
}

// MapError translates driver errors into store errors, keeping the original
// error in the chain.
//
// Named constraints are checked first so that, for example, a duplicate
// email surfaces as store.ErrEmailExists rather than the generic
// store.ErrDuplicate. Remaining integrity violations are grouped by SQLSTATE:
// unique violations become ErrDuplicate, and foreign key, check and not null
// violations become ErrInvalidEntity. A foreign key violation usually means
// a referenced task or user was deleted by a concurrent request. Any other
// error is returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	// Errors that did not come from the server (closed connections,
	// cancelled contexts) carry no SQLSTATE.
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	if specific, ok := constraintErrors[pgErr.ConstraintName]; ok {
		return fmt.Errorf("%w: %v", specific, err)
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case foreignKeyViolationCode, restrictViolationCode:
		return fmt.Errorf("%w: foreign key violation (%s): %v",
			store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case checkViolationCode:
		return fmt.Errorf("%w: check constraint violation (%s): %v",
			store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case notNullViolationCode:
		return fmt.Errorf("%w: not null violation (%s): %v",
			store.ErrInvalidEntity, pgErr.ColumnName, err)
	}

	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// CheckRowsAffected returns notFound when result touched no rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
