package postgres

import (
	"cmp"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-fsrs/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// foreignKeyViolationCode is the PostgreSQL error code for foreign key violations
	foreignKeyViolationCode = "23503"

	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"

	// serializationFailureCode is raised when concurrent transactions conflict
	serializationFailureCode = "40001"

	// lockNotAvailableCode is raised by FOR UPDATE NOWAIT and lock_timeout
	lockNotAvailableCode = "55P03"
)

// pgErrorKinds maps the SQLSTATE codes the stores can raise to store sentinels.
var pgErrorKinds = map[string]struct {
	sentinel error
	label    string
}{
	uniqueViolationCode:      {store.ErrDuplicate, "unique violation"},
	foreignKeyViolationCode:  {store.ErrInvalidEntity, "foreign key violation"},
	checkViolationCode:       {store.ErrInvalidEntity, "check constraint violation"},
	notNullViolationCode:     {store.ErrInvalidEntity, "not null violation"},
	serializationFailureCode: {store.ErrVersionConflict, "serialization failure"},
	lockNotAvailableCode:     {store.ErrLockNotAcquired, "lock not available"},
}

// MapError maps a database error to the store error taxonomy, keeping the
// driver text. Errors without a mapping are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	kind, ok := pgErrorKinds[pgErr.Code]
	if !ok {
		return err
	}

	// Constraint or column, whichever the server reported.
	if subject := cmp.Or(pgErr.ConstraintName, pgErr.ColumnName); subject != "" {
		return fmt.Errorf("%w: %s (%s): %v", kind.sentinel, kind.label, subject, err)
	}
	return fmt.Errorf("%w: %s: %v", kind.sentinel, kind.label, err)
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
// This is useful for detecting duplicate records that violate unique constraints.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation checks if the given error is a PostgreSQL foreign key constraint violation.
// A review log pointing at a missing card raises it.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// CheckRowsAffected returns notFound when result reports zero affected rows.
// A nil notFound defaults to store.ErrNotFound.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if notFound == nil {
			return store.ErrNotFound
		}
		return notFound
	}

	return nil
}

// MapUniqueViolation maps a PostgreSQL unique violation error to specificError,
// or to store.ErrDuplicate when specificError is nil.
// Any other error is passed through MapError.
func MapUniqueViolation(err error, specificError error) error {
	if !IsUniqueViolation(err) {
		return MapError(err)
	}

	if specificError != nil {
		return fmt.Errorf("%w: %v", specificError, err)
	}

	return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
}
