package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var (
	// ErrNotFound is returned by writes that target a row which does not
	// exist. Reads return (nil, nil) instead.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate matches any *DuplicateError via errors.Is.
	ErrDuplicate = errors.New("store: duplicate value")
)

// DuplicateError reports the unique constraint a write violated.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return "duplicate value violates " + e.Constraint
}

// Is makes errors.Is(err, ErrDuplicate) true for every DuplicateError.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// Field returns the column named by a default PostgreSQL constraint name,
// e.g. "users_email_key" → "email".
func (e *DuplicateError) Field() string {
	name := strings.TrimSuffix(e.Constraint, "_key")
	if i := strings.IndexByte(name, '_'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// DuplicateField returns the violated column if err wraps a DuplicateError.
func DuplicateField(err error) (string, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Field(), true
	}
	return "", false
}

// asDuplicate converts a PostgreSQL unique violation into a DuplicateError
// and returns any other error unchanged.
func asDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &DuplicateError{Constraint: pgErr.ConstraintName}
	}
	return err
}
