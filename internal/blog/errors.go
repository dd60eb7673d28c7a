package blog

import (
	"errors"
	"fmt"

	"quillpress/internal/store"
)

// Sentinel errors returned by Service. Handlers map them to HTTP statuses.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
	ErrDuplicate       = errors.New("already exists")
	ErrInvalidParent   = errors.New("parent comment does not belong to this post")
	ErrNoStorage       = errors.New("image storage is not configured")
)

// DuplicateError names the unique field that was already taken.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return e.Field + " already exists"
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// storeErr converts store errors into the service sentinels. op prefixes
// anything else.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrDuplicate):
		field, _ := store.DuplicateField(err)
		return &DuplicateError{Field: field}
	}
	return fmt.Errorf("%s: %w", op, err)
}
