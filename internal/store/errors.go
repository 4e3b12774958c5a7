package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when registering a username that is
// already taken.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrAlreadyExists is returned when a friendship record for the pair
// already exists, in any state.
var ErrAlreadyExists = errors.New("friendship already exists")

// ErrInvalidTransition is returned when accepting or declining a
// friendship that is not pending.
var ErrInvalidTransition = errors.New("friendship is not pending")

// ErrValidation is returned for malformed input such as an empty username.
var ErrValidation = errors.New("invalid input")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}
