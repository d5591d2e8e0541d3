package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when a write breaks another table constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrConflict is returned when a transactional conflict check finds an overlapping lock or reservation.
	ErrConflict = errors.New("persistence: period conflict")
)
