package domain

import "errors"

var (
	// ErrNotFound is returned when the requested id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on unique-constraint violations
	// (duplicate username or email).
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation wraps any malformed or semantically invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownOperation is returned for an unrecognized queue operation tag.
	ErrUnknownOperation = errors.New("unknown operation")
)
