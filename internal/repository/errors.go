package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness violation, e.g. a duplicate email.
	ErrConflict = errors.New("repository: conflict")
)
