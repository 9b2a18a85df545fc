package repositories

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateTitle    = errors.New("post with this title already exists")
	ErrDuplicateSlug     = errors.New("post with this slug already exists")
	ErrDuplicateUsername = errors.New("user with this username already exists")
	// ErrConflict is returned when a write keeps colliding with concurrent
	// writers, or when the database rejects it with a constraint we cannot
	// attribute to a single field.
	ErrConflict = errors.New("concurrent modification")
	// ErrUnsupported marks operations the configured driver cannot perform.
	ErrUnsupported = errors.New("operation not supported by this store")
)
