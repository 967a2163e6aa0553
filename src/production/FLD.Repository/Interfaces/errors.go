package interfaces

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no document
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique index rejects a write
	ErrDuplicate = errors.New("duplicate key")
	// ErrInvalidID is returned for identifiers that are not valid ObjectIDs
	ErrInvalidID = errors.New("invalid id")
)
