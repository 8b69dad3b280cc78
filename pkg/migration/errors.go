package migration

import "errors"

var (
	// ErrPathNotFound is carried by sentinel paths when no route exists
	ErrPathNotFound = errors.New("migration path not found")

	// ErrInvalidArgument is returned for programmer errors such as an empty
	// entity type
	ErrInvalidArgument = errors.New("invalid argument")
)
