package checker

import "errors"

var (
	// ErrVersionNotFound is reported when a version is not registered
	ErrVersionNotFound = errors.New("version not found")

	// ErrIncompatible is reported when the rules determined two versions
	// cannot be migrated between
	ErrIncompatible = errors.New("versions are incompatible")

	// ErrTimeout is reported when a check exceeds the configured timeout
	ErrTimeout = errors.New("compatibility check timed out")

	// ErrInvalidArgument is returned for programmer errors such as an empty
	// entity type
	ErrInvalidArgument = errors.New("invalid argument")
)
