package store

import "errors"

var (
	// ErrParentNotFound is returned when a node would be written under a parent that doesn't exist.
	ErrParentNotFound = errors.New("store: parent not found")

	// ErrInvalidName is returned when a node name is empty after trimming.
	ErrInvalidName = errors.New("store: name must not be empty")

	// ErrUnknownLevel is returned for a Level outside the four hierarchy levels.
	ErrUnknownLevel = errors.New("store: unknown hierarchy level")
)
