package store

import "errors"

var (
	// ErrNotFound is returned when an operation references a missing mail.
	ErrNotFound = errors.New("mail not found")
	// ErrDuplicate is returned when an insert collides on message id.
	// Duplicates are rejected, not merged, to keep replays visible.
	ErrDuplicate = errors.New("duplicate mail")
	// ErrValidation is returned for malformed identity fields.
	ErrValidation = errors.New("invalid mail")
)
