package storage

import "errors"

// Storage errors shared by every zap store.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a zap with the same ID was already recorded.
	ErrDuplicateKey = errors.New("duplicate key: zap already recorded")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
