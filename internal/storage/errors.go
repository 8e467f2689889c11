package storage

import "errors"

// Ledger errors. Artifacts and funding events are append-only.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a record with the same id was already written.
	ErrDuplicateKey = errors.New("duplicate key: ledger records are append-only")

	// ErrInvalidInput is returned when a record is missing required fields.
	ErrInvalidInput = errors.New("invalid input")
)
