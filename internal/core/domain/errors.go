package domain

import "errors"

// Sentinel errors shared by handlers, ledgers and the store drivers.
// Handlers map these to HTTP status codes at the boundary; everything
// else gets a generic 500.

var (
	// ErrNotFound means the requested record is absent from its collection.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidArgument means the caller supplied unusable input
	// (unparseable date, missing business key, bad quantity).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStoreUnavailable means the document store cannot be reached.
	ErrStoreUnavailable = errors.New("document store unavailable")

	// ErrPersistenceFailure means the store rejected a write.
	ErrPersistenceFailure = errors.New("write rejected by store")

	// ErrInsufficientStock is returned by the sale path when the
	// non-negative stock guard is enabled and a line item would drive
	// itemQuantity below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)
