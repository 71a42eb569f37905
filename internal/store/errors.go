package store

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrAppendOnly is returned when a caller attempts to overwrite or
	// delete an existing belief ledger entry. The ledger contract admits
	// appends only.
	ErrAppendOnly = errors.New("belief ledger is append-only")

	// ErrDuplicateEvidence is returned when an evidence reference has
	// already been applied to the hypothesis.
	ErrDuplicateEvidence = errors.New("evidence reference already applied")
)
