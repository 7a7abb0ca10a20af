package domain

import "errors"

var (
	// ErrMalformedSnapshot marks a raw publication that failed normalization.
	// It is not retried automatically; it almost always means the upstream
	// extraction produced garbage and needs a fix before reprocessing.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrDuplicatePublication means the publication date was already processed
	// for this depot. Callers treat it as a benign no-op, not a failure.
	ErrDuplicatePublication = errors.New("publication already processed")

	// ErrStoreConflict means a concurrent write won the race for the same
	// depot timeline. Transient; the ingest pipeline retries a bounded number
	// of times.
	ErrStoreConflict = errors.New("store conflict")

	// ErrInvariantViolation means the write would leave the timeline with
	// zero or two open versions, or with a gap between valid_to and the
	// successor's valid_from. This is a logic defect, never repaired silently.
	ErrInvariantViolation = errors.New("version invariant violation")

	// ErrValueNotFound is returned by value-at queries for dates before the
	// first recorded snapshot of a depot, or for unknown depots.
	ErrValueNotFound = errors.New("no value recorded at date")

	// ErrVersionNotFound is returned by administrative operations addressing
	// a version id that does not exist.
	ErrVersionNotFound = errors.New("version not found")
)
