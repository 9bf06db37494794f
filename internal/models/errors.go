package models

import "errors"

var (
	// ErrNameNotFound is returned when no display name can be resolved for a player id.
	ErrNameNotFound = errors.New("name not found")

	// ErrMissingStructure is returned when the world directory lacks the player layout.
	// It aborts the whole scrape cycle.
	ErrMissingStructure = errors.New("missing world structure")

	// ErrParseFailure marks a malformed stats or player file.
	ErrParseFailure = errors.New("parse failure")

	// ErrNonNumericValue marks a stat leaf that is not a real number.
	ErrNonNumericValue = errors.New("non-numeric stat value")

	// ErrDuplicateRegistration is returned when a new series would collide with a
	// series already registered under another key.
	ErrDuplicateRegistration = errors.New("duplicate series registration")

	// ErrNonMonotonicUpdate is returned when a counter update would need a negative delta.
	ErrNonMonotonicUpdate = errors.New("non-monotonic counter update")
)
