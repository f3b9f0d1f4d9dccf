package database

import "errors"

var (
	// ErrBookingConflict is returned by the conditional insert when the
	// proposed window overlaps an existing booking on the same venue.
	ErrBookingConflict = errors.New("booking window conflicts with an existing booking")

	// ErrConcurrentModification signals a lost optimistic-version race.
	ErrConcurrentModification = errors.New("record was modified concurrently")

	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVenueNotFound means the referenced venue is unknown to the cache.
	ErrVenueNotFound = errors.New("venue not found")

	// ErrInvalidTransition signals an illegal inquiry status change.
	ErrInvalidTransition = errors.New("invalid inquiry status transition")
)
