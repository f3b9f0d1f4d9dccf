package service

import "errors"

var (
	// ErrPastDate rejects windows that start in the past.
	ErrPastDate = errors.New("booking date is in the past")

	// ErrDateTooFar rejects windows beyond the booking horizon.
	ErrDateTooFar = errors.New("booking date is too far in the future")

	// ErrVendorMismatch means the inquiry's venue belongs to another vendor.
	ErrVendorMismatch = errors.New("venue does not belong to the inquiry's vendor")
)
