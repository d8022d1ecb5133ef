package bookings

import "errors"

var (
	// ErrBookingNotFound is returned when a booking id is unknown
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidStatusTransition is returned when a status change is not allowed
	ErrInvalidStatusTransition = errors.New("invalid booking status transition")

	ErrInvalidStatus  = errors.New("invalid booking status")
	ErrInvalidType    = errors.New("invalid booking type")
	ErrMissingTitle   = errors.New("booking title is required")
	ErrNegativeAmount = errors.New("booking amount must not be negative")
	ErrInvalidDate    = errors.New("booking date must be an ISO date (YYYY-MM-DD)")
	ErrMissingUserID  = errors.New("user id is required")

	// ErrDuplicateCode is returned when the display code is already taken.
	ErrDuplicateCode = errors.New("booking code already in use")
)
