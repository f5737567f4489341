package service

import "errors"

// Error kinds. Handlers map them to HTTP statuses.
var (
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrUpstream   = errors.New("upstream failure")
)

// Error is a domain failure with a client-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap lets errors.Is match the kind.
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrStationNotFound     = newError(ErrNotFound, "Charger not found")
	ErrBookingNotFound     = newError(ErrNotFound, "Booking not found")
	ErrMissingBookingInput = newError(ErrBadRequest, "Charger ID, date & timeSlot required")
	ErrInvalidDate         = newError(ErrBadRequest, "Invalid date, expected YYYY-MM-DD")
	ErrInvalidSlot         = newError(ErrBadRequest, "Invalid time slot")
	ErrInvalidDuration     = newError(ErrBadRequest, "Duration must be between 1 and 480 minutes")
	ErrSpanOverflow        = newError(ErrBadRequest, "Booking runs past closing time")
	ErrSlotInPast          = newError(ErrBadRequest, "Cannot book a slot in the past")
	ErrStationUnavailable  = newError(ErrBadRequest, "Charger is not available for booking")
	ErrSlotTaken           = newError(ErrConflict, "Slot already booked")
	ErrMissingSession      = newError(ErrBadRequest, "Session ID required")
	ErrPaymentIncomplete   = newError(ErrBadRequest, "Payment not completed")
	ErrBookingNotPayable   = newError(ErrConflict, "Booking is no longer awaiting payment")
	ErrAlreadyCancelled    = newError(ErrBadRequest, "Already cancelled")
	ErrTooLateToCancel     = newError(ErrBadRequest, "Cannot cancel less than 1 hour before start")
	ErrAdminOnly           = newError(ErrForbidden, "Admin only")
	ErrStationBusy         = newError(ErrConflict, "Charger has active bookings")
	ErrPaymentGateway      = newError(ErrUpstream, "Payment gateway error")
)
