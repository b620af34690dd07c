package domain

import "errors"

// Kinds of failure surfaced by the booking core. Callers match them with
// errors.Is; the concrete errors below wrap exactly one kind.
var (
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrGateway        = errors.New("payment gateway error")
	ErrStore          = errors.New("store error")
)

var (
	ErrSeatAlreadyClaimed   = newError(ErrConflict, "seat(s) are already reserved for this showtime")
	ErrPendingBookingExists = newError(ErrConflict, "you already have a booking awaiting payment")
	ErrEmptySeatSelection   = newError(ErrValidation, "at least one seat must be selected")
	ErrQuantityMismatch     = newError(ErrValidation, "quantity must match the number of selected seats")
	ErrDuplicateSeat        = newError(ErrValidation, "a seat cannot be selected more than once")
	ErrSeatNotInTheater     = newError(ErrValidation, "selected seat(s) do not belong to the showtime's theater")
	ErrBookingNotPending    = newError(ErrInvalidState, "booking is not awaiting payment")
	ErrInvalidSignature     = newError(ErrValidation, "notification signature is invalid")
	ErrGatewayTimeout       = newError(ErrGateway, "payment gateway did not respond in time")
)

type kindError struct {
	kind    error
	message string
}

func newError(kind error, message string) error {
	return &kindError{kind: kind, message: message}
}

func (e *kindError) Error() string {
	return e.message
}

func (e *kindError) Unwrap() error {
	return e.kind
}
