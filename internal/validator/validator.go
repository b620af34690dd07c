package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// MaxSeatsPerBooking bounds a single seat selection.
const MaxSeatsPerBooking = 10

const (
	ErrRequired     = "is required"
	ErrGreaterThan  = "must be greater than %s"
	ErrMinValue     = "must be at least %s"
	ErrMaxValue     = "must be at most %s"
	ErrEqualField   = "must equal %s"
	ErrSeatIds      = "must contain between 1 and %d distinct positive seat ids"
	ErrGatewayTxnId = "must be a valid transaction id"
	ErrInvalid      = "is invalid"
)

var gatewayTxnIdRgx = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("seat_ids", validateSeatIds)
	validator.RegisterValidation("gateway_txn_id", validateGatewayTxnId)

	return validator
}

// validateSeatIds accepts a non-empty list of distinct positive ids no longer
// than MaxSeatsPerBooking.
func validateSeatIds(fl validator.FieldLevel) bool {
	ids, ok := fl.Field().Interface().([]int)
	if !ok || len(ids) == 0 || len(ids) > MaxSeatsPerBooking {
		return false
	}

	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return false
		}
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
	}

	return true
}

func validateGatewayTxnId(fl validator.FieldLevel) bool {
	return gatewayTxnIdRgx.MatchString(fl.Field().String())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return ErrRequired
	case "gt":
		return fmt.Sprintf(ErrGreaterThan, err.Param())
	case "min":
		return fmt.Sprintf(ErrMinValue, err.Param())
	case "max":
		return fmt.Sprintf(ErrMaxValue, err.Param())
	case "eqfield":
		return fmt.Sprintf(ErrEqualField, err.Param())
	case "seat_ids":
		return fmt.Sprintf(ErrSeatIds, MaxSeatsPerBooking)
	case "gateway_txn_id":
		return ErrGatewayTxnId
	default:
		return ErrInvalid
	}
}
