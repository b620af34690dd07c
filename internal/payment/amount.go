package payment

import (
	"fmt"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/shopspring/decimal"
)

// minorUnits converts amount to the gateway's smallest currency unit, where one
// major unit is 10^exp minor units. Amounts that would need rounding are rejected.
func minorUnits(amount decimal.Decimal, exp int32) (int64, error) {
	scaled := amount.Shift(exp)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount %s has more than %d decimal places", domain.ErrValidation, amount, exp)
	}

	if scaled.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", domain.ErrValidation, amount)
	}

	return scaled.IntPart(), nil
}
