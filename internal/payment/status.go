package payment

import (
	"time"

	"github.com/metinatakli/movie-booking-system/internal/domain"
)

// Gateway status values, in the vocabulary the gateways report.
const (
	GatewayStatusSettlement = "settlement"
	GatewayStatusCancel     = "cancel"
	GatewayStatusExpire     = "expire"
	GatewayStatusPending    = "pending"
)

// transitionFor maps a gateway status onto local payment and booking state.
// Unknown statuses keep the payment pending and the booking unchanged.
func transitionFor(gatewayStatus, method string, now time.Time) *domain.PaymentTransition {
	switch gatewayStatus {
	case GatewayStatusSettlement:
		paidAt := now.UTC()
		return &domain.PaymentTransition{
			PaymentStatus: domain.PaymentStatusSettlement,
			BookingStatus: ptr(domain.BookingStatusPaid),
			Method:        method,
			PaidAt:        &paidAt,
		}
	case GatewayStatusCancel:
		return &domain.PaymentTransition{
			PaymentStatus: domain.PaymentStatusCancelled,
			BookingStatus: ptr(domain.BookingStatusCancelled),
			Method:        method,
		}
	case GatewayStatusExpire:
		return &domain.PaymentTransition{
			PaymentStatus: domain.PaymentStatusExpired,
			BookingStatus: ptr(domain.BookingStatusCancelled),
			Method:        method,
		}
	default:
		return &domain.PaymentTransition{
			PaymentStatus: domain.PaymentStatusPending,
			Method:        method,
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
