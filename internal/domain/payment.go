package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSettlement PaymentStatus = "settlement"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusExpired    PaymentStatus = "expired"
)

const PaymentMethodUnspecified = "UNSPECIFIED"

type Payment struct {
	ID           int
	BookingID    int
	GatewayTxnID string
	Token        string
	RedirectUrl  string
	Amount       decimal.Decimal
	Method       string
	Status       PaymentStatus
	PaidAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PaymentTransition is the target state computed from a gateway status.
// A nil BookingStatus leaves the booking untouched.
type PaymentTransition struct {
	PaymentStatus PaymentStatus
	BookingStatus *BookingStatus
	Method        string
	PaidAt        *time.Time
}

type ReconcileResult struct {
	Payment        Payment
	Booking        Booking
	PreviousStatus BookingStatus
	Applied        bool
}

// Transitioned reports whether the booking left the pending state in this call.
func (r ReconcileResult) Transitioned() bool {
	return r.Applied && r.PreviousStatus == BookingStatusPending && r.Booking.Status.IsTerminal()
}

// ReconcileFunc decides the transition for a payment and its booking, both
// read under lock. Returning nil makes the call a no-op.
type ReconcileFunc func(payment *Payment, booking *Booking) (*PaymentTransition, error)

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetPendingByBookingId(ctx context.Context, bookingId int) (*Payment, error)
	GetByGatewayTxnId(ctx context.Context, gatewayTxnId string) (*Payment, error)
	Reconcile(ctx context.Context, gatewayTxnId string, fn ReconcileFunc) (*ReconcileResult, error)
}
