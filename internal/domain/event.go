package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingEventType string

const (
	BookingCreated   BookingEventType = "booking.created"
	BookingPaid      BookingEventType = "booking.paid"
	BookingCancelled BookingEventType = "booking.cancelled"
)

type BookingEvent struct {
	ID          string           `json:"id"`
	Type        BookingEventType `json:"type"`
	BookingID   int              `json:"bookingId"`
	UserID      int              `json:"userId"`
	ShowtimeID  int              `json:"showtimeId"`
	Status      BookingStatus    `json:"status"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	Reason      string           `json:"reason,omitempty"`
	OccurredAt  time.Time        `json:"occurredAt"`
}

func NewBookingEvent(eventType BookingEventType, booking Booking, reason string, at time.Time) BookingEvent {
	return BookingEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		ShowtimeID:  booking.ShowtimeID,
		Status:      booking.Status,
		TotalAmount: booking.TotalAmount,
		Reason:      reason,
		OccurredAt:  at.UTC(),
	}
}

// EventPublisher delivers booking lifecycle events to downstream consumers.
// Delivery is best effort and never part of a ledger transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
	Close() error
}
