package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewMetadata(t *testing.T) {
	tests := []struct {
		name         string
		totalRecords int
		pagination   Pagination
		want         Metadata
	}{
		{
			name:         "no records",
			totalRecords: 0,
			pagination:   Pagination{Page: 1, PageSize: 10},
			want:         Metadata{CurrentPage: 1, FirstPage: 1, LastPage: 1, PageSize: 10},
		},
		{
			name:         "partial last page",
			totalRecords: 21,
			pagination:   Pagination{Page: 2, PageSize: 10},
			want:         Metadata{CurrentPage: 2, FirstPage: 1, LastPage: 3, PageSize: 10, TotalRecords: 21},
		},
		{
			name:         "exact pages",
			totalRecords: 20,
			pagination:   Pagination{Page: 1, PageSize: 5},
			want:         Metadata{CurrentPage: 1, FirstPage: 1, LastPage: 4, PageSize: 5, TotalRecords: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, &tt.want, NewMetadata(tt.totalRecords, tt.pagination))
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	p := Pagination{Page: 3, PageSize: 25}

	assert.Equal(t, 25, p.Limit())
	assert.Equal(t, 50, p.Offset())
}

func TestBookingStatusIsTerminal(t *testing.T) {
	assert.False(t, BookingStatusPending.IsTerminal())
	assert.True(t, BookingStatusPaid.IsTerminal())
	assert.True(t, BookingStatusCancelled.IsTerminal())
}

func TestReconcileResultTransitioned(t *testing.T) {
	tests := []struct {
		name   string
		result ReconcileResult
		want   bool
	}{
		{
			name: "pending to paid",
			result: ReconcileResult{
				Booking:        Booking{Status: BookingStatusPaid},
				PreviousStatus: BookingStatusPending,
				Applied:        true,
			},
			want: true,
		},
		{
			name: "payment updated, booking still pending",
			result: ReconcileResult{
				Booking:        Booking{Status: BookingStatusPending},
				PreviousStatus: BookingStatusPending,
				Applied:        true,
			},
		},
		{
			name: "already paid",
			result: ReconcileResult{
				Booking:        Booking{Status: BookingStatusPaid},
				PreviousStatus: BookingStatusPaid,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.Transitioned())
		})
	}
}

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, ErrSeatAlreadyClaimed, ErrConflict)
	assert.ErrorIs(t, ErrQuantityMismatch, ErrValidation)
	assert.ErrorIs(t, ErrBookingNotPending, ErrInvalidState)
	assert.ErrorIs(t, ErrGatewayTimeout, ErrGateway)
	assert.False(t, errors.Is(ErrSeatAlreadyClaimed, ErrValidation))

	wrapped := fmt.Errorf("create booking: %w", ErrPendingBookingExists)
	assert.ErrorIs(t, wrapped, ErrConflict)
	assert.Equal(t, "you already have a booking awaiting payment", ErrPendingBookingExists.Error())
}

func TestNewBookingEvent(t *testing.T) {
	at := time.Date(2025, 3, 14, 21, 30, 0, 0, time.FixedZone("WIB", 7*60*60))

	event := NewBookingEvent(BookingCancelled, Booking{
		ID:          42,
		UserID:      7,
		ShowtimeID:  5,
		Status:      BookingStatusCancelled,
		TotalAmount: decimal.NewFromInt(100000),
	}, "expired", at)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, BookingCancelled, event.Type)
	assert.Equal(t, 42, event.BookingID)
	assert.Equal(t, 7, event.UserID)
	assert.Equal(t, "expired", event.Reason)
	assert.Equal(t, time.UTC, event.OccurredAt.Location())
	assert.True(t, at.Equal(event.OccurredAt))
}
