package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// IsTerminal reports whether no further transition is permitted.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusPaid || s == BookingStatusCancelled
}

type Booking struct {
	ID          int
	UserID      int
	ShowtimeID  int
	Quantity    int
	TotalAmount decimal.Decimal
	Status      BookingStatus
	SeatIDs     []int
	BookedAt    time.Time
	UpdatedAt   time.Time
}

type BookingDetail struct {
	BookingID     int
	UserID        int
	ShowtimeID    int
	FilmTitle     string
	FilmPosterUrl string
	TheaterName   string
	ShowtimeDate  time.Time
	Quantity      int
	TotalAmount   decimal.Decimal
	Status        BookingStatus
	PaymentStatus *PaymentStatus
	SeatLabels    []string
	BookedAt      time.Time
}

type BookingHistory struct {
	ID         int
	UserID     int
	BookingID  int
	ShowtimeID int
	CreatedAt  time.Time
}

type BookingHistoryEntry struct {
	BookingHistory
	FilmTitle     string
	FilmPosterUrl string
	TheaterName   string
	ShowtimeDate  time.Time
	Status        BookingStatus
	TotalAmount   decimal.Decimal
}

// QuoteFunc receives the showtime and the requested seats as read under lock
// and returns the total amount to charge, or an error to abort the booking.
type QuoteFunc func(showtime *Showtime, seats []Seat) (decimal.Decimal, error)

type BookingRepository interface {
	Create(ctx context.Context, booking *Booking, quote QuoteFunc) error
	GetById(ctx context.Context, id int) (*Booking, error)
	GetDetailByIdAndUserId(ctx context.Context, id, userId int) (*BookingDetail, error)
	Cancel(ctx context.Context, id int) (bool, error)
	Expire(ctx context.Context, id int, cutoff time.Time) (bool, error)
	ListExpirable(ctx context.Context, cutoff time.Time, afterId, limit int) ([]Booking, error)
	GetClaimedSeatIds(ctx context.Context, showtimeId int) ([]int, error)
	CreateHistory(ctx context.Context, history *BookingHistory) error
	GetHistoryByUserId(ctx context.Context, userId int, pagination Pagination) ([]BookingHistoryEntry, *Metadata, error)
}
