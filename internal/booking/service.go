// Package booking implements the reservation ledger operations and the seat
// availability query on top of the domain repositories.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateBookingInput struct {
	UserID     int
	ShowtimeID int
	SeatIDs    []int
	Quantity   int
}

type Service struct {
	bookingRepo domain.BookingRepository
	catalogRepo domain.CatalogRepository
	publisher   domain.EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for booked_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	bookingRepo domain.BookingRepository,
	catalogRepo domain.CatalogRepository,
	publisher domain.EventPublisher,
	logger *slog.Logger,
	opts ...Option) *Service {

	s := &Service{
		bookingRepo: bookingRepo,
		catalogRepo: catalogRepo,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateBooking claims the requested seats for the user. The total is priced
// from the showtime as read inside the claiming transaction.
func (s *Service) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	seatIds, err := normalizeSeatIds(input.SeatIDs, input.Quantity)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		UserID:     input.UserID,
		ShowtimeID: input.ShowtimeID,
		Quantity:   input.Quantity,
		Status:     domain.BookingStatusPending,
		SeatIDs:    seatIds,
		BookedAt:   s.now().UTC(),
	}

	err = s.bookingRepo.Create(ctx, booking, func(showtime *domain.Showtime, seats []domain.Seat) (decimal.Decimal, error) {
		if len(seats) != len(seatIds) {
			return decimal.Zero, domain.ErrSeatNotInTheater
		}

		return showtime.Price.Mul(decimal.NewFromInt(int64(booking.Quantity))), nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewBookingEvent(domain.BookingCreated, *booking, "", s.now()))

	return booking, nil
}

// normalizeSeatIds validates the seat selection and returns it sorted, so
// concurrent claims always take seat locks in the same order.
func normalizeSeatIds(seatIds []int, quantity int) ([]int, error) {
	if len(seatIds) == 0 {
		return nil, domain.ErrEmptySeatSelection
	}

	if quantity != len(seatIds) {
		return nil, domain.ErrQuantityMismatch
	}

	sorted := slices.Clone(seatIds)
	slices.Sort(sorted)

	for i, id := range sorted {
		if id <= 0 {
			return nil, fmt.Errorf("%w: seat id %d is invalid", domain.ErrValidation, id)
		}

		if i > 0 && sorted[i-1] == id {
			return nil, domain.ErrDuplicateSeat
		}
	}

	return sorted, nil
}

// CancelBooking moves a pending booking to cancelled. It returns false when the
// booking had already reached a terminal state.
func (s *Service) CancelBooking(ctx context.Context, bookingId int) (bool, error) {
	cancelled, err := s.bookingRepo.Cancel(ctx, bookingId)
	if err != nil {
		return false, err
	}

	if !cancelled {
		s.logger.Info("cancel skipped, booking already terminal", "booking_id", bookingId)
		return false, nil
	}

	booking, err := s.bookingRepo.GetById(ctx, bookingId)
	if err != nil {
		s.logger.Warn("failed to load cancelled booking for event", "booking_id", bookingId, "error", err)
		return true, nil
	}

	s.publish(ctx, domain.NewBookingEvent(domain.BookingCancelled, *booking, "cancelled", s.now()))

	return true, nil
}

// RecordBookingHistory appends the booking to the user's history. Entries are
// unique per booking; repeated calls return the existing entry.
func (s *Service) RecordBookingHistory(
	ctx context.Context,
	userId,
	bookingId,
	showtimeId int) (*domain.BookingHistory, error) {

	history := &domain.BookingHistory{
		UserID:     userId,
		BookingID:  bookingId,
		ShowtimeID: showtimeId,
	}

	err := s.bookingRepo.CreateHistory(ctx, history)
	if err != nil {
		return nil, err
	}

	return history, nil
}

func (s *Service) GetBooking(ctx context.Context, userId, bookingId int) (*domain.BookingDetail, error) {
	return s.bookingRepo.GetDetailByIdAndUserId(ctx, bookingId, userId)
}

func (s *Service) ListBookingHistory(
	ctx context.Context,
	userId int,
	pagination domain.Pagination) ([]domain.BookingHistoryEntry, *domain.Metadata, error) {

	return s.bookingRepo.GetHistoryByUserId(ctx, userId, pagination)
}

// GetSeatAvailability lists every seat of the showtime's theater, marking the
// ones held by a pending or paid booking as unavailable.
func (s *Service) GetSeatAvailability(ctx context.Context, filmId, showtimeId int) (*domain.SeatMap, error) {
	showtime, err := s.catalogRepo.GetShowtimeById(ctx, showtimeId)
	if err != nil {
		return nil, err
	}

	if showtime.FilmID != filmId {
		return nil, domain.ErrRecordNotFound
	}

	film, err := s.catalogRepo.GetFilmById(ctx, filmId)
	if err != nil {
		return nil, err
	}

	theater, err := s.catalogRepo.GetTheaterById(ctx, showtime.TheaterID)
	if err != nil {
		return nil, err
	}

	seats, err := s.catalogRepo.GetSeatsForTheater(ctx, showtime.TheaterID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.bookingRepo.GetClaimedSeatIds(ctx, showtimeId)
	if err != nil {
		return nil, err
	}

	claimedSet := make(map[int]struct{}, len(claimed))
	for _, id := range claimed {
		claimedSet[id] = struct{}{}
	}

	seatMap := &domain.SeatMap{
		Film:     *film,
		Theater:  *theater,
		Showtime: *showtime,
		Seats:    make([]domain.SeatAvailability, 0, len(seats)),
	}

	for _, seat := range seats {
		_, taken := claimedSet[seat.ID]
		seatMap.Seats = append(seatMap.Seats, domain.SeatAvailability{
			Seat:      seat,
			Available: !taken,
		})
	}

	return seatMap, nil
}

func (s *Service) publish(ctx context.Context, event domain.BookingEvent) {
	err := s.publisher.Publish(ctx, event)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("failed to publish booking event",
			"event_type", event.Type,
			"booking_id", event.BookingID,
			"error", err)
	}
}
