package mocks

import (
	"context"
	"time"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepo struct {
	mock.Mock
	domain.BookingRepository
}

func (m *MockBookingRepo) Create(ctx context.Context, booking *domain.Booking, quote domain.QuoteFunc) error {
	args := m.Called(ctx, booking, quote)
	return args.Error(0)
}

func (m *MockBookingRepo) GetById(ctx context.Context, id int) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) GetDetailByIdAndUserId(ctx context.Context, id, userId int) (*domain.BookingDetail, error) {
	args := m.Called(ctx, id, userId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingDetail), args.Error(1)
}

func (m *MockBookingRepo) Cancel(ctx context.Context, id int) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) Expire(ctx context.Context, id int, cutoff time.Time) (bool, error) {
	args := m.Called(ctx, id, cutoff)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) ListExpirable(
	ctx context.Context,
	cutoff time.Time,
	afterId,
	limit int) ([]domain.Booking, error) {

	args := m.Called(ctx, cutoff, afterId, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) GetClaimedSeatIds(ctx context.Context, showtimeId int) ([]int, error) {
	args := m.Called(ctx, showtimeId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockBookingRepo) CreateHistory(ctx context.Context, history *domain.BookingHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBookingRepo) GetHistoryByUserId(
	ctx context.Context,
	userId int,
	pagination domain.Pagination) ([]domain.BookingHistoryEntry, *domain.Metadata, error) {

	args := m.Called(ctx, userId, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.BookingHistoryEntry), args.Get(1).(*domain.Metadata), args.Error(2)
}
