package mocks

import (
	"context"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockCatalogRepo struct {
	mock.Mock
	domain.CatalogRepository
}

func (m *MockCatalogRepo) GetShowtimeById(ctx context.Context, id int) (*domain.Showtime, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Showtime), args.Error(1)
}

func (m *MockCatalogRepo) GetFilmById(ctx context.Context, id int) (*domain.Film, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Film), args.Error(1)
}

func (m *MockCatalogRepo) GetTheaterById(ctx context.Context, id int) (*domain.Theater, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Theater), args.Error(1)
}

func (m *MockCatalogRepo) GetSeatsForTheater(ctx context.Context, theaterId int) ([]domain.Seat, error) {
	args := m.Called(ctx, theaterId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Seat), args.Error(1)
}
