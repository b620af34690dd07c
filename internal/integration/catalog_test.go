package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CatalogTestSuite struct {
	BaseSuite
}

func TestCatalogSuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, new(CatalogTestSuite))
}

func (s *CatalogTestSuite) TestGetSeatAvailability() {
	ctx := context.Background()

	s.createBooking(testUserId, 2)

	seatMap, err := s.app.Bookings.GetSeatAvailability(ctx, testFilmId, testShowtimeId)
	s.Require().NoError(err)

	s.Equal("Test Theater 1", seatMap.Theater.Name)
	s.Require().Len(seatMap.Seats, 5)

	available := make(map[string]bool)
	for _, seat := range seatMap.Seats {
		available[seat.Label] = seat.Available
	}
	s.Equal(map[string]bool{"A1": true, "A2": false, "A3": true, "B1": true, "B2": true}, available)

	_, err = s.app.Bookings.GetSeatAvailability(ctx, testFilmId+1, testShowtimeId)
	s.Error(err)
}

func (s *CatalogTestSuite) TestCatalogChangeInvalidatesCache() {
	ctx := context.Background()

	seatMap, err := s.app.Bookings.GetSeatAvailability(ctx, testFilmId, testShowtimeId)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(50000).Equal(seatMap.Showtime.Price))

	_, err = s.app.DB.Exec(ctx, `UPDATE showtimes SET price = 65000 WHERE id = $1`, testShowtimeId)
	s.Require().NoError(err)

	s.Eventually(func() bool {
		seatMap, err := s.app.Bookings.GetSeatAvailability(ctx, testFilmId, testShowtimeId)
		return err == nil && decimal.NewFromInt(65000).Equal(seatMap.Showtime.Price)
	}, cacheInvalidWait, 100*time.Millisecond)

	b := s.createBooking(testUserId, 1)
	s.True(decimal.NewFromInt(65000).Equal(b.TotalAmount), "total = %s", b.TotalAmount)
}

func (s *CatalogTestSuite) TestSeatChangeInvalidatesTheaterSeats() {
	ctx := context.Background()

	seatMap, err := s.app.Bookings.GetSeatAvailability(ctx, testFilmId, testShowtimeId)
	s.Require().NoError(err)
	s.Require().Len(seatMap.Seats, 5)

	_, err = s.app.DB.Exec(ctx, `UPDATE seats SET seat_label = 'Z1' WHERE id = 1`)
	s.Require().NoError(err)

	s.Eventually(func() bool {
		seatMap, err := s.app.Bookings.GetSeatAvailability(ctx, testFilmId, testShowtimeId)
		if err != nil {
			return false
		}
		for _, seat := range seatMap.Seats {
			if seat.ID == 1 {
				return seat.Label == "Z1"
			}
		}
		return false
	}, cacheInvalidWait, 100*time.Millisecond)
}
