package app

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/metinatakli/movie-booking-system/api"
	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type SeatsTestSuite struct {
	suite.Suite
	app      *application
	bookings *MockBookingService
}

func (s *SeatsTestSuite) SetupTest() {
	s.bookings = new(MockBookingService)
	s.app = newTestApplication(s.T(), func(a *application) {
		a.bookings = s.bookings
	})
}

func TestSeatsSuite(t *testing.T) {
	suite.Run(t, new(SeatsTestSuite))
}

func (s *SeatsTestSuite) TestGetSeatAvailability() {
	startsAt := time.Date(2025, 3, 16, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		url            string
		setupMocks     func()
		wantStatus     int
		wantErrMessage string
		wantResponse   *api.SeatMapResponse
	}{
		{
			name:       "should fail when the showtime id is not positive",
			url:        "/v1/films/1/showtimes/0/seats",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "should fail when the showtime belongs to another film",
			url:  "/v1/films/2/showtimes/5/seats",
			setupMocks: func() {
				s.bookings.On("GetSeatAvailability", mock.Anything, 2, 5).Return(nil, domain.ErrRecordNotFound).Once()
			},
			wantStatus:     http.StatusNotFound,
			wantErrMessage: ErrNotFound,
		},
		{
			name: "should return seats with availability",
			url:  "/v1/films/1/showtimes/5/seats",
			setupMocks: func() {
				s.bookings.On("GetSeatAvailability", mock.Anything, 1, 5).Return(&domain.SeatMap{
					Film:    domain.Film{ID: 1, Title: "Dune: Part Two", PosterUrl: "https://example.com/dune.jpg"},
					Theater: domain.Theater{ID: 3, Name: "Studio 1"},
					Showtime: domain.Showtime{
						ID:        5,
						FilmID:    1,
						TheaterID: 3,
						Price:     decimal.NewFromInt(50000),
						StartsAt:  startsAt,
					},
					Seats: []domain.SeatAvailability{
						{Seat: domain.Seat{ID: 11, TheaterID: 3, Label: "A1"}, Available: false},
						{Seat: domain.Seat{ID: 12, TheaterID: 3, Label: "A2"}, Available: true},
					},
				}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantResponse: &api.SeatMapResponse{
				FilmId:        1,
				FilmTitle:     "Dune: Part Two",
				FilmPosterUrl: "https://example.com/dune.jpg",
				Showtime: api.ShowtimeSummary{
					Id:          5,
					StartsAt:    startsAt,
					Price:       decimal.NewFromInt(50000),
					TheaterId:   3,
					TheaterName: "Studio 1",
				},
				Seats: []api.SeatResponse{
					{Id: 11, Label: "A1", Available: false},
					{Id: 12, Label: "A2", Available: true},
				},
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			defer s.bookings.AssertExpectations(s.T())

			if tt.setupMocks != nil {
				tt.setupMocks()
			}

			w, r := executeRequest(s.T(), http.MethodGet, tt.url, nil)
			r = authenticate(s.T(), r, 7)

			s.app.routes().ServeHTTP(w, r)

			s.Equal(tt.wantStatus, w.Code)

			if tt.wantResponse != nil {
				var response api.SeatMapResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				s.Require().NoError(err, "Failed to decode response")

				diff := cmp.Diff(tt.wantResponse, &response)
				s.Empty(diff, "Response mismatch (-want +got):\n%s", diff)
			}

			checkErrorResponse(s.T(), w, struct {
				wantStatus     int
				wantErrMessage string
			}{
				wantStatus:     tt.wantStatus,
				wantErrMessage: tt.wantErrMessage,
			})
		})
	}
}
