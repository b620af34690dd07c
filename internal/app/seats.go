package app

import (
	"net/http"

	"github.com/metinatakli/movie-booking-system/api"
	"github.com/metinatakli/movie-booking-system/internal/domain"
)

func (app *application) GetSeatAvailability(w http.ResponseWriter, r *http.Request) {
	filmId, err := app.readIdParam(r, "filmId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	showtimeId, err := app.readIdParam(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	seatMap, err := app.bookings.GetSeatAvailability(r.Context(), filmId, showtimeId)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toSeatMapResponse(seatMap), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toSeatMapResponse(seatMap *domain.SeatMap) api.SeatMapResponse {
	seats := make([]api.SeatResponse, len(seatMap.Seats))

	for i, v := range seatMap.Seats {
		seats[i] = api.SeatResponse{
			Id:        v.ID,
			Label:     v.Label,
			Available: v.Available,
		}
	}

	return api.SeatMapResponse{
		FilmId:        seatMap.Film.ID,
		FilmTitle:     seatMap.Film.Title,
		FilmPosterUrl: seatMap.Film.PosterUrl,
		Showtime: api.ShowtimeSummary{
			Id:          seatMap.Showtime.ID,
			StartsAt:    seatMap.Showtime.StartsAt,
			Price:       seatMap.Showtime.Price,
			TheaterId:   seatMap.Theater.ID,
			TheaterName: seatMap.Theater.Name,
		},
		Seats: seats,
	}
}
