package app

import (
	"net/http"

	"github.com/metinatakli/movie-booking-system/api"
	"github.com/metinatakli/movie-booking-system/internal/booking"
	"github.com/metinatakli/movie-booking-system/internal/domain"
)

func (app *application) CreateBooking(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showtimeId, err := app.readIdParam(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.CreateBookingRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	b, err := app.bookings.CreateBooking(r.Context(), booking.CreateBookingInput{
		UserID:     app.contextGetUserId(r),
		ShowtimeID: showtimeId,
		SeatIDs:    input.SeatIds,
		Quantity:   input.Quantity,
	})
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	logger.Info("booking created", "booking_id", b.ID, "showtime_id", showtimeId, "seats", len(b.SeatIDs))

	err = app.writeJSON(w, http.StatusCreated, toBookingResponse(b), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingId, err := app.readIdParam(r, "bookingId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	detail, err := app.bookings.GetBooking(r.Context(), app.contextGetUserId(r), bookingId)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toBookingDetailResponse(detail), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) RecordBookingHistory(w http.ResponseWriter, r *http.Request) {
	bookingId, err := app.readIdParam(r, "bookingId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.RecordHistoryRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	history, err := app.bookings.RecordBookingHistory(r.Context(), app.contextGetUserId(r), bookingId, input.ShowtimeId)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	resp := api.BookingHistoryResponse{
		Id:         history.ID,
		BookingId:  history.BookingID,
		ShowtimeId: history.ShowtimeID,
		CreatedAt:  history.CreatedAt,
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) ListBookingHistory(w http.ResponseWriter, r *http.Request) {
	var params api.PaginationParams
	var err error

	params.Page, err = app.readInt(r, "page", DefaultPage)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	params.PageSize, err = app.readInt(r, "pageSize", DefaultPageSize)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(params)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	pagination := domain.Pagination{Page: params.Page, PageSize: params.PageSize}

	entries, metadata, err := app.bookings.ListBookingHistory(r.Context(), app.contextGetUserId(r), pagination)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	resp := api.BookingHistoryListResponse{
		History:  toBookingHistoryEntries(entries),
		Metadata: toApiMetadata(metadata),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toBookingResponse(b *domain.Booking) api.BookingResponse {
	return api.BookingResponse{
		Id:          b.ID,
		UserId:      b.UserID,
		ShowtimeId:  b.ShowtimeID,
		Quantity:    b.Quantity,
		TotalAmount: b.TotalAmount,
		Status:      string(b.Status),
		SeatIds:     b.SeatIDs,
		BookedAt:    b.BookedAt,
	}
}

func toBookingDetailResponse(d *domain.BookingDetail) api.BookingDetailResponse {
	resp := api.BookingDetailResponse{
		Id:            d.BookingID,
		ShowtimeId:    d.ShowtimeID,
		FilmTitle:     d.FilmTitle,
		FilmPosterUrl: d.FilmPosterUrl,
		TheaterName:   d.TheaterName,
		ShowtimeDate:  d.ShowtimeDate,
		Quantity:      d.Quantity,
		TotalAmount:   d.TotalAmount,
		Status:        string(d.Status),
		Seats:         d.SeatLabels,
		BookedAt:      d.BookedAt,
	}

	if d.PaymentStatus != nil {
		status := string(*d.PaymentStatus)
		resp.PaymentStatus = &status
	}

	return resp
}

func toBookingHistoryEntries(entries []domain.BookingHistoryEntry) []api.BookingHistoryEntry {
	history := make([]api.BookingHistoryEntry, len(entries))

	for i, v := range entries {
		entry := &history[i]

		entry.Id = v.ID
		entry.BookingId = v.BookingID
		entry.ShowtimeId = v.ShowtimeID
		entry.FilmTitle = v.FilmTitle
		entry.FilmPosterUrl = v.FilmPosterUrl
		entry.TheaterName = v.TheaterName
		entry.ShowtimeDate = v.ShowtimeDate
		entry.Status = string(v.Status)
		entry.TotalAmount = v.TotalAmount
		entry.CreatedAt = v.CreatedAt
	}

	return history
}

func toApiMetadata(metadata *domain.Metadata) api.Metadata {
	if metadata == nil {
		return api.Metadata{}
	}

	return api.Metadata{
		CurrentPage:  metadata.CurrentPage,
		FirstPage:    metadata.FirstPage,
		LastPage:     metadata.LastPage,
		PageSize:     metadata.PageSize,
		TotalRecords: metadata.TotalRecords,
	}
}
