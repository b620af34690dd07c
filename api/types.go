// Package api holds the HTTP request and response bodies and the OpenAPI
// document that requests are validated against.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
}

type SeatResponse struct {
	Id        int    `json:"id"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
}

type ShowtimeSummary struct {
	Id          int             `json:"id"`
	StartsAt    time.Time       `json:"startsAt"`
	Price       decimal.Decimal `json:"price"`
	TheaterId   int             `json:"theaterId"`
	TheaterName string          `json:"theaterName"`
}

type SeatMapResponse struct {
	FilmId        int             `json:"filmId"`
	FilmTitle     string          `json:"filmTitle"`
	FilmPosterUrl string          `json:"filmPosterUrl"`
	Showtime      ShowtimeSummary `json:"showtime"`
	Seats         []SeatResponse  `json:"seats"`
}

type CreateBookingRequest struct {
	SeatIds  []int `json:"seatIds" validate:"seat_ids"`
	Quantity int   `json:"quantity" validate:"gt=0,max=10"`
}

type BookingResponse struct {
	Id          int             `json:"id"`
	UserId      int             `json:"userId"`
	ShowtimeId  int             `json:"showtimeId"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      string          `json:"status"`
	SeatIds     []int           `json:"seatIds"`
	BookedAt    time.Time       `json:"bookedAt"`
}

type BookingDetailResponse struct {
	Id            int             `json:"id"`
	ShowtimeId    int             `json:"showtimeId"`
	FilmTitle     string          `json:"filmTitle"`
	FilmPosterUrl string          `json:"filmPosterUrl"`
	TheaterName   string          `json:"theaterName"`
	ShowtimeDate  time.Time       `json:"showtimeDate"`
	Quantity      int             `json:"quantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        string          `json:"status"`
	PaymentStatus *string         `json:"paymentStatus,omitempty"`
	Seats         []string        `json:"seats"`
	BookedAt      time.Time       `json:"bookedAt"`
}

type RecordHistoryRequest struct {
	ShowtimeId int `json:"showtimeId" validate:"gt=0"`
}

type BookingHistoryResponse struct {
	Id         int       `json:"id"`
	BookingId  int       `json:"bookingId"`
	ShowtimeId int       `json:"showtimeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type BookingHistoryEntry struct {
	Id            int             `json:"id"`
	BookingId     int             `json:"bookingId"`
	ShowtimeId    int             `json:"showtimeId"`
	FilmTitle     string          `json:"filmTitle"`
	FilmPosterUrl string          `json:"filmPosterUrl"`
	TheaterName   string          `json:"theaterName"`
	ShowtimeDate  time.Time       `json:"showtimeDate"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type BookingHistoryListResponse struct {
	History  []BookingHistoryEntry `json:"history"`
	Metadata Metadata              `json:"metadata"`
}

type PaginationParams struct {
	Page     int `validate:"min=1,max=10000"`
	PageSize int `validate:"min=1,max=100"`
}

type PaymentResponse struct {
	Id           int             `json:"id"`
	BookingId    int             `json:"bookingId"`
	GatewayTxnId string          `json:"gatewayTxnId"`
	Token        string          `json:"token"`
	RedirectUrl  string          `json:"redirectUrl"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"method"`
	Status       string          `json:"status"`
}

type PaymentStatusResponse struct {
	GatewayTxnId  string     `json:"gatewayTxnId"`
	BookingId     int        `json:"bookingId"`
	PaymentStatus string     `json:"paymentStatus"`
	BookingStatus string     `json:"bookingStatus"`
	Method        string     `json:"method"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}
