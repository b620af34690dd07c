package app

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/metinatakli/movie-booking-system/api"
	"github.com/metinatakli/movie-booking-system/internal/domain"
)

// signatureHeader carries the Stripe webhook signature. Midtrans signs inside
// the body and leaves it empty.
const signatureHeader = "Stripe-Signature"

func (app *application) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	bookingId, err := app.readIdParam(r, "bookingId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	payment, err := app.payments.InitiatePayment(r.Context(), app.contextGetUserId(r), bookingId)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	logger.Info("payment initiated", "booking_id", bookingId, "gateway_txn_id", payment.GatewayTxnID)

	resp := api.PaymentResponse{
		Id:           payment.ID,
		BookingId:    payment.BookingID,
		GatewayTxnId: payment.GatewayTxnID,
		Token:        payment.Token,
		RedirectUrl:  payment.RedirectUrl,
		Amount:       payment.Amount,
		Method:       payment.Method,
		Status:       string(payment.Status),
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) PollPaymentStatus(w http.ResponseWriter, r *http.Request) {
	input := struct {
		GatewayTxnId string `validate:"gateway_txn_id"`
	}{
		GatewayTxnId: chi.URLParam(r, "gatewayTxnId"),
	}

	err := app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	result, err := app.payments.PollPaymentStatus(r.Context(), app.contextGetUserId(r), input.GatewayTxnId)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	resp := api.PaymentStatusResponse{
		GatewayTxnId:  result.Payment.GatewayTxnID,
		BookingId:     result.Booking.ID,
		PaymentStatus: string(result.Payment.Status),
		BookingStatus: string(result.Booking.Status),
		Method:        result.Payment.Method,
		PaidAt:        result.Payment.PaidAt,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// HandlePaymentNotification receives asynchronous gateway notifications. Any
// 2xx tells the gateway to stop retrying, so only authenticated and applied
// (or deliberately ignored) notifications are acknowledged.
func (app *application) HandlePaymentNotification(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	result, err := app.payments.HandleNotification(r.Context(), payload, r.Header.Get(signatureHeader))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			logger.Warn("payment notification rejected", "error", err)
			app.errorResponse(w, r, http.StatusUnauthorized, ErrInvalidNotification)
			return
		}

		app.serviceErrorResponse(w, r, err)
		return
	}

	if result == nil {
		logger.Debug("payment notification ignored")
	} else {
		logger.Info("payment notification processed",
			"gateway_txn_id", result.Payment.GatewayTxnID,
			"booking_id", result.Booking.ID,
			"booking_status", result.Booking.Status,
			"applied", result.Applied)
	}

	err = app.writeJSON(w, http.StatusOK, api.WebhookResponse{Received: true}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
