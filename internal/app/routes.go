package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
)

const serviceName = "movie-booking-api"

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(app.logRequest)
	r.Use(app.recoverPanic)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthcheck", app.GetHealth)

		// Gateways sign the raw body, so the webhook is neither authenticated
		// nor rewritten by request validation.
		r.Post("/webhooks/payments", app.HandlePaymentNotification)

		r.Group(func(r chi.Router) {
			r.Use(app.requireAuthentication)
			r.Use(app.validateRequest)

			r.Get("/films/{filmId}/showtimes/{showtimeId}/seats", app.GetSeatAvailability)
			r.Post("/showtimes/{showtimeId}/bookings", app.CreateBooking)

			r.Route("/bookings/{bookingId}", func(r chi.Router) {
				r.Get("/", app.GetBooking)
				r.Post("/history", app.RecordBookingHistory)
				r.Post("/payment", app.InitiatePayment)
			})

			r.Get("/users/me/booking-history", app.ListBookingHistory)
			r.Get("/payments/{gatewayTxnId}/status", app.PollPaymentStatus)
		})
	})

	return r
}
