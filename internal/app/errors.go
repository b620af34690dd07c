package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/movie-booking-system/api"
	"github.com/metinatakli/movie-booking-system/internal/domain"
	appvalidator "github.com/metinatakli/movie-booking-system/internal/validator"
)

const (
	ErrInternalServer      = "The server encountered a problem and could not process your request"
	ErrNotFound            = "The requested resource not found"
	ErrUnauthorizedAccess  = "You must be authenticated to access this resource"
	ErrInvalidAccessToken  = "Invalid or expired access token"
	ErrFailedValidation    = "One or more fields have invalid values"
	ErrGatewayUnavailable  = "The payment gateway could not process the request, please try again"
	ErrInvalidNotification = "Notification signature could not be verified"
	ErrMethodNotAllowed    = "The method is not supported for this resource"
)

func (app *application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.contextGetLogger(r).Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := api.ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, ErrInternalServer)
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, ErrNotFound)
}

func (app *application) notFoundResponseWithErr(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusNotFound, err.Error())
}

func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *application) unauthorizedAccessResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.errorResponse(w, r, http.StatusUnauthorized, ErrUnauthorizedAccess)
}

func (app *application) invalidAccessTokenResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.errorResponse(w, r, http.StatusUnauthorized, ErrInvalidAccessToken)
}

func (app *application) editConflictResponseWithErr(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusConflict, err.Error())
}

func (app *application) unprocessableEntityResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
}

func (app *application) badGatewayResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusBadGateway, ErrGatewayUnavailable)
}

func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		app.unprocessableEntityResponse(w, r, err)
		return
	}

	issues := make([]api.ValidationError, 0, len(validationErrors))
	for _, e := range validationErrors {
		issues = append(issues, api.ValidationError{
			Field: e.Field(),
			Issue: appvalidator.ValidationMessage(e),
		})
	}

	app.validationErrorsResponse(w, r, issues)
}

func (app *application) validationErrorsResponse(w http.ResponseWriter, r *http.Request, issues []api.ValidationError) {
	resp := api.ValidationErrorResponse{
		Message:          ErrFailedValidation,
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
		ValidationErrors: issues,
	}

	err := app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

// serviceErrorResponse maps an error returned by the booking or payment
// services to its HTTP response.
func (app *application) serviceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logger := app.contextGetLogger(r)

	switch {
	case errors.Is(err, domain.ErrValidation):
		logger.Warn("request rejected", "error", err)
		app.unprocessableEntityResponse(w, r, err)
	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidState):
		logger.Warn("request conflicts with current state", "error", err)
		app.editConflictResponseWithErr(w, r, err)
	case errors.Is(err, domain.ErrGateway):
		app.badGatewayResponse(w, r, err)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
