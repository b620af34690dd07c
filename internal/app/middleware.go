package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/metinatakli/movie-booking-system/api"
)

const userRole = "user"

// accessClaims are the claims carried by access tokens issued by the auth
// service. The subject is the user id.
type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")

				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// logRequest attaches a request scoped logger to the context and logs the
// outcome of every request.
func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := app.logger.With(
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"uri", r.URL.RequestURI(),
		)

		r = app.contextSetLogger(r, logger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.InfoContext(r.Context(), "request completed",
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String())
	})
}

func (app *application) requireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		header := r.Header.Get("Authorization")
		if header == "" {
			app.unauthorizedAccessResponse(w, r)
			return
		}

		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			app.invalidAccessTokenResponse(w, r)
			return
		}

		userId, err := app.parseAccessToken(raw)
		if err != nil {
			app.contextGetLogger(r).Warn("access token rejected", "error", err)
			app.invalidAccessTokenResponse(w, r)
			return
		}

		r = app.contextSetUserId(r, userId)
		r = app.contextSetLogger(r, app.contextGetLogger(r).With("user_id", userId))

		next.ServeHTTP(w, r)
	})
}

func (app *application) parseAccessToken(raw string) (int, error) {
	var claims accessClaims

	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return []byte(app.config.Auth.JwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, err
	}

	if claims.Role != userRole {
		return 0, fmt.Errorf("unexpected role %q", claims.Role)
	}

	userId, err := strconv.Atoi(claims.Subject)
	if err != nil || userId < 1 {
		return 0, fmt.Errorf("invalid subject %q", claims.Subject)
	}

	return userId, nil
}

// validateRequest checks path, query and body against the OpenAPI document.
// Requests for routes the document does not describe pass through untouched.
func (app *application) validateRequest(next http.Handler) http.Handler {
	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := app.openapiRouter.FindRoute(r)
		if err != nil {
			if errors.Is(err, routers.ErrMethodNotAllowed) {
				app.methodNotAllowedResponse(w, r)
				return
			}

			next.ServeHTTP(w, r)
			return
		}

		err = openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options:    options,
		})
		if err != nil {
			app.contextGetLogger(r).Warn("request does not match the api document", "error", err)
			app.validationErrorsResponse(w, r, openapiIssues(err))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func openapiIssues(err error) []api.ValidationError {
	var requestErr *openapi3filter.RequestError
	if !errors.As(err, &requestErr) {
		return []api.ValidationError{{Field: "request", Issue: err.Error()}}
	}

	field := "body"
	if requestErr.Parameter != nil {
		field = requestErr.Parameter.Name
	}

	issue := requestErr.Reason

	var schemaErr *openapi3.SchemaError
	if errors.As(requestErr.Err, &schemaErr) {
		issue = schemaErr.Reason
		if pointer := schemaErr.JSONPointer(); requestErr.Parameter == nil && len(pointer) > 0 {
			field = strings.Join(pointer, ".")
		}
	}

	if issue == "" {
		issue = requestErr.Error()
	}

	return []api.ValidationError{{Field: field, Issue: issue}}
}
