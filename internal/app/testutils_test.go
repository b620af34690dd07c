package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/metinatakli/movie-booking-system/api"
	"github.com/metinatakli/movie-booking-system/internal/booking"
	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/metinatakli/movie-booking-system/internal/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testJwtSecret = "test-jwt-secret"

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) RecordBookingHistory(
	ctx context.Context,
	userId,
	bookingId,
	showtimeId int) (*domain.BookingHistory, error) {

	args := m.Called(ctx, userId, bookingId, showtimeId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingHistory), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, userId, bookingId int) (*domain.BookingDetail, error) {
	args := m.Called(ctx, userId, bookingId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingDetail), args.Error(1)
}

func (m *MockBookingService) ListBookingHistory(
	ctx context.Context,
	userId int,
	pagination domain.Pagination) ([]domain.BookingHistoryEntry, *domain.Metadata, error) {

	args := m.Called(ctx, userId, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.BookingHistoryEntry), args.Get(1).(*domain.Metadata), args.Error(2)
}

func (m *MockBookingService) GetSeatAvailability(ctx context.Context, filmId, showtimeId int) (*domain.SeatMap, error) {
	args := m.Called(ctx, filmId, showtimeId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SeatMap), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) InitiatePayment(ctx context.Context, userId, bookingId int) (*domain.Payment, error) {
	args := m.Called(ctx, userId, bookingId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) PollPaymentStatus(
	ctx context.Context,
	userId int,
	gatewayTxnId string) (*domain.ReconcileResult, error) {

	args := m.Called(ctx, userId, gatewayTxnId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconcileResult), args.Error(1)
}

func (m *MockPaymentService) HandleNotification(
	ctx context.Context,
	payload []byte,
	signature string) (*domain.ReconcileResult, error) {

	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconcileResult), args.Error(1)
}

func newTestApplication(t *testing.T, opts ...func(*application)) *application {
	openapiRouter, err := newOpenapiRouter()
	require.NoError(t, err)

	app := &application{
		validator:     validator.NewValidator(),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		openapiRouter: openapiRouter,
		bookings:      &MockBookingService{},
		payments:      &MockPaymentService{},
	}

	app.config.Env = "test"
	app.config.Auth.JwtSecret = testJwtSecret

	for _, opt := range opts {
		opt(app)
	}

	return app
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	var reader io.Reader = http.NoBody

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

// authenticate signs an access token for userId and attaches it to r.
func authenticate(t *testing.T, r *http.Request, userId int) *http.Request {
	token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.Itoa(userId),
		"role": userRole,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	r.Header.Set("Authorization", "Bearer "+token)

	return r
}

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.Claims) string {
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testJwtSecret))
	require.NoError(t, err)

	return token
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, tt struct {
	wantStatus     int
	wantErrMessage string
}) {
	if tt.wantStatus >= 200 && tt.wantStatus < 300 {
		return
	}

	var validationResp api.ValidationErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}

	if tt.wantErrMessage == "" {
		return
	}

	if tt.wantStatus == http.StatusUnprocessableEntity && len(validationResp.ValidationErrors) > 0 {
		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[tt.wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in %+v", tt.wantErrMessage, validationResp.ValidationErrors)
		}
		return
	}

	if validationResp.Message != tt.wantErrMessage {
		t.Errorf("Error message = %v, want %v", validationResp.Message, tt.wantErrMessage)
	}
}

func ptr[T any](v T) *T {
	return &v
}
