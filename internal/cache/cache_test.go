package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/go-cmp/cmp"
	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/metinatakli/movie-booking-system/internal/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func mustJSON(t *testing.T, v any) string {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	return string(b)
}

func TestCatalog_GetShowtimeById(t *testing.T) {
	showtime := &domain.Showtime{
		ID:        7,
		FilmID:    3,
		TheaterID: 2,
		Price:     decimal.RequireFromString("50000.00"),
		StartsAt:  time.Date(2025, 3, 16, 19, 0, 0, 0, time.UTC),
	}

	t.Run("reads through on a miss and stores the result", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		repo := new(mocks.MockCatalogRepo)
		catalog := NewCatalog(repo, client, time.Minute, discardLogger)

		redisMock.ExpectGet("catalog:showtime:7").RedisNil()
		repo.On("GetShowtimeById", mock.Anything, 7).Return(showtime, nil).Once()
		redisMock.ExpectSet("catalog:showtime:7", mustJSON(t, showtime), time.Minute).SetVal("OK")

		got, err := catalog.GetShowtimeById(context.Background(), 7)

		require.NoError(t, err)
		assert.True(t, showtime.Price.Equal(got.Price))
		assert.NoError(t, redisMock.ExpectationsWereMet())
		repo.AssertExpectations(t)
	})

	t.Run("serves a hit without touching the store", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		repo := new(mocks.MockCatalogRepo)
		catalog := NewCatalog(repo, client, time.Minute, discardLogger)

		redisMock.ExpectGet("catalog:showtime:7").SetVal(mustJSON(t, showtime))

		got, err := catalog.GetShowtimeById(context.Background(), 7)

		require.NoError(t, err)
		assert.Equal(t, 3, got.FilmID)
		assert.True(t, showtime.StartsAt.Equal(got.StartsAt))
		assert.NoError(t, redisMock.ExpectationsWereMet())
		repo.AssertNotCalled(t, "GetShowtimeById", mock.Anything, mock.Anything)
	})

	t.Run("falls back to the store when redis is unavailable", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		repo := new(mocks.MockCatalogRepo)
		catalog := NewCatalog(repo, client, time.Minute, discardLogger)

		redisMock.ExpectGet("catalog:showtime:7").SetErr(errors.New("connection refused"))
		repo.On("GetShowtimeById", mock.Anything, 7).Return(showtime, nil).Once()
		redisMock.ExpectSet("catalog:showtime:7", mustJSON(t, showtime), time.Minute).
			SetErr(errors.New("connection refused"))

		got, err := catalog.GetShowtimeById(context.Background(), 7)

		require.NoError(t, err)
		assert.Equal(t, 7, got.ID)
		repo.AssertExpectations(t)
	})

	t.Run("does not cache a missing showtime", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		repo := new(mocks.MockCatalogRepo)
		catalog := NewCatalog(repo, client, time.Minute, discardLogger)

		redisMock.ExpectGet("catalog:showtime:404").RedisNil()
		repo.On("GetShowtimeById", mock.Anything, 404).Return(nil, domain.ErrRecordNotFound).Once()

		_, err := catalog.GetShowtimeById(context.Background(), 404)

		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

func TestCatalog_GetSeatsForTheater(t *testing.T) {
	seats := []domain.Seat{
		{ID: 11, TheaterID: 2, Label: "A1"},
		{ID: 12, TheaterID: 2, Label: "A2"},
	}

	client, redisMock := redismock.NewClientMock()
	repo := new(mocks.MockCatalogRepo)
	catalog := NewCatalog(repo, client, 0, discardLogger)

	redisMock.ExpectGet("catalog:theater:2:seats").RedisNil()
	repo.On("GetSeatsForTheater", mock.Anything, 2).Return(seats, nil).Once()
	redisMock.ExpectSet("catalog:theater:2:seats", mustJSON(t, seats), DefaultCatalogTTL).SetVal("OK")

	got, err := catalog.GetSeatsForTheater(context.Background(), 2)
	require.NoError(t, err)

	if diff := cmp.Diff(seats, got); diff != "" {
		t.Errorf("seats mismatch (-want +got):\n%s", diff)
	}

	redisMock.ExpectGet("catalog:theater:2:seats").SetVal(mustJSON(t, seats))

	got, err = catalog.GetSeatsForTheater(context.Background(), 2)
	require.NoError(t, err)

	if diff := cmp.Diff(seats, got); diff != "" {
		t.Errorf("cached seats mismatch (-want +got):\n%s", diff)
	}

	assert.NoError(t, redisMock.ExpectationsWereMet())
	repo.AssertExpectations(t)
}

func TestKeysFor(t *testing.T) {
	tests := []struct {
		payload string
		want    []string
		wantErr bool
	}{
		{payload: "showtime:7", want: []string{"catalog:showtime:7"}},
		{payload: "film:3", want: []string{"catalog:film:3"}},
		{payload: "theater:2", want: []string{"catalog:theater:2", "catalog:theater:2:seats"}},
		{payload: "seat:2", wantErr: true},
		{payload: "booking:1", wantErr: true},
		{payload: "showtime", wantErr: true},
		{payload: "showtime:abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, err := KeysFor(tt.payload)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_Invalidate(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	catalog := NewCatalog(new(mocks.MockCatalogRepo), client, time.Minute, discardLogger)

	redisMock.ExpectDel("catalog:theater:2", "catalog:theater:2:seats").SetVal(2)

	err := catalog.Invalidate(context.Background(), "theater:2")

	require.NoError(t, err)
	assert.NoError(t, redisMock.ExpectationsWereMet())

	assert.Error(t, catalog.Invalidate(context.Background(), "unknown:1"))
}

func TestStatusCache_GetTransactionStatus(t *testing.T) {
	status := &domain.TransactionStatus{GatewayTxnID: "CNM-1-1", Status: "pending", Method: "qris"}

	t.Run("calls the gateway on a miss", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		gateway := new(mocks.MockPaymentGateway)
		cached := NewStatusCache(gateway, client, 0, discardLogger)

		redisMock.ExpectGet("payment:status:CNM-1-1").RedisNil()
		gateway.On("GetTransactionStatus", mock.Anything, "CNM-1-1").Return(status, nil).Once()
		redisMock.ExpectSet("payment:status:CNM-1-1", mustJSON(t, status), DefaultStatusTTL).SetVal("OK")

		got, err := cached.GetTransactionStatus(context.Background(), "CNM-1-1")

		require.NoError(t, err)
		assert.Equal(t, status, got)
		assert.NoError(t, redisMock.ExpectationsWereMet())
		gateway.AssertExpectations(t)
	})

	t.Run("answers from redis on a hit", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		gateway := new(mocks.MockPaymentGateway)
		cached := NewStatusCache(gateway, client, 0, discardLogger)

		redisMock.ExpectGet("payment:status:CNM-1-1").SetVal(mustJSON(t, status))

		got, err := cached.GetTransactionStatus(context.Background(), "CNM-1-1")

		require.NoError(t, err)
		assert.Equal(t, status, got)
		gateway.AssertNotCalled(t, "GetTransactionStatus", mock.Anything, mock.Anything)
	})

	t.Run("does not cache gateway failures", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		gateway := new(mocks.MockPaymentGateway)
		cached := NewStatusCache(gateway, client, 0, discardLogger)

		redisMock.ExpectGet("payment:status:CNM-1-1").RedisNil()
		gateway.On("GetTransactionStatus", mock.Anything, "CNM-1-1").Return(nil, domain.ErrGateway).Once()

		_, err := cached.GetTransactionStatus(context.Background(), "CNM-1-1")

		assert.ErrorIs(t, err, domain.ErrGateway)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

type recordingInvalidator struct {
	payloads []string
	err      error
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, payload string) error {
	r.payloads = append(r.payloads, payload)
	return r.err
}

func TestListener_Handle(t *testing.T) {
	inv := &recordingInvalidator{err: errors.New("redis down")}
	listener := &Listener{invalidator: inv, logger: discardLogger}

	listener.handle(context.Background(), "film:3")
	listener.handle(context.Background(), "theater:2")

	assert.Equal(t, []string{"film:3", "theater:2"}, inv.payloads)
}
