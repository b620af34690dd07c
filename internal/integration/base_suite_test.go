package integration_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/movie-booking-system/internal/booking"
	"github.com/metinatakli/movie-booking-system/internal/cache"
	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/metinatakli/movie-booking-system/internal/events"
	"github.com/metinatakli/movie-booking-system/internal/mailer"
	"github.com/metinatakli/movie-booking-system/internal/payment"
	"github.com/metinatakli/movie-booking-system/internal/repository"
	"github.com/metinatakli/movie-booking-system/internal/sweeper"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	testUserId       = 1
	otherUserId      = 2
	thirdUserId      = 3
	testShowtimeId   = 1
	testFilmId       = 1
	testUserEmail    = "john@example.com"
	sweeperGrace     = 10 * time.Minute
	cacheInvalidWait = 5 * time.Second
)

// TestApp wires the booking core against real Postgres and Redis instances.
type TestApp struct {
	DB          *pgxpool.Pool
	RedisClient *redis.Client
	Bookings    *booking.Service
	Reconciler  *payment.Reconciler
	Gateway     *payment.FakeGateway
	Mailer      *mailer.MockMailer
	BookingRepo *repository.PostgresBookingRepository
	Logger      *slog.Logger
}

func (a *TestApp) NewSweeper(now func() time.Time) *sweeper.Sweeper {
	return sweeper.New(a.BookingRepo, events.NewLogPublisher(a.Logger), a.Logger,
		sweeper.Config{Interval: time.Minute, Grace: sweeperGrace, BatchSize: 100},
		sweeper.WithClock(now))
}

type BaseSuite struct {
	suite.Suite
	app            *TestApp
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer
	stopListener   context.CancelFunc
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	dbContainer, err := getDbContainer(ctx)
	s.Require().NoError(err)
	s.dbContainer = dbContainer

	cacheContainer, err := getCacheContainer(ctx)
	s.Require().NoError(err)
	s.cacheContainer = cacheContainer

	db, err := pgxpool.New(ctx, dbContainer.ConnectionString)
	s.Require().NoError(err)

	opts, err := redis.ParseURL(cacheContainer.ConnectionString)
	s.Require().NoError(err)
	redisClient := redis.NewClient(opts)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	publisher := events.NewLogPublisher(logger)
	gateway := payment.NewFakeGateway()
	mockMailer := mailer.NewMockMailer()

	bookingRepo := repository.NewPostgresBookingRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)
	userRepo := repository.NewPostgresUserRepository(db)
	catalog := cache.NewCatalog(repository.NewPostgresCatalogRepository(db), redisClient, time.Minute, logger)

	listenerCtx, cancel := context.WithCancel(ctx)
	s.stopListener = cancel
	go cache.NewListener(db, catalog, logger).Run(listenerCtx)

	s.app = &TestApp{
		DB:          db,
		RedisClient: redisClient,
		Bookings:    booking.NewService(bookingRepo, catalog, publisher, logger),
		Reconciler:  payment.NewReconciler(bookingRepo, paymentRepo, userRepo, gateway, publisher, mockMailer, logger),
		Gateway:     gateway,
		Mailer:      mockMailer,
		BookingRepo: bookingRepo,
		Logger:      logger,
	}
}

func (s *BaseSuite) SetupTest() {
	t := s.T()

	executeSQLFile(t, s.app.DB, "testdata/seed_down.sql")
	executeSQLFile(t, s.app.DB, "testdata/seed_up.sql")
	flushAllCache(t, s.app.RedisClient)
	s.app.Mailer.Reset()
}

func (s *BaseSuite) TearDownSuite() {
	if s.stopListener != nil {
		s.stopListener()
	}

	if s.app != nil {
		s.app.Reconciler.Wait()
		s.app.RedisClient.Close()
		s.app.DB.Close()
	}

	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container); err != nil {
			s.T().Logf("failed to terminate container: %s", err)
		}
	}

	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			s.T().Logf("failed to terminate container: %s", err)
		}
	}
}

func executeSQLFile(t testing.TB, db *pgxpool.Pool, path string) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = db.Exec(context.Background(), string(content))
	require.NoError(t, err)
}

func flushAllCache(t testing.TB, client *redis.Client) {
	t.Helper()

	require.NoError(t, client.FlushAll(context.Background()).Err())
}

func (s *BaseSuite) createBooking(userId int, seatIds ...int) *domain.Booking {
	b, err := s.app.Bookings.CreateBooking(context.Background(), booking.CreateBookingInput{
		UserID:     userId,
		ShowtimeID: testShowtimeId,
		SeatIDs:    seatIds,
		Quantity:   len(seatIds),
	})
	s.Require().NoError(err)

	return b
}
