package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/movie-booking-system/api"
	"github.com/metinatakli/movie-booking-system/internal/booking"
	"github.com/metinatakli/movie-booking-system/internal/cache"
	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/metinatakli/movie-booking-system/internal/events"
	"github.com/metinatakli/movie-booking-system/internal/mailer"
	"github.com/metinatakli/movie-booking-system/internal/payment"
	"github.com/metinatakli/movie-booking-system/internal/repository"
	"github.com/metinatakli/movie-booking-system/internal/sweeper"
	appvalidator "github.com/metinatakli/movie-booking-system/internal/validator"
	"github.com/metinatakli/movie-booking-system/internal/vcs"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var (
	version = vcs.Version()
)

type bookingService interface {
	CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error)
	RecordBookingHistory(ctx context.Context, userId, bookingId, showtimeId int) (*domain.BookingHistory, error)
	GetBooking(ctx context.Context, userId, bookingId int) (*domain.BookingDetail, error)
	ListBookingHistory(ctx context.Context, userId int, pagination domain.Pagination) ([]domain.BookingHistoryEntry, *domain.Metadata, error)
	GetSeatAvailability(ctx context.Context, filmId, showtimeId int) (*domain.SeatMap, error)
}

type paymentService interface {
	InitiatePayment(ctx context.Context, userId, bookingId int) (*domain.Payment, error)
	PollPaymentStatus(ctx context.Context, userId int, gatewayTxnId string) (*domain.ReconcileResult, error)
	HandleNotification(ctx context.Context, payload []byte, signature string) (*domain.ReconcileResult, error)
}

// worker is a long running background task stopped by cancelling its context.
type worker interface {
	Run(ctx context.Context)
}

type application struct {
	config        Config
	logger        *slog.Logger
	validator     *validator.Validate
	openapiRouter routers.Router

	bookings bookingService
	payments paymentService

	workers []worker
	// drain blocks until in-flight background deliveries finish.
	drain func()
}

// Run starts the HTTP API together with the in-process background workers and
// blocks until the server has shut down.
func Run() error {
	cfg, displayVersion, err := parseConfig("api", os.Args[1:])
	if err != nil {
		return err
	}

	if displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		return nil
	}

	logger, shutdownTelemetry, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.Migrate {
		err = repository.Migrate(cfg.DB.Dsn)
		if err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	db, err := newDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	publisher, err := newEventPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	gateway, err := newPaymentGateway(cfg)
	if err != nil {
		return err
	}

	gateway = cache.NewStatusCache(
		payment.WithTimeout(gateway, cfg.Payment.GatewayTimeout),
		redisClient,
		cfg.Redis.StatusTTL,
		logger,
	)

	bookingRepo := repository.NewPostgresBookingRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)
	userRepo := repository.NewPostgresUserRepository(db)
	catalog := cache.NewCatalog(repository.NewPostgresCatalogRepository(db), redisClient, cfg.Redis.CatalogTTL, logger)

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)

	reconciler := payment.NewReconciler(bookingRepo, paymentRepo, userRepo, gateway, publisher, smtpMailer, logger)

	workers := []worker{cache.NewListener(db, catalog, logger)}
	if cfg.Sweeper.Enabled {
		workers = append(workers, newSweeper(cfg, bookingRepo, publisher, logger))
	}

	openapiRouter, err := newOpenapiRouter()
	if err != nil {
		return err
	}

	app := &application{
		config:        cfg,
		logger:        logger,
		validator:     appvalidator.NewValidator(),
		openapiRouter: openapiRouter,
		bookings:      booking.NewService(bookingRepo, catalog, publisher, logger),
		payments:      reconciler,
		workers:       workers,
		drain:         reconciler.Wait,
	}

	return app.run()
}

// RunSweeper runs the expiration sweeper as a standalone process until it
// receives SIGINT or SIGTERM.
func RunSweeper() error {
	cfg, displayVersion, err := parseConfig("sweeper", os.Args[1:])
	if err != nil {
		return err
	}

	if displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		return nil
	}

	logger, shutdownTelemetry, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	db, err := newDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	publisher, err := newEventPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := newSweeper(cfg, repository.NewPostgresBookingRepository(db), publisher, logger)
	s.Run(ctx)

	return nil
}

func newLogger(cfg Config) (*slog.Logger, func(context.Context), error) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	shutdown, err := InitTelemetry(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	if cfg.OtelCollectorUrl != "" {
		logger = slog.New(NewMultiHandler(logger.Handler(), otelslog.NewHandler(serviceName)))
	}

	return logger, shutdown, nil
}

func newSweeper(cfg Config, bookingRepo domain.BookingRepository, publisher domain.EventPublisher, logger *slog.Logger) *sweeper.Sweeper {
	return sweeper.New(bookingRepo, publisher, logger, sweeper.Config{
		Interval:  cfg.Sweeper.Interval,
		Grace:     cfg.Sweeper.Grace,
		BatchSize: cfg.Sweeper.BatchSize,
	})
}

func newOpenapiRouter() (routers.Router, error) {
	swagger, err := api.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("loading api document: %w", err)
	}

	return gorillamux.NewRouter(swagger)
}

func newEventPublisher(cfg Config, logger *slog.Logger) (domain.EventPublisher, error) {
	switch cfg.Events.Driver {
	case "", "log":
		return events.NewLogPublisher(logger), nil
	case "amqp":
		return events.NewAMQPPublisher(cfg.Events.AmqpUrl, cfg.Events.AmqpExchange, logger)
	case "kafka":
		return events.NewKafkaPublisher(cfg.kafkaBrokers(), cfg.Events.KafkaTopic, logger)
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
	}
}

func newPaymentGateway(cfg Config) (domain.PaymentGateway, error) {
	switch cfg.Payment.Provider {
	case "", "mock":
		return payment.NewFakeGateway(), nil
	case "midtrans":
		if cfg.Payment.Midtrans.ServerKey == "" {
			return nil, errors.New("midtrans server key is required")
		}
		return payment.NewMidtransGateway(cfg.Payment.Midtrans.ServerKey, cfg.Payment.Midtrans.Production), nil
	case "stripe":
		if cfg.Payment.Stripe.SecretKey == "" {
			return nil, errors.New("stripe secret key is required")
		}
		stripe.Key = cfg.Payment.Stripe.SecretKey

		return payment.NewStripeGateway(payment.StripeConfig{
			Currency:      cfg.Payment.Currency,
			SuccessUrl:    cfg.Payment.Stripe.SuccessUrl,
			FailureUrl:    cfg.Payment.Stripe.FailureUrl,
			WebhookSecret: cfg.Payment.Stripe.WebhookSecret,
		}), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
	}
}

func newRedisClient(cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Redis.Url)
	if err != nil {
		opts = &redis.Options{Addr: cfg.Redis.Url}
	}

	opts.MaxIdleConns = cfg.Redis.MaxIdleConns
	opts.MaxActiveConns = cfg.Redis.MaxOpenConns
	opts.ConnMaxIdleTime = cfg.Redis.MaxIdleTime

	rdb := redis.NewClient(opts)

	err = redisotel.InstrumentTracing(rdb)
	if err != nil {
		rdb.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.Dsn)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var wg sync.WaitGroup
	for _, w := range app.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(workerCtx)
		}()
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		stopWorkers()
		wg.Wait()

		if app.drain != nil {
			app.drain()
		}

		shutdownError <- err
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
