// Package sweeper cancels pending bookings whose payment window has elapsed and
// releases their seats.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	DefaultInterval  = time.Minute
	DefaultGrace     = 10 * time.Minute
	DefaultBatchSize = 100

	expiredReason = "expired"
)

type Config struct {
	Interval  time.Duration
	Grace     time.Duration
	BatchSize int
}

type Sweeper struct {
	bookingRepo domain.BookingRepository
	publisher   domain.EventPublisher
	logger      *slog.Logger
	cfg         Config
	now         func() time.Time

	swept    metric.Int64Counter
	failures metric.Int64Counter
}

type Option func(*Sweeper)

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		s.now = now
	}
}

func New(
	bookingRepo domain.BookingRepository,
	publisher domain.EventPublisher,
	logger *slog.Logger,
	cfg Config,
	opts ...Option) *Sweeper {

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	s := &Sweeper{
		bookingRepo: bookingRepo,
		publisher:   publisher,
		logger:      logger.With("component", "sweeper"),
		cfg:         cfg,
		now:         time.Now,
	}

	s.swept, s.failures = newCounters()

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func newCounters() (metric.Int64Counter, metric.Int64Counter) {
	meter := otel.Meter("github.com/metinatakli/movie-booking-system/internal/sweeper")
	fallback := noop.NewMeterProvider().Meter("")

	swept, err := meter.Int64Counter("booking.sweeper.swept",
		metric.WithDescription("Pending bookings cancelled after their payment window elapsed"))
	if err != nil {
		swept, _ = fallback.Int64Counter("booking.sweeper.swept")
	}

	failures, err := meter.Int64Counter("booking.sweeper.failures",
		metric.WithDescription("Bookings the sweeper failed to expire"))
	if err != nil {
		failures, _ = fallback.Int64Counter("booking.sweeper.failures")
	}

	return swept, failures
}

// Sweep pages through every overdue pending booking in id order and expires
// each one, returning how many it cancelled. A failure on one booking is logged
// and does not stop the others. Failing to list a page ends the sweep with the
// count so far and the error.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.Grace)

	swept := 0
	lastId := 0

	defer func() {
		if swept > 0 {
			s.swept.Add(ctx, int64(swept))
			s.logger.Info("expired pending bookings", "count", swept, "cutoff", cutoff)
		}
	}()

	for ctx.Err() == nil {
		candidates, err := s.bookingRepo.ListExpirable(ctx, cutoff, lastId, s.cfg.BatchSize)
		if err != nil {
			s.logger.Error("failed to list expirable bookings", "after_id", lastId, "error", err)
			return swept, err
		}

		for _, booking := range candidates {
			if ctx.Err() != nil {
				break
			}

			if s.expire(ctx, booking, cutoff) {
				swept++
			}
		}

		if len(candidates) < s.cfg.BatchSize {
			break
		}

		// failed ids sit at or below lastId and are retried on the next tick
		lastId = candidates[len(candidates)-1].ID
	}

	return swept, nil
}

func (s *Sweeper) expire(ctx context.Context, booking domain.Booking, cutoff time.Time) bool {
	expired, err := s.bookingRepo.Expire(ctx, booking.ID, cutoff)
	if err != nil {
		s.failures.Add(ctx, 1)
		s.logger.Error("failed to expire booking", "booking_id", booking.ID, "error", err)
		return false
	}

	if !expired {
		// paid, cancelled or given a settled payment since it was listed
		s.logger.Debug("booking no longer expirable", "booking_id", booking.ID)
		return false
	}

	booking.Status = domain.BookingStatusCancelled

	err = s.publisher.Publish(ctx, domain.NewBookingEvent(domain.BookingCancelled, booking, expiredReason, s.now()))
	if err != nil {
		s.logger.Warn("failed to publish booking event", "booking_id", booking.ID, "error", err)
	}

	return true
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("starting sweeper", "interval", s.cfg.Interval.String(), "grace", s.cfg.Grace.String())

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		_, _ = s.Sweep(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("stopping sweeper")
			return
		case <-ticker.C:
		}
	}
}
