package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogChannel is the Postgres notification channel the catalog triggers
// publish to.
const CatalogChannel = "catalog_changed"

type invalidator interface {
	Invalidate(ctx context.Context, payload string) error
}

// Listener holds a dedicated pool connection on LISTEN and invalidates cache
// entries for every catalog change. It reconnects after connection loss.
type Listener struct {
	pool        *pgxpool.Pool
	invalidator invalidator
	logger      *slog.Logger
	retryDelay  time.Duration
}

func NewListener(pool *pgxpool.Pool, catalog *Catalog, logger *slog.Logger) *Listener {
	return &Listener{
		pool:        pool,
		invalidator: catalog,
		logger:      logger.With("component", "catalog_listener"),
		retryDelay:  time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	l.logger.Info("listening for catalog changes", "channel", CatalogChannel)

	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.logger.Info("stopping catalog listener")
			return
		}

		l.logger.Error("catalog listener disconnected", "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, "LISTEN "+CatalogChannel)
	if err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		l.handle(ctx, notification.Payload)
	}
}

func (l *Listener) handle(ctx context.Context, payload string) {
	err := l.invalidator.Invalidate(ctx, payload)
	if err != nil && !errors.Is(err, context.Canceled) {
		l.logger.Warn("failed to invalidate catalog cache", "payload", payload, "error", err)
	}
}
