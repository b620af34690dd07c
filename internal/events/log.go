package events

import (
	"context"
	"log/slog"

	"github.com/metinatakli/movie-booking-system/internal/domain"
)

// LogPublisher writes events to the logger. It is used when no broker is
// configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "event_log")}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.BookingEvent) error {
	p.logger.InfoContext(ctx, "booking event",
		"event_id", event.ID,
		"event_type", event.Type,
		"booking_id", event.BookingID,
		"user_id", event.UserID,
		"status", event.Status,
		"reason", event.Reason)

	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
