// Package cache keeps read-mostly catalog data and gateway status lookups in
// Redis. Booking and seat-claim state is never cached.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultCatalogTTL = 5 * time.Minute

func showtimeKey(id int) string {
	return fmt.Sprintf("catalog:showtime:%d", id)
}

func filmKey(id int) string {
	return fmt.Sprintf("catalog:film:%d", id)
}

func theaterKey(id int) string {
	return fmt.Sprintf("catalog:theater:%d", id)
}

func theaterSeatsKey(id int) string {
	return fmt.Sprintf("catalog:theater:%d:seats", id)
}

// Catalog is a read-through cache in front of a CatalogRepository. Redis
// failures fall back to the wrapped repository.
type Catalog struct {
	next   domain.CatalogRepository
	redis  redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewCatalog(next domain.CatalogRepository, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Catalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}

	return &Catalog{
		next:   next,
		redis:  client,
		ttl:    ttl,
		logger: logger.With("component", "catalog_cache"),
	}
}

func (c *Catalog) GetShowtimeById(ctx context.Context, id int) (*domain.Showtime, error) {
	return readThrough(ctx, c, showtimeKey(id), func() (*domain.Showtime, error) {
		return c.next.GetShowtimeById(ctx, id)
	})
}

func (c *Catalog) GetFilmById(ctx context.Context, id int) (*domain.Film, error) {
	return readThrough(ctx, c, filmKey(id), func() (*domain.Film, error) {
		return c.next.GetFilmById(ctx, id)
	})
}

func (c *Catalog) GetTheaterById(ctx context.Context, id int) (*domain.Theater, error) {
	return readThrough(ctx, c, theaterKey(id), func() (*domain.Theater, error) {
		return c.next.GetTheaterById(ctx, id)
	})
}

func (c *Catalog) GetSeatsForTheater(ctx context.Context, theaterId int) ([]domain.Seat, error) {
	seats, err := readThrough(ctx, c, theaterSeatsKey(theaterId), func() (*[]domain.Seat, error) {
		seats, err := c.next.GetSeatsForTheater(ctx, theaterId)
		if err != nil {
			return nil, err
		}
		return &seats, nil
	})
	if err != nil {
		return nil, err
	}

	return *seats, nil
}

func readThrough[T any](ctx context.Context, c *Catalog, key string, load func() (*T, error)) (*T, error) {
	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var value T
		if err := json.Unmarshal(cached, &value); err == nil {
			return &value, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("catalog cache read failed", "key", key, "error", err)
	}

	value, err := load()
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return value, nil
	}

	err = c.redis.Set(ctx, key, string(encoded), c.ttl).Err()
	if err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}

	return value, nil
}

// KeysFor maps a catalog change notification of the form "<entity>:<id>" onto
// the cache keys it invalidates.
func KeysFor(payload string) ([]string, error) {
	entity, rawId, ok := strings.Cut(payload, ":")
	if !ok {
		return nil, fmt.Errorf("malformed catalog change %q", payload)
	}

	id, err := strconv.Atoi(rawId)
	if err != nil {
		return nil, fmt.Errorf("malformed catalog change %q: %w", payload, err)
	}

	switch entity {
	case "showtime":
		return []string{showtimeKey(id)}, nil
	case "film":
		return []string{filmKey(id)}, nil
	case "theater":
		return []string{theaterKey(id), theaterSeatsKey(id)}, nil
	default:
		return nil, fmt.Errorf("unknown catalog entity %q", entity)
	}
}

// Invalidate drops the cache entries affected by a catalog change notification.
func (c *Catalog) Invalidate(ctx context.Context, payload string) error {
	keys, err := KeysFor(payload)
	if err != nil {
		return err
	}

	err = c.redis.Del(ctx, keys...).Err()
	if err != nil {
		return fmt.Errorf("invalidating %v: %w", keys, err)
	}

	c.logger.Debug("catalog cache invalidated", "keys", keys)

	return nil
}
