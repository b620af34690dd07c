package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultStatusTTL = 10 * time.Second

func statusKey(gatewayTxnId string) string {
	return "payment:status:" + gatewayTxnId
}

// StatusCache wraps a payment gateway so repeated status polls for the same
// transaction within the TTL are answered from Redis.
type StatusCache struct {
	domain.PaymentGateway
	redis  redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewStatusCache(next domain.PaymentGateway, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *StatusCache {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}

	return &StatusCache{
		PaymentGateway: next,
		redis:          client,
		ttl:            ttl,
		logger:         logger.With("component", "status_cache"),
	}
}

func (s *StatusCache) GetTransactionStatus(ctx context.Context, gatewayTxnId string) (*domain.TransactionStatus, error) {
	key := statusKey(gatewayTxnId)

	cached, err := s.redis.Get(ctx, key).Bytes()
	if err == nil {
		var status domain.TransactionStatus
		if json.Unmarshal(cached, &status) == nil {
			return &status, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("status cache read failed", "key", key, "error", err)
	}

	status, err := s.PaymentGateway.GetTransactionStatus(ctx, gatewayTxnId)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(status)
	if err == nil {
		err = s.redis.Set(ctx, key, string(encoded), s.ttl).Err()
		if err != nil {
			s.logger.Warn("status cache write failed", "key", key, "error", err)
		}
	}

	return status, nil
}
