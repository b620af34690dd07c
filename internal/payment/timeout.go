package payment

import (
	"context"
	"time"

	"github.com/metinatakli/movie-booking-system/internal/domain"
)

type timeoutGateway struct {
	next    domain.PaymentGateway
	timeout time.Duration
}

// WithTimeout bounds every outbound gateway call. SDKs that ignore the context
// are abandoned once the deadline passes and the call fails with
// domain.ErrGatewayTimeout.
func WithTimeout(next domain.PaymentGateway, timeout time.Duration) domain.PaymentGateway {
	return &timeoutGateway{next: next, timeout: timeout}
}

func (g *timeoutGateway) CreateTransaction(
	ctx context.Context,
	req domain.TransactionRequest) (*domain.Transaction, error) {

	return callWithTimeout(ctx, g.timeout, func(ctx context.Context) (*domain.Transaction, error) {
		return g.next.CreateTransaction(ctx, req)
	})
}

func (g *timeoutGateway) GetTransactionStatus(
	ctx context.Context,
	gatewayTxnId string) (*domain.TransactionStatus, error) {

	return callWithTimeout(ctx, g.timeout, func(ctx context.Context) (*domain.TransactionStatus, error) {
		return g.next.GetTransactionStatus(ctx, gatewayTxnId)
	})
}

func (g *timeoutGateway) ParseNotification(
	ctx context.Context,
	payload []byte,
	signature string) (*domain.TransactionStatus, error) {

	return g.next.ParseNotification(ctx, payload, signature)
}

func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)

	go func() {
		value, err := fn(ctx)
		done <- result{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, domain.ErrGatewayTimeout
	}
}
