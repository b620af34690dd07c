package mocks

import (
	"context"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentRepo struct {
	mock.Mock
	domain.PaymentRepository
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetPendingByBookingId(ctx context.Context, bookingId int) (*domain.Payment, error) {
	args := m.Called(ctx, bookingId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) GetByGatewayTxnId(ctx context.Context, gatewayTxnId string) (*domain.Payment, error) {
	args := m.Called(ctx, gatewayTxnId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) Reconcile(
	ctx context.Context,
	gatewayTxnId string,
	fn domain.ReconcileFunc) (*domain.ReconcileResult, error) {

	args := m.Called(ctx, gatewayTxnId, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconcileResult), args.Error(1)
}
