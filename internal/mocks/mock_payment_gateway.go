package mocks

import (
	"context"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentGateway struct {
	mock.Mock
	domain.PaymentGateway
}

func (m *MockPaymentGateway) CreateTransaction(
	ctx context.Context,
	req domain.TransactionRequest) (*domain.Transaction, error) {

	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockPaymentGateway) GetTransactionStatus(
	ctx context.Context,
	gatewayTxnId string) (*domain.TransactionStatus, error) {

	args := m.Called(ctx, gatewayTxnId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionStatus), args.Error(1)
}

func (m *MockPaymentGateway) ParseNotification(
	ctx context.Context,
	payload []byte,
	signature string) (*domain.TransactionStatus, error) {

	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionStatus), args.Error(1)
}
