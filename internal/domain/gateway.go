package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type Customer struct {
	FirstName string
	LastName  string
	Email     string
}

type TransactionRequest struct {
	OrderID     string
	BookingID   int
	GrossAmount decimal.Decimal
	Quantity    int
	Description string
	Customer    Customer
}

type Transaction struct {
	GatewayTxnID string
	Token        string
	RedirectUrl  string
}

// TransactionStatus is the gateway's view of a transaction, in the gateway's
// own vocabulary (settlement, cancel, expire, pending, ...).
type TransactionStatus struct {
	GatewayTxnID string
	Status       string
	Method       string
}

type PaymentGateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error)
	GetTransactionStatus(ctx context.Context, gatewayTxnId string) (*TransactionStatus, error)
	// ParseNotification authenticates an asynchronous notification and
	// extracts the reported status.
	ParseNotification(ctx context.Context, payload []byte, signature string) (*TransactionStatus, error)
}
