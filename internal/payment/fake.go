package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/metinatakli/movie-booking-system/internal/domain"
)

// FakeGateway is an in-memory gateway for local development and tests. It
// accepts unsigned notifications of the form
// {"order_id": "...", "transaction_status": "...", "payment_type": "..."}.
type FakeGateway struct {
	mu          sync.Mutex
	statuses    map[string]domain.TransactionStatus
	createErr   error
	createDelay chan struct{}
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		statuses: make(map[string]domain.TransactionStatus),
	}
}

// FailCreate makes subsequent CreateTransaction calls fail with err until it is
// called again with nil.
func (f *FakeGateway) FailCreate(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createErr = err
}

// BlockCreate makes CreateTransaction wait until the returned function is called.
func (f *FakeGateway) BlockCreate() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan struct{})
	f.createDelay = ch

	var once sync.Once
	return func() {
		once.Do(func() {
			close(ch)

			f.mu.Lock()
			f.createDelay = nil
			f.mu.Unlock()
		})
	}
}

// SetStatus records the status the gateway reports for a transaction.
func (f *FakeGateway) SetStatus(gatewayTxnId, status, method string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statuses[gatewayTxnId] = domain.TransactionStatus{
		GatewayTxnID: gatewayTxnId,
		Status:       status,
		Method:       method,
	}
}

func (f *FakeGateway) CreateTransaction(
	ctx context.Context,
	req domain.TransactionRequest) (*domain.Transaction, error) {

	f.mu.Lock()
	createErr, delay := f.createErr, f.createDelay
	f.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if createErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGateway, createErr)
	}

	f.SetStatus(req.OrderID, GatewayStatusPending, "")

	return &domain.Transaction{
		GatewayTxnID: req.OrderID,
		Token:        "fake-token-" + req.OrderID,
		RedirectUrl:  "https://payments.example.com/pay/" + req.OrderID,
	}, nil
}

func (f *FakeGateway) GetTransactionStatus(
	ctx context.Context,
	gatewayTxnId string) (*domain.TransactionStatus, error) {

	f.mu.Lock()
	defer f.mu.Unlock()

	status, ok := f.statuses[gatewayTxnId]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &status, nil
}

func (f *FakeGateway) ParseNotification(
	ctx context.Context,
	payload []byte,
	signature string) (*domain.TransactionStatus, error) {

	var n midtransNotification

	err := json.Unmarshal(payload, &n)
	if err != nil || n.OrderID == "" || n.TransactionStatus == "" {
		return nil, fmt.Errorf("%w: malformed notification body", domain.ErrValidation)
	}

	f.SetStatus(n.OrderID, n.TransactionStatus, n.PaymentType)

	return &domain.TransactionStatus{
		GatewayTxnID: n.OrderID,
		Status:       n.TransactionStatus,
		Method:       n.PaymentType,
	}, nil
}
