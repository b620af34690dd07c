package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

var midtransEnabledPayments = []snap.SnapPaymentType{
	snap.SnapPaymentType("bca_va"),
	snap.SnapPaymentType("bni_va"),
	snap.SnapPaymentType("bri_va"),
	snap.SnapPaymentType("other_qris"),
}

// MidtransGateway issues Snap tokens and reads transaction status through the
// Core API. The order id doubles as the gateway transaction id.
type MidtransGateway struct {
	serverKey string
	snap      snap.Client
	core      coreapi.Client
}

func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	g := &MidtransGateway{serverKey: serverKey}
	g.snap.New(serverKey, env)
	g.core.New(serverKey, env)

	return g
}

func (g *MidtransGateway) CreateTransaction(
	ctx context.Context,
	req domain.TransactionRequest) (*domain.Transaction, error) {

	// IDR has no minor unit
	grossAmount, err := minorUnits(req.GrossAmount, 0)
	if err != nil {
		return nil, err
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: grossAmount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Customer.FirstName,
			LName: req.Customer.LastName,
			Email: req.Customer.Email,
		},
		EnabledPayments: midtransEnabledPayments,
	}

	resp, midtransErr := g.snap.CreateTransaction(snapReq)
	if midtransErr != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrGateway, midtransErr.Error())
	}

	if resp.Token == "" {
		return nil, fmt.Errorf("%w: empty snap token for order %s", domain.ErrGateway, req.OrderID)
	}

	return &domain.Transaction{
		GatewayTxnID: req.OrderID,
		Token:        resp.Token,
		RedirectUrl:  resp.RedirectURL,
	}, nil
}

func (g *MidtransGateway) GetTransactionStatus(
	ctx context.Context,
	gatewayTxnId string) (*domain.TransactionStatus, error) {

	resp, midtransErr := g.core.CheckTransaction(gatewayTxnId)
	if midtransErr != nil {
		if midtransErr.StatusCode == http.StatusNotFound {
			return nil, domain.ErrRecordNotFound
		}

		return nil, fmt.Errorf("%w: %s", domain.ErrGateway, midtransErr.Error())
	}

	return &domain.TransactionStatus{
		GatewayTxnID: gatewayTxnId,
		Status:       resp.TransactionStatus,
		Method:       resp.PaymentType,
	}, nil
}

type midtransNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	PaymentType       string `json:"payment_type"`
}

// ParseNotification verifies the notification's signature_key, which Midtrans
// computes as SHA-512 over order_id, status_code, gross_amount and the server key.
func (g *MidtransGateway) ParseNotification(
	ctx context.Context,
	payload []byte,
	signature string) (*domain.TransactionStatus, error) {

	var n midtransNotification

	err := json.Unmarshal(payload, &n)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed notification body", domain.ErrValidation)
	}

	if n.OrderID == "" || n.TransactionStatus == "" {
		return nil, fmt.Errorf("%w: notification is missing order_id or transaction_status", domain.ErrValidation)
	}

	if !validMidtransSignature(n, g.serverKey) {
		return nil, domain.ErrInvalidSignature
	}

	return &domain.TransactionStatus{
		GatewayTxnID: n.OrderID,
		Status:       n.TransactionStatus,
		Method:       n.PaymentType,
	}, nil
}

func midtransSignature(orderId, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderId + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func validMidtransSignature(n midtransNotification, serverKey string) bool {
	expected := midtransSignature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}
