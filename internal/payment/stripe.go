package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

type StripeConfig struct {
	Currency      string
	SuccessUrl    string
	FailureUrl    string
	WebhookSecret string
	SessionTTL    time.Duration
}

// StripeGateway runs payments through Stripe Checkout. The checkout session id
// is both the token handed to the client and the gateway transaction id.
type StripeGateway struct {
	cfg StripeConfig
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	return &StripeGateway{cfg: cfg}
}

func (s *StripeGateway) CreateTransaction(
	ctx context.Context,
	req domain.TransactionRequest) (*domain.Transaction, error) {

	amountCents, err := minorUnits(req.GrossAmount, 2)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.cfg.Currency),
					UnitAmount: stripe.Int64(amountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.cfg.SuccessUrl),
		CancelURL:  stripe.String(s.cfg.FailureUrl),
		Metadata: map[string]string{
			"order_id":   req.OrderID,
			"booking_id": strconv.Itoa(req.BookingID),
		},
		CustomerEmail:     stripe.String(req.Customer.Email),
		ClientReferenceID: stripe.String(req.OrderID),
	}

	if s.cfg.SessionTTL > 0 {
		params.ExpiresAt = stripe.Int64(time.Now().Add(s.cfg.SessionTTL).Unix())
	}

	params.Context = ctx
	params.SetIdempotencyKey(req.OrderID)

	checkoutSession, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGateway, err)
	}

	return &domain.Transaction{
		GatewayTxnID: checkoutSession.ID,
		Token:        checkoutSession.ID,
		RedirectUrl:  checkoutSession.URL,
	}, nil
}

func (s *StripeGateway) GetTransactionStatus(
	ctx context.Context,
	gatewayTxnId string) (*domain.TransactionStatus, error) {

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	checkoutSession, err := session.Get(gatewayTxnId, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, domain.ErrRecordNotFound
		}

		return nil, fmt.Errorf("%w: %w", domain.ErrGateway, err)
	}

	return stripeTransactionStatus(checkoutSession, ""), nil
}

// ParseNotification verifies a signed webhook and extracts the status of the
// checkout session it refers to. Events unrelated to checkout sessions yield a
// nil status.
func (s *StripeGateway) ParseNotification(
	ctx context.Context,
	payload []byte,
	signature string) (*domain.TransactionStatus, error) {

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, domain.ErrInvalidSignature
	}

	var override string

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionExpired:
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		override = GatewayStatusCancel
	default:
		return nil, nil
	}

	var checkoutSession stripe.CheckoutSession

	err = json.Unmarshal(event.Data.Raw, &checkoutSession)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed checkout session payload", domain.ErrValidation)
	}

	return stripeTransactionStatus(&checkoutSession, override), nil
}

func stripeTransactionStatus(cs *stripe.CheckoutSession, override string) *domain.TransactionStatus {
	status := override
	if status == "" {
		status = stripeSessionStatus(cs)
	}

	method := ""
	if len(cs.PaymentMethodTypes) > 0 {
		method = cs.PaymentMethodTypes[0]
	}

	return &domain.TransactionStatus{
		GatewayTxnID: cs.ID,
		Status:       status,
		Method:       method,
	}
}

// stripeSessionStatus translates a checkout session into the gateway status
// vocabulary understood by the reconciler.
func stripeSessionStatus(cs *stripe.CheckoutSession) string {
	switch {
	case cs.Status == stripe.CheckoutSessionStatusComplete && cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return GatewayStatusSettlement
	case cs.Status == stripe.CheckoutSessionStatusExpired:
		return GatewayStatusExpire
	default:
		return GatewayStatusPending
	}
}
