// Package payment contains the payment gateway adapters and the reconciler that
// merges gateway-reported status into local booking and payment state.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/metinatakli/movie-booking-system/internal/mailer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const receiptTemplate = "booking_paid.tmpl"

type Reconciler struct {
	bookingRepo domain.BookingRepository
	paymentRepo domain.PaymentRepository
	userRepo    domain.UserRepository
	gateway     domain.PaymentGateway
	publisher   domain.EventPublisher
	mailer      mailer.Mailer
	logger      *slog.Logger
	now         func() time.Time

	reconciliations metric.Int64Counter
	wg              sync.WaitGroup
}

type ReconcilerOption func(*Reconciler)

func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		r.now = now
	}
}

func NewReconciler(
	bookingRepo domain.BookingRepository,
	paymentRepo domain.PaymentRepository,
	userRepo domain.UserRepository,
	gateway domain.PaymentGateway,
	publisher domain.EventPublisher,
	mailer mailer.Mailer,
	logger *slog.Logger,
	opts ...ReconcilerOption) *Reconciler {

	r := &Reconciler{
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		publisher:   publisher,
		mailer:      mailer,
		logger:      logger,
		now:         time.Now,
	}

	counter, err := otel.Meter("github.com/metinatakli/movie-booking-system/internal/payment").
		Int64Counter("payment.reconciliations", metric.WithDescription("Reconciliation calls by outcome"))
	if err != nil {
		counter, _ = noop.NewMeterProvider().Meter("").Int64Counter("payment.reconciliations")
	}
	r.reconciliations = counter

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// InitiatePayment obtains a payment token for a pending booking owned by the
// user. A booking with a pending payment gets that payment back, so retries
// never open a second gateway transaction. No payment row is written unless the
// gateway issued a token.
func (r *Reconciler) InitiatePayment(ctx context.Context, userId, bookingId int) (*domain.Payment, error) {
	booking, err := r.bookingRepo.GetById(ctx, bookingId)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userId {
		return nil, domain.ErrRecordNotFound
	}

	if booking.Status != domain.BookingStatusPending {
		return nil, domain.ErrBookingNotPending
	}

	existing, err := r.paymentRepo.GetPendingByBookingId(ctx, bookingId)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, err
	}

	user, err := r.userRepo.GetById(ctx, userId)
	if err != nil {
		return nil, err
	}

	orderId := fmt.Sprintf("CNM-%d-%d", booking.ID, r.now().UnixMilli())

	txn, err := r.gateway.CreateTransaction(ctx, domain.TransactionRequest{
		OrderID:     orderId,
		BookingID:   booking.ID,
		GrossAmount: booking.TotalAmount,
		Quantity:    booking.Quantity,
		Description: fmt.Sprintf("Booking #%d (%d seat(s))", booking.ID, booking.Quantity),
		Customer: domain.Customer{
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
		},
	})
	if err != nil {
		r.logger.Error("payment gateway rejected transaction", "booking_id", bookingId, "order_id", orderId, "error", err)

		if !errors.Is(err, domain.ErrGateway) {
			err = fmt.Errorf("%w: %w", domain.ErrGateway, err)
		}

		return nil, err
	}

	payment := &domain.Payment{
		BookingID:    booking.ID,
		GatewayTxnID: txn.GatewayTxnID,
		Token:        txn.Token,
		RedirectUrl:  txn.RedirectUrl,
		Amount:       booking.TotalAmount,
		Method:       domain.PaymentMethodUnspecified,
		Status:       domain.PaymentStatusPending,
	}

	err = r.paymentRepo.Create(ctx, payment)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// a concurrent initiation stored its payment first
			existing, getErr := r.paymentRepo.GetPendingByBookingId(ctx, bookingId)
			if getErr == nil {
				return existing, nil
			}
		}

		return nil, err
	}

	r.logger.Info("payment initiated", "booking_id", booking.ID, "gateway_txn_id", payment.GatewayTxnID)

	return payment, nil
}

// ReconcilePaymentStatus merges a gateway status into the payment identified by
// gatewayTxnId and its booking. It is safe to call any number of times, in any
// order: once the booking is paid or cancelled the call succeeds without
// changing anything.
func (r *Reconciler) ReconcilePaymentStatus(
	ctx context.Context,
	gatewayTxnId,
	gatewayStatus,
	method string) (*domain.ReconcileResult, error) {

	logger := r.logger.With("gateway_txn_id", gatewayTxnId, "gateway_status", gatewayStatus)

	result, err := r.paymentRepo.Reconcile(ctx, gatewayTxnId,
		func(payment *domain.Payment, booking *domain.Booking) (*domain.PaymentTransition, error) {
			if booking.Status.IsTerminal() {
				if gatewayStatus == GatewayStatusSettlement && booking.Status == domain.BookingStatusCancelled {
					logger.Warn("settlement reported for a cancelled booking, manual refund required",
						"booking_id", booking.ID)
				}

				return nil, nil
			}

			return transitionFor(gatewayStatus, method, r.now()), nil
		})
	if err != nil {
		return nil, err
	}

	outcome := "noop"
	if result.Transitioned() {
		outcome = string(result.Booking.Status)
	}
	r.reconciliations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	if !result.Transitioned() {
		return result, nil
	}

	logger.Info("booking reconciled", "booking_id", result.Booking.ID, "status", result.Booking.Status)

	switch result.Booking.Status {
	case domain.BookingStatusPaid:
		r.publish(ctx, domain.NewBookingEvent(domain.BookingPaid, result.Booking, "", r.now()))
		r.sendReceipt(ctx, result.Booking, result.Payment)
	case domain.BookingStatusCancelled:
		r.publish(ctx, domain.NewBookingEvent(domain.BookingCancelled, result.Booking, gatewayStatus, r.now()))
	}

	return result, nil
}

// PollPaymentStatus asks the gateway for the current status of a transaction
// the user owns and reconciles it.
func (r *Reconciler) PollPaymentStatus(
	ctx context.Context,
	userId int,
	gatewayTxnId string) (*domain.ReconcileResult, error) {

	payment, err := r.paymentRepo.GetByGatewayTxnId(ctx, gatewayTxnId)
	if err != nil {
		return nil, err
	}

	booking, err := r.bookingRepo.GetById(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userId {
		return nil, domain.ErrRecordNotFound
	}

	status, err := r.gateway.GetTransactionStatus(ctx, gatewayTxnId)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) || errors.Is(err, domain.ErrGateway) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", domain.ErrGateway, err)
	}

	return r.ReconcilePaymentStatus(ctx, gatewayTxnId, status.Status, status.Method)
}

// HandleNotification authenticates a gateway notification and reconciles the
// status it reports. It returns a nil result for notifications that do not
// concern a payment.
func (r *Reconciler) HandleNotification(
	ctx context.Context,
	payload []byte,
	signature string) (*domain.ReconcileResult, error) {

	status, err := r.gateway.ParseNotification(ctx, payload, signature)
	if err != nil {
		return nil, err
	}

	if status == nil {
		return nil, nil
	}

	return r.ReconcilePaymentStatus(ctx, status.GatewayTxnID, status.Status, status.Method)
}

// Wait blocks until background receipt deliveries have finished.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

func (r *Reconciler) publish(ctx context.Context, event domain.BookingEvent) {
	err := r.publisher.Publish(ctx, event)
	if err != nil {
		r.logger.Warn("failed to publish booking event",
			"event_type", event.Type,
			"booking_id", event.BookingID,
			"error", err)
	}
}

func (r *Reconciler) sendReceipt(ctx context.Context, booking domain.Booking, payment domain.Payment) {
	r.wg.Add(1)

	go func(ctx context.Context) {
		defer r.wg.Done()

		logger := r.logger.With("booking_id", booking.ID)

		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic occurred during sending receipt mail", "panic", err)
			}
		}()

		user, err := r.userRepo.GetById(ctx, booking.UserID)
		if err != nil {
			logger.Error("failed to load user for receipt", "error", err)
			return
		}

		data := map[string]any{
			"name":         user.FullName(),
			"bookingID":    booking.ID,
			"quantity":     booking.Quantity,
			"totalAmount":  booking.TotalAmount.StringFixed(2),
			"gatewayTxnID": payment.GatewayTxnID,
			"method":       payment.Method,
		}

		err = r.mailer.Send(user.Email, receiptTemplate, data)
		if err != nil {
			logger.Error("failed to send receipt email", "error", err)
			return
		}

		logger.Info("receipt email sent successfully")
	}(context.WithoutCancel(ctx))
}
