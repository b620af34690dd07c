package integration_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/metinatakli/movie-booking-system/internal/domain"
	"github.com/metinatakli/movie-booking-system/internal/payment"
	"github.com/stretchr/testify/suite"
)

type PaymentTestSuite struct {
	BaseSuite
}

func TestPaymentSuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, new(PaymentTestSuite))
}

func (s *PaymentTestSuite) TestInitiatePayment_ChargesBookingTotal() {
	ctx := context.Background()

	b := s.createBooking(testUserId, 1, 2, 3)

	p, err := s.app.Reconciler.InitiatePayment(ctx, testUserId, b.ID)
	s.Require().NoError(err)

	s.True(b.TotalAmount.Equal(p.Amount), "payment %s, booking %s", p.Amount, b.TotalAmount)
	s.Equal(domain.PaymentStatusPending, p.Status)
	s.NotEmpty(p.Token)

	again, err := s.app.Reconciler.InitiatePayment(ctx, testUserId, b.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, again.ID)
	s.Equal(p.GatewayTxnID, again.GatewayTxnID)

	_, err = s.app.Reconciler.InitiatePayment(ctx, otherUserId, b.ID)
	s.ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *PaymentTestSuite) TestInitiatePayment_GatewayFailureWritesNothing() {
	ctx := context.Background()

	b := s.createBooking(testUserId, 1)

	s.app.Gateway.FailCreate(errors.New("connection reset"))
	defer s.app.Gateway.FailCreate(nil)

	_, err := s.app.Reconciler.InitiatePayment(ctx, testUserId, b.ID)
	s.ErrorIs(err, domain.ErrGateway)

	s.Equal(0, s.countPayments(b.ID))
}

func (s *PaymentTestSuite) TestInitiatePayment_ConcurrentRequestsShareOnePayment() {
	ctx := context.Background()

	b := s.createBooking(testUserId, 1)

	const callers = 5

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		txnIds   = make(map[string]struct{})
		failures []error
	)

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			p, err := s.app.Reconciler.InitiatePayment(ctx, testUserId, b.ID)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				failures = append(failures, err)
				return
			}
			txnIds[p.GatewayTxnID] = struct{}{}
		}()
	}

	wg.Wait()

	s.Empty(failures)
	s.Len(txnIds, 1)
	s.Equal(1, s.countPayments(b.ID))
}

func (s *PaymentTestSuite) TestReconcile_SettlementIsIdempotent() {
	ctx := context.Background()

	b := s.createBooking(testUserId, 1, 2)

	p, err := s.app.Reconciler.InitiatePayment(ctx, testUserId, b.ID)
	s.Require().NoError(err)

	first, err := s.app.Reconciler.ReconcilePaymentStatus(ctx, p.GatewayTxnID, payment.GatewayStatusSettlement, "qris")
	s.Require().NoError(err)
	s.True(first.Transitioned())
	s.Equal(domain.BookingStatusPaid, first.Booking.Status)
	s.Equal(domain.PaymentStatusSettlement, first.Payment.Status)
	s.NotNil(first.Payment.PaidAt)

	for _, status := range []string{payment.GatewayStatusSettlement, payment.GatewayStatusCancel, payment.GatewayStatusExpire} {
		again, err := s.app.Reconciler.ReconcilePaymentStatus(ctx, p.GatewayTxnID, status, "qris")
		s.Require().NoError(err)
		s.False(again.Transitioned(), "status %s", status)
		s.Equal(domain.BookingStatusPaid, again.Booking.Status)
	}

	s.Eventually(func() bool {
		return len(s.app.Mailer.SentTo(testUserEmail, "booking_paid.tmpl")) == 1
	}, 2*time.Second, 50*time.Millisecond)

	s.app.Reconciler.Wait()
	s.Len(s.app.Mailer.SentTo(testUserEmail, "booking_paid.tmpl"), 1)

	claimed, err := s.app.BookingRepo.GetClaimedSeatIds(ctx, testShowtimeId)
	s.Require().NoError(err)
	s.ElementsMatch([]int{1, 2}, claimed)
}

func (s *PaymentTestSuite) TestReconcile_CancelReleasesSeats() {
	ctx := context.Background()

	b := s.createBooking(testUserId, 1)

	p, err := s.app.Reconciler.InitiatePayment(ctx, testUserId, b.ID)
	s.Require().NoError(err)

	result, err := s.app.Reconciler.ReconcilePaymentStatus(ctx, p.GatewayTxnID, payment.GatewayStatusExpire, "")
	s.Require().NoError(err)
	s.True(result.Transitioned())
	s.Equal(domain.BookingStatusCancelled, result.Booking.Status)
	s.Equal(domain.PaymentStatusExpired, result.Payment.Status)

	claimed, err := s.app.BookingRepo.GetClaimedSeatIds(ctx, testShowtimeId)
	s.Require().NoError(err)
	s.Empty(claimed)

	late, err := s.app.Reconciler.ReconcilePaymentStatus(ctx, p.GatewayTxnID, payment.GatewayStatusSettlement, "qris")
	s.Require().NoError(err)
	s.False(late.Transitioned())
	s.Equal(domain.BookingStatusCancelled, late.Booking.Status)
}

func (s *PaymentTestSuite) TestReconcile_PendingLeavesStateUntouched() {
	ctx := context.Background()

	b := s.createBooking(testUserId, 1)

	p, err := s.app.Reconciler.InitiatePayment(ctx, testUserId, b.ID)
	s.Require().NoError(err)

	result, err := s.app.Reconciler.ReconcilePaymentStatus(ctx, p.GatewayTxnID, payment.GatewayStatusPending, "")
	s.Require().NoError(err)
	s.False(result.Transitioned())
	s.Equal(domain.BookingStatusPending, result.Booking.Status)
}

func (s *PaymentTestSuite) TestPollPaymentStatus() {
	ctx := context.Background()

	b := s.createBooking(testUserId, 1)

	p, err := s.app.Reconciler.InitiatePayment(ctx, testUserId, b.ID)
	s.Require().NoError(err)

	_, err = s.app.Reconciler.PollPaymentStatus(ctx, otherUserId, p.GatewayTxnID)
	s.ErrorIs(err, domain.ErrRecordNotFound)

	s.app.Gateway.SetStatus(p.GatewayTxnID, payment.GatewayStatusSettlement, "bank_transfer")

	result, err := s.app.Reconciler.PollPaymentStatus(ctx, testUserId, p.GatewayTxnID)
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusPaid, result.Booking.Status)
	s.Equal("bank_transfer", result.Payment.Method)
}

func (s *PaymentTestSuite) TestHandleNotification() {
	ctx := context.Background()

	b := s.createBooking(testUserId, 1)

	p, err := s.app.Reconciler.InitiatePayment(ctx, testUserId, b.ID)
	s.Require().NoError(err)

	payload := []byte(`{"order_id":"` + p.GatewayTxnID + `","transaction_status":"settlement","payment_type":"gopay"}`)

	result, err := s.app.Reconciler.HandleNotification(ctx, payload, "")
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusPaid, result.Booking.Status)

	_, err = s.app.Reconciler.HandleNotification(ctx,
		[]byte(`{"order_id":"CNM-999-1","transaction_status":"settlement"}`), "")
	s.ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *PaymentTestSuite) countPayments(bookingId int) int {
	var n int

	err := s.app.DB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM payments WHERE booking_id = $1`, bookingId).Scan(&n)
	s.Require().NoError(err)

	return n
}
