package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/movie-booking-system/internal/domain"
)

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

const paymentColumns = `id, booking_id, gateway_txn_id, token, redirect_url, amount, method, status,
	paid_at, created_at, updated_at`

func scanPayment(row pgx.Row, payment *domain.Payment) error {
	return row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.GatewayTxnID,
		&payment.Token,
		&payment.RedirectUrl,
		&payment.Amount,
		&payment.Method,
		&payment.Status,
		&payment.PaidAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
}

// Create stores a payment for a booking that is still pending. The booking row
// is share-locked so a concurrent expiry either completes first or waits.
func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			booking_id,
			gateway_txn_id,
			token,
			redirect_url,
			amount,
			method,
			status
		)
		SELECT b.id, $2::text, $3::text, $4::text, $5::numeric, $6::text, $7::text
		FROM (
			SELECT id FROM bookings WHERE id = $1 AND status = 'pending' FOR SHARE
		) b
		RETURNING id, created_at, updated_at
	`

	err := p.db.QueryRow(
		ctx,
		query,
		payment.BookingID,
		payment.GatewayTxnID,
		payment.Token,
		payment.RedirectUrl,
		payment.Amount,
		payment.Method,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrBookingNotPending
	}

	return storeError(err)
}

func (p *PostgresPaymentRepository) GetPendingByBookingId(ctx context.Context, bookingId int) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1 AND status = 'pending'`

	var payment domain.Payment

	err := scanPayment(p.db.QueryRow(ctx, query, bookingId), &payment)
	if err != nil {
		return nil, storeError(err)
	}

	return &payment, nil
}

func (p *PostgresPaymentRepository) GetByGatewayTxnId(ctx context.Context, gatewayTxnId string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_txn_id = $1`

	var payment domain.Payment

	err := scanPayment(p.db.QueryRow(ctx, query, gatewayTxnId), &payment)
	if err != nil {
		return nil, storeError(err)
	}

	return &payment, nil
}

// Reconcile locks the booking and then its payment, lets fn decide the
// transition and applies it with updates conditional on the pending state, so
// concurrent or repeated deliveries converge on the same result. Every
// transaction touching both rows takes the booking lock first.
func (p *PostgresPaymentRepository) Reconcile(
	ctx context.Context,
	gatewayTxnId string,
	fn domain.ReconcileFunc) (*domain.ReconcileResult, error) {

	var result domain.ReconcileResult

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		var bookingId int

		// booking_id never changes, so it can be read before either lock is held
		err := tx.QueryRow(ctx, `SELECT booking_id FROM payments WHERE gateway_txn_id = $1`, gatewayTxnId).
			Scan(&bookingId)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrRecordNotFound
			}

			return err
		}

		query := `
			SELECT id, user_id, showtime_id, quantity, total_amount, status, booked_at, updated_at
			FROM bookings
			WHERE id = $1
			FOR UPDATE
		`

		booking := &result.Booking

		err = tx.QueryRow(ctx, query, bookingId).Scan(
			&booking.ID,
			&booking.UserID,
			&booking.ShowtimeID,
			&booking.Quantity,
			&booking.TotalAmount,
			&booking.Status,
			&booking.BookedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return err
		}

		query = `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_txn_id = $1 FOR UPDATE`

		err = scanPayment(tx.QueryRow(ctx, query, gatewayTxnId), &result.Payment)
		if err != nil {
			return err
		}

		result.PreviousStatus = booking.Status

		transition, err := fn(&result.Payment, booking)
		if err != nil || transition == nil {
			return err
		}

		err = applyPaymentTransition(ctx, tx, &result.Payment, transition)
		if err != nil {
			return err
		}

		if transition.BookingStatus != nil {
			err = applyBookingTransition(ctx, tx, booking, *transition.BookingStatus)
			if err != nil {
				return err
			}
		}

		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	return &result, nil
}

func applyPaymentTransition(
	ctx context.Context,
	tx pgx.Tx,
	payment *domain.Payment,
	transition *domain.PaymentTransition) error {

	query := `
		UPDATE payments
		SET status = $2,
			method = COALESCE(NULLIF($3, ''), method),
			paid_at = COALESCE($4, paid_at),
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + paymentColumns

	err := scanPayment(
		tx.QueryRow(ctx, query, payment.ID, transition.PaymentStatus, transition.Method, transition.PaidAt),
		payment,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}

	return err
}

func applyBookingTransition(
	ctx context.Context,
	tx pgx.Tx,
	booking *domain.Booking,
	status domain.BookingStatus) error {

	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING status, updated_at
	`

	err := tx.QueryRow(ctx, query, booking.ID, status).Scan(&booking.Status, &booking.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}

		return err
	}

	if status == domain.BookingStatusCancelled {
		return releaseSeats(ctx, tx, booking.ID)
	}

	return nil
}
