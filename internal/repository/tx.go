package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/movie-booking-system/internal/domain"
)

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	txOptions := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}

// constraintErrors maps unique constraint names to the domain error they signal.
var constraintErrors = map[string]error{
	"seat_claims_pkey":                 domain.ErrSeatAlreadyClaimed,
	"bookings_one_pending_per_user":    domain.ErrPendingBookingExists,
	"payments_one_pending_per_booking": domain.ErrConflict,
	"payments_gateway_txn_id_key":      domain.ErrConflict,
}

// storeError translates driver errors into domain errors. Errors that already
// carry a domain kind pass through untouched.
func storeError(err error) error {
	if err == nil {
		return nil
	}

	if isDomainError(err) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrRecordNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
				return mapped
			}
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
		}
	}

	return fmt.Errorf("%w: %w", domain.ErrStore, err)
}

// claimError is storeError for the seat claim transaction, where losing a lock
// race to another claim means the seats are taken.
func claimError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.DeadlockDetected, pgerrcode.SerializationFailure:
			return domain.ErrSeatAlreadyClaimed
		}
	}

	return storeError(err)
}

func isDomainError(err error) bool {
	for _, kind := range []error{
		domain.ErrValidation,
		domain.ErrConflict,
		domain.ErrRecordNotFound,
		domain.ErrInvalidState,
		domain.ErrGateway,
		domain.ErrStore,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}

	return false
}
