package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/movie-booking-system/internal/domain"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

// Create claims the booking's seats for its showtime. The showtime row is read
// with a share lock so its price cannot change underneath the quote, and the
// seat_claims primary key rejects any seat already held by a pending or paid
// booking.
func (p *PostgresBookingRepository) Create(
	ctx context.Context,
	booking *domain.Booking,
	quote domain.QuoteFunc) error {

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		showtime, err := lockShowtime(ctx, tx, booking.ShowtimeID)
		if err != nil {
			return err
		}

		seats, err := seatsInTheater(ctx, tx, showtime.TheaterID, booking.SeatIDs)
		if err != nil {
			return err
		}

		total, err := quote(showtime, seats)
		if err != nil {
			return err
		}

		booking.TotalAmount = total

		var hasPending bool
		query := `SELECT EXISTS (SELECT 1 FROM bookings WHERE user_id = $1 AND status = 'pending')`

		err = tx.QueryRow(ctx, query, booking.UserID).Scan(&hasPending)
		if err != nil {
			return err
		}

		if hasPending {
			return domain.ErrPendingBookingExists
		}

		query = `
			INSERT INTO bookings (user_id, showtime_id, quantity, total_amount, status, booked_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING id, updated_at
		`

		err = tx.QueryRow(
			ctx,
			query,
			booking.UserID,
			booking.ShowtimeID,
			booking.Quantity,
			booking.TotalAmount,
			booking.Status,
			booking.BookedAt,
		).Scan(&booking.ID, &booking.UpdatedAt)
		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(booking.SeatIDs))
		for _, seatId := range booking.SeatIDs {
			rows = append(rows, []any{booking.ID, seatId})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"booking_seats"},
			[]string{"booking_id", "seat_id"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return err
		}

		query = `
			INSERT INTO seat_claims (showtime_id, seat_id, booking_id, claimed_at)
			SELECT $1::int, seat_id, $3::int, $4::timestamptz
			FROM unnest($2::int[]) WITH ORDINALITY AS s(seat_id, ord)
			ORDER BY ord
		`

		_, err = tx.Exec(ctx, query, booking.ShowtimeID, booking.SeatIDs, booking.ID, booking.BookedAt)
		return err
	})

	return claimError(err)
}

func lockShowtime(ctx context.Context, tx pgx.Tx, showtimeId int) (*domain.Showtime, error) {
	query := `
		SELECT id, film_id, theater_id, price, starts_at
		FROM showtimes
		WHERE id = $1
		FOR SHARE
	`

	var showtime domain.Showtime

	err := tx.QueryRow(ctx, query, showtimeId).Scan(
		&showtime.ID,
		&showtime.FilmID,
		&showtime.TheaterID,
		&showtime.Price,
		&showtime.StartsAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &showtime, nil
}

func seatsInTheater(ctx context.Context, tx pgx.Tx, theaterId int, seatIds []int) ([]domain.Seat, error) {
	query := `
		SELECT id, theater_id, seat_label
		FROM seats
		WHERE theater_id = $1 AND id = ANY($2)
		ORDER BY id
		FOR SHARE
	`

	rows, err := tx.Query(ctx, query, theaterId, seatIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0, len(seatIds))

	for rows.Next() {
		var seat domain.Seat

		err = rows.Scan(&seat.ID, &seat.TheaterID, &seat.Label)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func (p *PostgresBookingRepository) GetById(ctx context.Context, id int) (*domain.Booking, error) {
	query := `
		SELECT b.id, b.user_id, b.showtime_id, b.quantity, b.total_amount, b.status, b.booked_at, b.updated_at,
			COALESCE(array_agg(bs.seat_id ORDER BY bs.seat_id) FILTER (WHERE bs.seat_id IS NOT NULL), '{}')
		FROM bookings b
		LEFT JOIN booking_seats bs ON bs.booking_id = b.id
		WHERE b.id = $1
		GROUP BY b.id
	`

	var booking domain.Booking

	err := p.db.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.ShowtimeID,
		&booking.Quantity,
		&booking.TotalAmount,
		&booking.Status,
		&booking.BookedAt,
		&booking.UpdatedAt,
		&booking.SeatIDs,
	)
	if err != nil {
		return nil, storeError(err)
	}

	return &booking, nil
}

func (p *PostgresBookingRepository) GetDetailByIdAndUserId(
	ctx context.Context,
	id,
	userId int) (*domain.BookingDetail, error) {

	query := `
		SELECT
			b.id,
			b.user_id,
			b.showtime_id,
			f.title,
			f.poster_url,
			t.name,
			s.starts_at,
			b.quantity,
			b.total_amount,
			b.status,
			b.booked_at,
			(SELECT p.status FROM payments p WHERE p.booking_id = b.id ORDER BY p.created_at DESC LIMIT 1),
			ARRAY(
				SELECT st.seat_label
				FROM booking_seats bs
				JOIN seats st ON st.id = bs.seat_id
				WHERE bs.booking_id = b.id
				ORDER BY st.seat_label
			)
		FROM bookings b
		JOIN showtimes s ON s.id = b.showtime_id
		JOIN films f ON f.id = s.film_id
		JOIN theaters t ON t.id = s.theater_id
		WHERE b.id = $1 AND b.user_id = $2
	`

	var detail domain.BookingDetail

	err := p.db.QueryRow(ctx, query, id, userId).Scan(
		&detail.BookingID,
		&detail.UserID,
		&detail.ShowtimeID,
		&detail.FilmTitle,
		&detail.FilmPosterUrl,
		&detail.TheaterName,
		&detail.ShowtimeDate,
		&detail.Quantity,
		&detail.TotalAmount,
		&detail.Status,
		&detail.BookedAt,
		&detail.PaymentStatus,
		&detail.SeatLabels,
	)
	if err != nil {
		return nil, storeError(err)
	}

	return &detail, nil
}

// Cancel moves a pending booking to cancelled and releases its seats. It
// reports false without error when the booking is already terminal.
func (p *PostgresBookingRepository) Cancel(ctx context.Context, id int) (bool, error) {
	var cancelled bool

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		var err error

		cancelled, err = cancelPending(ctx, tx, id)
		if err != nil {
			return err
		}

		if !cancelled {
			return ensureBookingExists(ctx, tx, id)
		}

		return nil
	})

	return cancelled, storeError(err)
}

// Expire cancels a stale pending booking and expires its pending payment. The
// update re-checks every sweep condition so that a booking settled after it was
// listed is left alone. Like Reconcile it locks the booking before the payment.
func (p *PostgresBookingRepository) Expire(ctx context.Context, id int, cutoff time.Time) (bool, error) {
	var expired bool

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE bookings b
			SET status = 'cancelled', updated_at = NOW()
			WHERE b.id = $1
				AND b.status = 'pending'
				AND b.booked_at < $2
				AND NOT EXISTS (
					SELECT 1 FROM payments p WHERE p.booking_id = b.id AND p.status <> 'pending'
				)
		`

		tag, err := tx.Exec(ctx, query, id, cutoff)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return nil
		}

		query = `
			UPDATE payments
			SET status = 'expired', updated_at = NOW()
			WHERE booking_id = $1 AND status = 'pending'
		`

		_, err = tx.Exec(ctx, query, id)
		if err != nil {
			return err
		}

		err = releaseSeats(ctx, tx, id)
		if err != nil {
			return err
		}

		expired = true
		return nil
	})

	return expired, storeError(err)
}

func cancelPending(ctx context.Context, tx pgx.Tx, id int) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}

	if tag.RowsAffected() == 0 {
		return false, nil
	}

	return true, releaseSeats(ctx, tx, id)
}

func releaseSeats(ctx context.Context, tx pgx.Tx, bookingId int) error {
	_, err := tx.Exec(ctx, `DELETE FROM seat_claims WHERE booking_id = $1`, bookingId)
	return err
}

func ensureBookingExists(ctx context.Context, tx pgx.Tx, id int) error {
	var exists bool

	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}

	if !exists {
		return domain.ErrRecordNotFound
	}

	return nil
}

// ListExpirable returns up to limit expirable bookings with an id above afterId,
// in id order, so callers can page through every candidate.
func (p *PostgresBookingRepository) ListExpirable(
	ctx context.Context,
	cutoff time.Time,
	afterId,
	limit int) ([]domain.Booking, error) {

	query := `
		SELECT b.id, b.user_id, b.showtime_id, b.quantity, b.total_amount, b.status, b.booked_at, b.updated_at
		FROM bookings b
		WHERE b.status = 'pending'
			AND b.booked_at < $1
			AND b.id > $2
			AND NOT EXISTS (
				SELECT 1 FROM payments p WHERE p.booking_id = b.id AND p.status <> 'pending'
			)
		ORDER BY b.id
		LIMIT $3
	`

	rows, err := p.db.Query(ctx, query, cutoff, afterId, limit)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)

	for rows.Next() {
		var booking domain.Booking

		err = rows.Scan(
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
			return nil, storeError(err)
		}

		bookings = append(bookings, booking)
	}

	if err = rows.Err(); err != nil {
		return nil, storeError(err)
	}

	return bookings, nil
}

// GetClaimedSeatIds derives occupancy from the bookings themselves rather than
// from seat_claims, so availability always agrees with booking status.
func (p *PostgresBookingRepository) GetClaimedSeatIds(ctx context.Context, showtimeId int) ([]int, error) {
	query := `
		SELECT bs.seat_id
		FROM booking_seats bs
		JOIN bookings b ON b.id = bs.booking_id
		WHERE b.showtime_id = $1 AND b.status IN ('pending', 'paid')
	`

	rows, err := p.db.Query(ctx, query, showtimeId)
	if err != nil {
		return nil, storeError(err)
	}

	seatIds, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, storeError(err)
	}

	return seatIds, nil
}

// CreateHistory appends a history entry once per booking. A repeated call
// loads the existing entry into history instead of inserting a duplicate.
func (p *PostgresBookingRepository) CreateHistory(ctx context.Context, history *domain.BookingHistory) error {
	query := `
		WITH inserted AS (
			INSERT INTO booking_history (user_id, booking_id, showtime_id)
			SELECT b.user_id, b.id, b.showtime_id
			FROM bookings b
			WHERE b.id = $2 AND b.user_id = $1 AND b.showtime_id = $3
			ON CONFLICT (booking_id) DO NOTHING
			RETURNING id, user_id, booking_id, showtime_id, created_at
		)
		SELECT id, user_id, booking_id, showtime_id, created_at FROM inserted
		UNION ALL
		SELECT h.id, h.user_id, h.booking_id, h.showtime_id, h.created_at
		FROM booking_history h
		WHERE h.booking_id = $2 AND h.user_id = $1 AND h.showtime_id = $3
		LIMIT 1
	`

	err := p.db.QueryRow(ctx, query, history.UserID, history.BookingID, history.ShowtimeID).Scan(
		&history.ID,
		&history.UserID,
		&history.BookingID,
		&history.ShowtimeID,
		&history.CreatedAt,
	)

	return storeError(err)
}

func (p *PostgresBookingRepository) GetHistoryByUserId(
	ctx context.Context,
	userId int,
	pagination domain.Pagination) ([]domain.BookingHistoryEntry, *domain.Metadata, error) {

	query := `
		SELECT
			COUNT(*) OVER(),
			h.id,
			h.user_id,
			h.booking_id,
			h.showtime_id,
			h.created_at,
			f.title,
			f.poster_url,
			t.name,
			s.starts_at,
			b.status,
			b.total_amount
		FROM booking_history h
		JOIN bookings b ON b.id = h.booking_id
		JOIN showtimes s ON s.id = h.showtime_id
		JOIN films f ON f.id = s.film_id
		JOIN theaters t ON t.id = s.theater_id
		WHERE h.user_id = $1
		ORDER BY h.created_at DESC, h.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, userId, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, storeError(err)
	}
	defer rows.Close()

	entries := make([]domain.BookingHistoryEntry, 0)
	totalRecords := 0

	for rows.Next() {
		var entry domain.BookingHistoryEntry

		err := rows.Scan(
			&totalRecords,
			&entry.ID,
			&entry.UserID,
			&entry.BookingID,
			&entry.ShowtimeID,
			&entry.CreatedAt,
			&entry.FilmTitle,
			&entry.FilmPosterUrl,
			&entry.TheaterName,
			&entry.ShowtimeDate,
			&entry.Status,
			&entry.TotalAmount,
		)
		if err != nil {
			return nil, nil, storeError(err)
		}

		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, storeError(err)
	}

	return entries, domain.NewMetadata(totalRecords, pagination), nil
}
