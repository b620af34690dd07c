package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/movie-booking-system/internal/domain"
)

type PostgresCatalogRepository struct {
	db *pgxpool.Pool
}

func NewPostgresCatalogRepository(db *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{
		db: db,
	}
}

func (p *PostgresCatalogRepository) GetShowtimeById(ctx context.Context, id int) (*domain.Showtime, error) {
	query := `SELECT id, film_id, theater_id, price, starts_at FROM showtimes WHERE id = $1`

	var showtime domain.Showtime

	err := p.db.QueryRow(ctx, query, id).Scan(
		&showtime.ID,
		&showtime.FilmID,
		&showtime.TheaterID,
		&showtime.Price,
		&showtime.StartsAt,
	)
	if err != nil {
		return nil, storeError(err)
	}

	return &showtime, nil
}

func (p *PostgresCatalogRepository) GetFilmById(ctx context.Context, id int) (*domain.Film, error) {
	query := `SELECT id, title, poster_url FROM films WHERE id = $1`

	var film domain.Film

	err := p.db.QueryRow(ctx, query, id).Scan(&film.ID, &film.Title, &film.PosterUrl)
	if err != nil {
		return nil, storeError(err)
	}

	return &film, nil
}

func (p *PostgresCatalogRepository) GetTheaterById(ctx context.Context, id int) (*domain.Theater, error) {
	query := `SELECT id, name FROM theaters WHERE id = $1`

	var theater domain.Theater

	err := p.db.QueryRow(ctx, query, id).Scan(&theater.ID, &theater.Name)
	if err != nil {
		return nil, storeError(err)
	}

	return &theater, nil
}

func (p *PostgresCatalogRepository) GetSeatsForTheater(ctx context.Context, theaterId int) ([]domain.Seat, error) {
	query := `
		SELECT id, theater_id, seat_label
		FROM seats
		WHERE theater_id = $1
		ORDER BY seat_label
	`

	rows, err := p.db.Query(ctx, query, theaterId)
	if err != nil {
		return nil, storeError(err)
	}

	seats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Seat, error) {
		var seat domain.Seat
		err := row.Scan(&seat.ID, &seat.TheaterID, &seat.Label)
		return seat, err
	})
	if err != nil {
		return nil, storeError(err)
	}

	return seats, nil
}
