package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Film struct {
	ID        int
	Title     string
	PosterUrl string
}

type Theater struct {
	ID   int
	Name string
}

type Showtime struct {
	ID        int
	FilmID    int
	TheaterID int
	Price     decimal.Decimal
	StartsAt  time.Time
}

type Seat struct {
	ID        int
	TheaterID int
	Label     string
}

type SeatAvailability struct {
	Seat
	Available bool
}

type SeatMap struct {
	Film     Film
	Theater  Theater
	Showtime Showtime
	Seats    []SeatAvailability
}

// CatalogRepository exposes the read-only lookups the booking core needs from
// the externally owned catalog.
type CatalogRepository interface {
	GetShowtimeById(ctx context.Context, id int) (*Showtime, error)
	GetFilmById(ctx context.Context, id int) (*Film, error)
	GetTheaterById(ctx context.Context, id int) (*Theater, error)
	GetSeatsForTheater(ctx context.Context, theaterId int) ([]Seat, error)
}
