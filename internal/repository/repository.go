package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/flightbook/internal/domain"
)

// FlightRepository reads flight records owned by the fleet collaborator.
type FlightRepository interface {
	Get(ctx context.Context, id int64) (*domain.Flight, error)
	List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	UpdateStatus(ctx context.Context, id int64, status domain.FlightStatus) error
}

// SeatInventory holds the per (flight, class) seat counters.
//
// Reserve and Release are atomic for concurrent callers on the same key.
// Reserve never mutates when fewer than count seats are available.
type SeatInventory interface {
	Reserve(ctx context.Context, flightID int64, class domain.SeatClass, count int) error
	Release(ctx context.Context, flightID int64, class domain.SeatClass, count int) error
	Snapshot(ctx context.Context, flightID int64) ([]domain.ClassInventory, error)
}

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Booking, error)
	// Transition applies ch only if the stored status equals ch.From.
	// It returns ErrStatusConflict otherwise.
	Transition(ctx context.Context, id uuid.UUID, ch domain.StatusChange) error
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error)
}

type TicketSequence interface {
	NextTicketSeq(ctx context.Context) (int64, error)
}

type ReportRepository interface {
	MonthlyRevenue(ctx context.Context, from, to time.Time) (*domain.RevenueReport, error)
}

type Repos interface {
	Flights() FlightRepository
	Inventory() SeatInventory
	Bookings() BookingRepository
	Tickets() TicketSequence
	Reports() ReportRepository
}

// Store is a Repos that can also run a function inside one transaction.
// The Repos handed to fn are bound to that transaction.
type Store interface {
	Repos
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
}
