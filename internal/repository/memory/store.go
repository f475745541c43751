// Package memory is an in-process implementation of the repository ports.
// Every seat counter and every booking carries its own lock, so unrelated
// flights and bookings never serialize against each other.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
	"github.com/puzpuzpuz/xsync/v3"
)

type seatKey struct {
	flightID int64
	class    domain.SeatClass
}

type seatCounter struct {
	mu         sync.Mutex
	priceCents int64
	capacity   int
	available  int
}

type flightEntry struct {
	mu     sync.RWMutex
	flight domain.Flight
}

type bookingEntry struct {
	mu      sync.Mutex
	booking domain.Booking
}

type Store struct {
	flights  *xsync.MapOf[int64, *flightEntry]
	seats    *xsync.MapOf[seatKey, *seatCounter]
	bookings *xsync.MapOf[uuid.UUID, *bookingEntry]
	tickets  *xsync.MapOf[string, uuid.UUID]
	seq      atomic.Int64
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		flights:  xsync.NewMapOf[int64, *flightEntry](),
		seats:    xsync.NewMapOf[seatKey, *seatCounter](),
		bookings: xsync.NewMapOf[uuid.UUID, *bookingEntry](),
		tickets:  xsync.NewMapOf[string, uuid.UUID](),
	}
}

// AddFlight registers a flight and its seat counters as given.
func (s *Store) AddFlight(f domain.Flight) {
	classes := make([]domain.ClassInventory, len(f.Classes))
	copy(classes, f.Classes)
	f.Classes = classes

	for _, ci := range f.Classes {
		s.seats.Store(seatKey{flightID: f.ID, class: ci.Class}, &seatCounter{
			priceCents: ci.PriceCents,
			capacity:   ci.Capacity,
			available:  ci.Available,
		})
	}

	s.flights.Store(f.ID, &flightEntry{flight: f})
}

// RunTx calls fn with the store itself. The memory driver has no rollback:
// writes made by fn before it fails stay applied. Each port call is atomic on
// its own key, and the lifecycle engine orders its writes so that the only
// calls able to fail after the first write are guards it tolerates
// (a release that would exceed capacity). Seat counters are never removed,
// so a release cannot miss its counter.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repos) error) error {
	return fn(ctx, s)
}

func (s *Store) Flights() repository.FlightRepository   { return flightRepo{s} }
func (s *Store) Inventory() repository.SeatInventory    { return inventoryRepo{s} }
func (s *Store) Bookings() repository.BookingRepository { return bookingRepo{s} }
func (s *Store) Tickets() repository.TicketSequence     { return s }
func (s *Store) Reports() repository.ReportRepository   { return reportRepo{s} }

func (s *Store) NextTicketSeq(ctx context.Context) (int64, error) {
	return s.seq.Add(1), nil
}
