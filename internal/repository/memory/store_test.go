package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var departure = time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC)

func newTestStore(available int) *Store {
	s := NewStore()
	s.AddFlight(domain.Flight{
		ID:          1,
		Number:      "LJ100",
		Origin:      "LOS",
		Destination: "ABV",
		DepartureAt: departure,
		ArrivalAt:   departure.Add(time.Hour),
		Status:      domain.FlightScheduled,
		Classes: []domain.ClassInventory{
			{Class: domain.SeatClassEconomy, PriceCents: 10000, Capacity: 10, Available: available},
			{Class: domain.SeatClassFirst, PriceCents: 50000, Capacity: 2, Available: 2},
		},
	})
	return s
}

func available(t *testing.T, s *Store, class domain.SeatClass) int {
	t.Helper()
	snap, err := s.Inventory().Snapshot(context.Background(), 1)
	require.NoError(t, err)
	for _, ci := range snap {
		if ci.Class == class {
			return ci.Available
		}
	}
	t.Fatalf("class %s missing", class)
	return 0
}

func TestInventory_ReserveRelease(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(10)
	inv := s.Inventory()

	require.NoError(t, inv.Reserve(ctx, 1, domain.SeatClassEconomy, 2))
	assert.Equal(t, 8, available(t, s, domain.SeatClassEconomy))

	err := inv.Reserve(ctx, 1, domain.SeatClassEconomy, 9)
	assert.ErrorIs(t, err, repository.ErrInsufficientSeats)
	assert.Equal(t, 8, available(t, s, domain.SeatClassEconomy))

	require.NoError(t, inv.Release(ctx, 1, domain.SeatClassEconomy, 2))
	assert.ErrorIs(t, inv.Release(ctx, 1, domain.SeatClassEconomy, 1), repository.ErrCapacityExceeded)

	assert.ErrorIs(t, inv.Reserve(ctx, 99, domain.SeatClassEconomy, 1), repository.ErrNotFound)
	assert.Error(t, inv.Reserve(ctx, 1, domain.SeatClassEconomy, 0))
}

func TestInventory_NoDoubleAllocation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(10)

	var (
		wg      sync.WaitGroup
		granted atomic.Int64
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Inventory().Reserve(ctx, 1, domain.SeatClassEconomy, 1); err == nil {
				granted.Add(1)
			} else {
				assert.ErrorIs(t, err, repository.ErrInsufficientSeats)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), granted.Load())
	assert.Equal(t, 0, available(t, s, domain.SeatClassEconomy))
}

func TestInventory_InterleavedStaysInBounds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(5)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inv := s.Inventory()
			if i%2 == 0 {
				if inv.Reserve(ctx, 1, domain.SeatClassEconomy, 1) == nil {
					_ = inv.Release(ctx, 1, domain.SeatClassEconomy, 1)
				}
			} else {
				_ = inv.Release(ctx, 1, domain.SeatClassEconomy, 1)
			}
			a := available(t, s, domain.SeatClassEconomy)
			assert.GreaterOrEqual(t, a, 0)
			assert.LessOrEqual(t, a, 10)
		}(i)
	}
	wg.Wait()
}

func newBooking(userID uuid.UUID, created time.Time, tickets ...string) *domain.Booking {
	b := &domain.Booking{
		ID:         uuid.New(),
		UserID:     userID,
		SeatClass:  domain.SeatClassEconomy,
		Passengers: 1,
		Status:     domain.BookingPending,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for i, tn := range tickets {
		dir := domain.LegOutbound
		if i == 1 {
			dir = domain.LegReturn
		}
		b.Legs = append(b.Legs, domain.Leg{Direction: dir, FlightID: 1, TicketNumber: tn, DepartureAt: departure})
	}
	return b
}

func TestBookings_CreateRejectsDuplicateTicket(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user := uuid.New()

	require.NoError(t, s.Bookings().Create(ctx, newBooking(user, time.Now(), "LJ00000001")))

	err := s.Bookings().Create(ctx, newBooking(user, time.Now(), "LJ00000002", "LJ00000001"))
	assert.ErrorIs(t, err, repository.ErrConflict)

	// The rolled back claim on LJ00000002 is free again.
	require.NoError(t, s.Bookings().Create(ctx, newBooking(user, time.Now(), "LJ00000002")))
}

func TestBookings_TransitionIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	b := newBooking(uuid.New(), time.Now(), "LJ00000001")
	require.NoError(t, s.Bookings().Create(ctx, b))

	ch := domain.StatusChange{From: domain.BookingPending, To: domain.BookingCancelled, At: time.Now()}

	var (
		wg  sync.WaitGroup
		won atomic.Int64
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Bookings().Transition(ctx, b.ID, ch)
			if err == nil {
				won.Add(1)
				return
			}
			assert.ErrorIs(t, err, repository.ErrStatusConflict)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), won.Load())

	got, err := s.Bookings().Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, got.Status)

	assert.ErrorIs(t, s.Bookings().Transition(ctx, uuid.New(), ch), repository.ErrNotFound)
}

func TestBookings_ListByUserAndStale(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user := uuid.New()
	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	old := newBooking(user, base, "LJ00000001")
	mid := newBooking(user, base.Add(time.Hour), "LJ00000002")
	fresh := newBooking(user, base.Add(2*time.Hour), "LJ00000003")
	for _, b := range []*domain.Booking{old, mid, fresh} {
		require.NoError(t, s.Bookings().Create(ctx, b))
	}
	require.NoError(t, s.Bookings().Create(ctx, newBooking(uuid.New(), base, "LJ00000004")))

	list, err := s.Bookings().ListByUser(ctx, user, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, fresh.ID, list[0].ID)
	assert.Equal(t, mid.ID, list[1].ID)

	ids, err := s.Bookings().ListStalePending(ctx, base.Add(90*time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
flights:
  - id: 7
    number: LJ700
    origin: LOS
    destination: ACC
    departure_at: 2030-02-01T08:00:00Z
    arrival_at: 2030-02-01T09:30:00Z
    status: scheduled
    classes:
      - class: economy
        price_cents: 12000
        capacity: 10
      - class: firstClass
        price_cents: 60000
        capacity: 4
        available: 0
`), 0o600))

	s := NewStore()
	n, err := s.LoadSeed(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := s.Flights().Get(context.Background(), 7)
	require.NoError(t, err)
	eco, ok := f.Class(domain.SeatClassEconomy)
	require.True(t, ok)
	assert.Equal(t, 10, eco.Available)
	first, ok := f.Class(domain.SeatClassFirst)
	require.True(t, ok)
	assert.Equal(t, 0, first.Available)
}
