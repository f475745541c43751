package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
)

type bookingRepo struct {
	s *Store
}

func (r bookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "memory.bookingRepo.Create"

	claimed := make([]string, 0, len(b.Legs))
	for _, l := range b.Legs {
		if _, loaded := r.s.tickets.LoadOrStore(l.TicketNumber, b.ID); loaded {
			for _, t := range claimed {
				r.s.tickets.Delete(t)
			}
			return fmt.Errorf("%s:%w", op, repository.ErrConflict)
		}
		claimed = append(claimed, l.TicketNumber)
	}

	if _, loaded := r.s.bookings.LoadOrStore(b.ID, &bookingEntry{booking: cloneBooking(*b)}); loaded {
		for _, t := range claimed {
			r.s.tickets.Delete(t)
		}
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	return nil
}

func (r bookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "memory.bookingRepo.Get"

	e, ok := r.s.bookings.Load(id)
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	b := e.get()
	return &b, nil
}

func (r bookingRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Booking, error) {
	var out []domain.Booking
	r.s.bookings.Range(func(_ uuid.UUID, e *bookingEntry) bool {
		if b := e.get(); b.UserID == userID {
			out = append(out, b)
		}
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return page(out, limit, offset), nil
}

// Transition holds the booking's own lock across the status check and the
// write, so at most one of several concurrent changes from the same status wins.
func (r bookingRepo) Transition(ctx context.Context, id uuid.UUID, ch domain.StatusChange) error {
	const op = "memory.bookingRepo.Transition"

	e, ok := r.s.bookings.Load(id)
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.booking.Status != ch.From {
		return fmt.Errorf("%s:%w", op, repository.ErrStatusConflict)
	}
	ch.Apply(&e.booking)

	return nil
}

func (r bookingRepo) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	var stale []domain.Booking
	r.s.bookings.Range(func(_ uuid.UUID, e *bookingEntry) bool {
		if b := e.get(); b.Status == domain.BookingPending && b.CreatedAt.Before(createdBefore) {
			stale = append(stale, b)
		}
		return true
	})

	sort.Slice(stale, func(i, j int) bool {
		return stale[i].CreatedAt.Before(stale[j].CreatedAt)
	})

	stale = page(stale, limit, 0)
	ids := make([]uuid.UUID, 0, len(stale))
	for _, b := range stale {
		ids = append(ids, b.ID)
	}

	return ids, nil
}

func (e *bookingEntry) get() domain.Booking {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneBooking(e.booking)
}

func cloneBooking(b domain.Booking) domain.Booking {
	b.Legs = append([]domain.Leg(nil), b.Legs...)
	if b.PaymentDetails != nil {
		b.PaymentDetails = append([]byte(nil), b.PaymentDetails...)
	}
	if b.ConfirmedAt != nil {
		t := *b.ConfirmedAt
		b.ConfirmedAt = &t
	}
	if b.CancelledAt != nil {
		t := *b.CancelledAt
		b.CancelledAt = &t
	}
	return b
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
