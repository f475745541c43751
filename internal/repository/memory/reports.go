package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/flightbook/internal/domain"
)

type reportRepo struct {
	s *Store
}

func (r reportRepo) MonthlyRevenue(ctx context.Context, from, to time.Time) (*domain.RevenueReport, error) {
	rep := &domain.RevenueReport{ByClass: map[domain.SeatClass]domain.ClassRevenue{}}

	inRange := func(t time.Time) bool { return !t.Before(from) && t.Before(to) }

	r.s.bookings.Range(func(_ uuid.UUID, e *bookingEntry) bool {
		b := e.get()
		if b.Status != domain.BookingConfirmed || !inRange(b.CreatedAt) {
			return true
		}
		cr := rep.ByClass[b.SeatClass]
		cr.Bookings++
		cr.Passengers += int64(b.Passengers)
		cr.RevenueCents += b.TotalCents
		rep.ByClass[b.SeatClass] = cr

		rep.TotalBookings++
		rep.TotalPassengers += int64(b.Passengers)
		rep.TotalRevenueCents += b.TotalCents
		return true
	})

	r.s.flights.Range(func(_ int64, e *flightEntry) bool {
		e.mu.RLock()
		dep := e.flight.DepartureAt
		e.mu.RUnlock()
		if inRange(dep) {
			rep.NumberOfFlights++
		}
		return true
	})

	return rep, nil
}
