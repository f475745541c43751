package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
)

type flightRepo struct {
	s *Store
}

func (r flightRepo) Get(ctx context.Context, id int64) (*domain.Flight, error) {
	const op = "memory.flightRepo.Get"

	e, ok := r.s.flights.Load(id)
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	f := r.s.snapshotFlight(e)
	return &f, nil
}

func (r flightRepo) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	var out []domain.Flight
	r.s.flights.Range(func(_ int64, e *flightEntry) bool {
		f := r.s.snapshotFlight(e)
		if filter.Status == "" || f.Status == filter.Status {
			out = append(out, f)
		}
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartureAt.Equal(out[j].DepartureAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DepartureAt.Before(out[j].DepartureAt)
	})

	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}

	return out, nil
}

func (r flightRepo) UpdateStatus(ctx context.Context, id int64, status domain.FlightStatus) error {
	const op = "memory.flightRepo.UpdateStatus"

	e, ok := r.s.flights.Load(id)
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	e.mu.Lock()
	e.flight.Status = status
	e.mu.Unlock()

	return nil
}

// snapshotFlight copies a flight with its live seat counters.
func (s *Store) snapshotFlight(e *flightEntry) domain.Flight {
	e.mu.RLock()
	f := e.flight
	e.mu.RUnlock()

	classes := make([]domain.ClassInventory, 0, len(f.Classes))
	for _, ci := range f.Classes {
		if c, ok := s.seats.Load(seatKey{flightID: f.ID, class: ci.Class}); ok {
			classes = append(classes, c.snapshot(ci.Class))
		}
	}
	f.Classes = classes

	return f
}
