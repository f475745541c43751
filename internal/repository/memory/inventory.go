package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
)

type inventoryRepo struct {
	s *Store
}

func (r inventoryRepo) Reserve(ctx context.Context, flightID int64, class domain.SeatClass, count int) error {
	const op = "memory.inventoryRepo.Reserve"

	if count <= 0 {
		return fmt.Errorf("%s: count must be positive, got %d", op, count)
	}

	c, ok := r.s.seats.Load(seatKey{flightID: flightID, class: class})
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.available < count {
		return fmt.Errorf("%s:%w", op, repository.ErrInsufficientSeats)
	}
	c.available -= count

	return nil
}

func (r inventoryRepo) Release(ctx context.Context, flightID int64, class domain.SeatClass, count int) error {
	const op = "memory.inventoryRepo.Release"

	if count <= 0 {
		return fmt.Errorf("%s: count must be positive, got %d", op, count)
	}

	c, ok := r.s.seats.Load(seatKey{flightID: flightID, class: class})
	if !ok {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.available+count > c.capacity {
		return fmt.Errorf("%s:%w", op, repository.ErrCapacityExceeded)
	}
	c.available += count

	return nil
}

func (r inventoryRepo) Snapshot(ctx context.Context, flightID int64) ([]domain.ClassInventory, error) {
	const op = "memory.inventoryRepo.Snapshot"

	var out []domain.ClassInventory
	for _, class := range domain.SeatClasses {
		if c, ok := r.s.seats.Load(seatKey{flightID: flightID, class: class}); ok {
			out = append(out, c.snapshot(class))
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })

	return out, nil
}

func (c *seatCounter) snapshot(class domain.SeatClass) domain.ClassInventory {
	c.mu.Lock()
	defer c.mu.Unlock()

	return domain.ClassInventory{
		Class:      class,
		PriceCents: c.priceCents,
		Capacity:   c.capacity,
		Available:  c.available,
	}
}
