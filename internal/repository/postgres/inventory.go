package postgresrepo

import (
	"context"
	"fmt"

	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
)

type InventoryRepo struct {
	db DB
}

// Reserve decrements the available seats of one flight class.
// The decrement is a single conditional UPDATE, so the availability check
// and the write happen under the same row lock.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - flightID: flight to reserve on.
//   - class: seat class to reserve in.
//   - count: number of seats, must be positive.
//
// Returns:
//   - error: repository.ErrInsufficientSeats if fewer than count seats are left.
//   - error: repository.ErrNotFound if the flight has no such class.
func (r *InventoryRepo) Reserve(ctx context.Context, flightID int64, class domain.SeatClass, count int) error {
	const op = "postgresrepo.InventoryRepo.Reserve"

	if count <= 0 {
		return fmt.Errorf("%s: count must be positive, got %d", op, count)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE flight_seats SET available = available - $3
		 WHERE flight_id = $1 AND seat_class = $2 AND available >= $3`,
		flightID, string(class), count,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	return r.missOrErr(ctx, op, flightID, class, repository.ErrInsufficientSeats)
}

// Release gives seats back to one flight class. It never lets available
// exceed capacity.
//
// Returns:
//   - error: repository.ErrCapacityExceeded if the release would overflow capacity.
//   - error: repository.ErrNotFound if the flight has no such class.
func (r *InventoryRepo) Release(ctx context.Context, flightID int64, class domain.SeatClass, count int) error {
	const op = "postgresrepo.InventoryRepo.Release"

	if count <= 0 {
		return fmt.Errorf("%s: count must be positive, got %d", op, count)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE flight_seats SET available = available + $3
		 WHERE flight_id = $1 AND seat_class = $2 AND available + $3 <= capacity`,
		flightID, string(class), count,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	return r.missOrErr(ctx, op, flightID, class, repository.ErrCapacityExceeded)
}

func (r *InventoryRepo) Snapshot(ctx context.Context, flightID int64) ([]domain.ClassInventory, error) {
	const op = "postgresrepo.InventoryRepo.Snapshot"

	rows, err := r.db.Query(ctx,
		`SELECT seat_class, price_cents, capacity, available
		 FROM flight_seats WHERE flight_id = $1 ORDER BY seat_class`,
		flightID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.ClassInventory
	for rows.Next() {
		var (
			ci    domain.ClassInventory
			class string
		)
		if err := rows.Scan(&class, &ci.PriceCents, &ci.Capacity, &ci.Available); err != nil {
			return nil, wrapDBErr(op, err)
		}
		ci.Class = domain.SeatClass(class)
		out = append(out, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return out, nil
}

// missOrErr tells a missing (flight, class) row apart from a failed guard.
func (r *InventoryRepo) missOrErr(
	ctx context.Context,
	op string,
	flightID int64,
	class domain.SeatClass,
	guardErr error,
) error {
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM flight_seats WHERE flight_id = $1 AND seat_class = $2)`,
		flightID, string(class),
	).Scan(&exists); err != nil {
		return wrapDBErr(op, err)
	}

	if !exists {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return fmt.Errorf("%s:%w", op, guardErr)
}
