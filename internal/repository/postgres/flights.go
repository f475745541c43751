package postgresrepo

import (
	"context"
	"fmt"

	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
)

type FlightRepo struct {
	db DB
}

// Get returns a flight with its per-class inventory.
//
// Returns:
//   - error: repository.ErrNotFound if the flight does not exist.
func (r *FlightRepo) Get(ctx context.Context, id int64) (*domain.Flight, error) {
	const op = "postgresrepo.FlightRepo.Get"

	var (
		f      domain.Flight
		status string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, flight_number, origin, destination, departure_at, arrival_at, status
		 FROM flights WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.Number, &f.Origin, &f.Destination, &f.DepartureAt, &f.ArrivalAt, &status)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	f.Status = domain.FlightStatus(status)

	classes, err := r.classes(ctx, []int64{id})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	f.Classes = classes[id]

	return &f, nil
}

func (r *FlightRepo) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	const op = "postgresrepo.FlightRepo.List"

	var status any
	if filter.Status != "" {
		status = string(filter.Status)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, flight_number, origin, destination, departure_at, arrival_at, status
		 FROM flights
		 WHERE ($1::text IS NULL OR status = $1)
		 ORDER BY departure_at, id
		 LIMIT $2 OFFSET $3`,
		status, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var (
		flights []domain.Flight
		ids     []int64
	)
	for rows.Next() {
		var (
			f  domain.Flight
			st string
		)
		if err := rows.Scan(&f.ID, &f.Number, &f.Origin, &f.Destination, &f.DepartureAt, &f.ArrivalAt, &st); err != nil {
			return nil, wrapDBErr(op, err)
		}
		f.Status = domain.FlightStatus(st)
		flights = append(flights, f)
		ids = append(ids, f.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if len(ids) == 0 {
		return flights, nil
	}

	classes, err := r.classes(ctx, ids)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	for i := range flights {
		flights[i].Classes = classes[flights[i].ID]
	}

	return flights, nil
}

// UpdateStatus sets the operational status of a flight.
//
// Returns:
//   - error: repository.ErrNotFound if the flight does not exist.
func (r *FlightRepo) UpdateStatus(ctx context.Context, id int64, status domain.FlightStatus) error {
	const op = "postgresrepo.FlightRepo.UpdateStatus"

	tag, err := r.db.Exec(ctx,
		`UPDATE flights SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *FlightRepo) classes(ctx context.Context, flightIDs []int64) (map[int64][]domain.ClassInventory, error) {
	rows, err := r.db.Query(ctx,
		`SELECT flight_id, seat_class, price_cents, capacity, available
		 FROM flight_seats
		 WHERE flight_id = ANY($1)
		 ORDER BY flight_id, seat_class`,
		flightIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]domain.ClassInventory, len(flightIDs))
	for rows.Next() {
		var (
			flightID int64
			class    string
			ci       domain.ClassInventory
		)
		if err := rows.Scan(&flightID, &class, &ci.PriceCents, &ci.Capacity, &ci.Available); err != nil {
			return nil, err
		}
		ci.Class = domain.SeatClass(class)
		out[flightID] = append(out[flightID], ci)
	}

	return out, rows.Err()
}
