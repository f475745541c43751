package postgresrepo

import (
	"context"
	"time"

	"github.com/kirinyoku/flightbook/internal/domain"
)

type ReportRepo struct {
	db DB
}

// MonthlyRevenue aggregates confirmed bookings created in [from, to) and
// counts flights departing in the same range.
func (r *ReportRepo) MonthlyRevenue(ctx context.Context, from, to time.Time) (*domain.RevenueReport, error) {
	const op = "postgresrepo.ReportRepo.MonthlyRevenue"

	rows, err := r.db.Query(ctx,
		`SELECT seat_class, COUNT(*), COALESCE(SUM(passengers), 0), COALESCE(SUM(total_cents), 0)
		 FROM bookings
		 WHERE status = 'confirmed' AND created_at >= $1 AND created_at < $2
		 GROUP BY seat_class`,
		from, to,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	rep := &domain.RevenueReport{ByClass: map[domain.SeatClass]domain.ClassRevenue{}}
	for rows.Next() {
		var (
			class string
			cr    domain.ClassRevenue
		)
		if err := rows.Scan(&class, &cr.Bookings, &cr.Passengers, &cr.RevenueCents); err != nil {
			return nil, wrapDBErr(op, err)
		}
		rep.ByClass[domain.SeatClass(class)] = cr
		rep.TotalBookings += cr.Bookings
		rep.TotalPassengers += cr.Passengers
		rep.TotalRevenueCents += cr.RevenueCents
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM flights WHERE departure_at >= $1 AND departure_at < $2`,
		from, to,
	).Scan(&rep.NumberOfFlights); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return rep, nil
}
