package postgresrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
)

type BookingRepo struct {
	db DB
}

const bookingColumns = `id, user_id, seat_class, passengers, total_cents, status,
	payment_method, payment_details, refund_hint,
	created_at, updated_at, confirmed_at, cancelled_at`

// Create inserts a booking and its legs.
//
// Returns:
//   - error: repository.ErrConflict if the booking id or a ticket number already exists.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "postgresrepo.BookingRepo.Create"

	batch := &pgx.Batch{}
	batch.Queue(
		`INSERT INTO bookings(id, user_id, seat_class, passengers, total_cents, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.UserID, string(b.SeatClass), b.Passengers, b.TotalCents, string(b.Status), b.CreatedAt, b.UpdatedAt,
	)
	for _, l := range b.Legs {
		batch.Queue(
			`INSERT INTO booking_legs(booking_id, direction, flight_id, ticket_number, amount_cents)
			 VALUES ($1, $2, $3, $4, $5)`,
			b.ID, string(l.Direction), l.FlightID, l.TicketNumber, l.AmountCents,
		)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get returns a booking with its legs.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.Get"

	b, err := scanBooking(r.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	legs, err := r.legs(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	b.Legs = legs[id]

	return b, nil
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.ListByUser"

	rows, err := r.db.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var (
		out []domain.Booking
		ids []uuid.UUID
	)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if len(ids) == 0 {
		return out, nil
	}

	legs, err := r.legs(ctx, ids)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	for i := range out {
		out[i].Legs = legs[out[i].ID]
	}

	return out, nil
}

// Transition is a compare-and-swap on the booking status.
//
// Returns:
//   - error: repository.ErrStatusConflict if the status is no longer ch.From.
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) Transition(ctx context.Context, id uuid.UUID, ch domain.StatusChange) error {
	const op = "postgresrepo.BookingRepo.Transition"

	tag, err := r.db.Exec(ctx,
		`UPDATE bookings SET status = $3, updated_at = $4,
		 payment_method = COALESCE($5, payment_method),
		 payment_details = COALESCE($6, payment_details),
		 refund_hint = COALESCE($7, refund_hint),
		 confirmed_at = CASE WHEN $3 = 'confirmed' THEN $4 ELSE confirmed_at END,
		 cancelled_at = CASE WHEN $3 = 'cancelled' THEN $4 ELSE cancelled_at END
		 WHERE id = $1 AND status = $2`,
		id, string(ch.From), string(ch.To), ch.At,
		nullString(string(ch.PaymentMethod)), nullJSON(ch.PaymentDetails), nullString(string(ch.RefundHint)),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return wrapDBErr(op, err)
	}

	if !exists {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return fmt.Errorf("%s:%w", op, repository.ErrStatusConflict)
}

func (r *BookingRepo) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	const op = "postgresrepo.BookingRepo.ListStalePending"

	rows, err := r.db.Query(ctx,
		`SELECT id FROM bookings
		 WHERE status = 'pending' AND created_at < $1
		 ORDER BY created_at
		 LIMIT $2`,
		createdBefore, limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return ids, nil
}

func (r *BookingRepo) legs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.Leg, error) {
	rows, err := r.db.Query(ctx,
		`SELECT l.booking_id, l.direction, l.flight_id, l.ticket_number, l.amount_cents, f.departure_at
		 FROM booking_legs l
		 JOIN flights f ON f.id = l.flight_id
		 WHERE l.booking_id = ANY($1)
		 ORDER BY l.booking_id, l.direction`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.Leg, len(ids))
	for rows.Next() {
		var (
			bookingID uuid.UUID
			direction string
			l         domain.Leg
		)
		if err := rows.Scan(&bookingID, &direction, &l.FlightID, &l.TicketNumber, &l.AmountCents, &l.DepartureAt); err != nil {
			return nil, err
		}
		l.Direction = domain.LegDirection(direction)
		out[bookingID] = append(out[bookingID], l)
	}

	return out, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b             domain.Booking
		class, status string
		method, hint  *string
		details       []byte
	)
	if err := row.Scan(
		&b.ID, &b.UserID, &class, &b.Passengers, &b.TotalCents, &status,
		&method, &details, &hint,
		&b.CreatedAt, &b.UpdatedAt, &b.ConfirmedAt, &b.CancelledAt,
	); err != nil {
		return nil, err
	}

	b.SeatClass = domain.SeatClass(class)
	b.Status = domain.BookingStatus(status)
	if method != nil {
		b.PaymentMethod = domain.PaymentMethod(*method)
	}
	if hint != nil {
		b.RefundHint = domain.RefundHint(*hint)
	}
	if len(details) > 0 {
		b.PaymentDetails = json.RawMessage(details)
	}

	return &b, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
