package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
	"github.com/kirinyoku/flightbook/internal/uow"
)

type BookRequest struct {
	OutboundFlightID int64
	ReturnFlightID   *int64
	Class            domain.SeatClass
	Passengers       int
}

// Book reserves seats on one or two flights and records a pending booking.
//
// Seats are claimed leg by leg, each claim atomic on its own (flight, class)
// counter. If a later leg or the booking write fails, every claimed leg is
// released before the error is returned, so the caller sees all legs or none.
//
// Parameters:
//   - ctx: request-scoped context.
//   - p: the acting principal, who becomes the booking owner.
//   - req: flights, seat class and passenger count.
//
// Returns:
//   - *domain.Booking: the created booking in pending status.
//   - error: booking.ErrFlightNotFound if a flight does not exist.
//   - error: booking.ErrInsufficientSeats (as InsufficientSeatsError) if a leg is short of seats.
//   - error: booking.ErrInvalidRequest if the request is malformed or a flight is not bookable.
//   - error: booking.ErrRateLimited (as RateLimitedError) if the caller is over its booking rate.
//   - error: booking.ErrStoreUnavailable on transient persistence failures.
func (s *Service) Book(ctx context.Context, p domain.Principal, req BookRequest) (*domain.Booking, error) {
	const op = "service.booking.Book"

	if p.UserID == uuid.Nil {
		return nil, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	if req.Passengers < 1 {
		return nil, fmt.Errorf("%s:%w", op, invalidf("passengers must be at least 1"))
	}

	if _, ok := domain.ParseSeatClass(string(req.Class)); !ok {
		return nil, fmt.Errorf("%s:%w", op, invalidf("unknown seat class %q", req.Class))
	}

	if err := s.allow(ctx, p.UserID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	now := s.cfg.Now()

	legs, err := s.planLegs(ctx, req, now)
	if err != nil {
		return nil, storeErr(op, err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CommitTimeout)
	defer cancel()

	reserved := make([]domain.Leg, 0, len(legs))
	for _, l := range legs {
		if err := s.store.Inventory().Reserve(ctx, l.FlightID, req.Class, req.Passengers); err != nil {
			s.compensate(ctx, reserved, req.Class, req.Passengers)
			return nil, storeErr(op, reserveErr(err, l.FlightID, req.Class, req.Passengers))
		}
		reserved = append(reserved, l)
	}

	b := &domain.Booking{
		ID:         uuid.New(),
		UserID:     p.UserID,
		SeatClass:  req.Class,
		Passengers: req.Passengers,
		Status:     domain.BookingPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		b.Legs = make([]domain.Leg, len(legs))
		b.TotalCents = 0
		for i, l := range legs {
			tn, err := s.tickets.Next(ctx, tx.Tickets())
			if err != nil {
				return err
			}
			l.TicketNumber = tn
			b.Legs[i] = l
			b.TotalCents += l.AmountCents
		}

		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.flightsChanged(ctx, b.Legs)
			s.notify(ctx, domain.EventBookingCreated, b)
		})

		return nil
	})
	if err != nil {
		s.compensate(ctx, reserved, req.Class, req.Passengers)
		return nil, storeErr(op, err)
	}

	s.logger.InfoContext(ctx, "booking created",
		slog.String("booking_id", b.ID.String()),
		slog.String("user_id", b.UserID.String()),
		slog.Int("legs", len(b.Legs)),
		slog.Int("passengers", b.Passengers),
	)

	return b, nil
}

// planLegs loads and validates the requested flights and prices each leg.
func (s *Service) planLegs(ctx context.Context, req BookRequest, now time.Time) ([]domain.Leg, error) {
	out, err := s.bookableFlight(ctx, req.OutboundFlightID, req.Class, now)
	if err != nil {
		return nil, err
	}

	legs := []domain.Leg{newLeg(domain.LegOutbound, out, req)}

	if req.ReturnFlightID == nil {
		return legs, nil
	}

	if *req.ReturnFlightID == req.OutboundFlightID {
		return nil, invalidf("return flight must differ from outbound flight")
	}

	ret, err := s.bookableFlight(ctx, *req.ReturnFlightID, req.Class, now)
	if err != nil {
		return nil, err
	}

	if ret.Origin != out.Destination || ret.Destination != out.Origin {
		return nil, invalidf("return flight %d does not fly %s to %s", ret.ID, out.Destination, out.Origin)
	}

	if !ret.DepartureAt.After(out.ArrivalAt) {
		return nil, invalidf("return flight %d departs before outbound arrival", ret.ID)
	}

	if ret.DepartureAt.Sub(out.DepartureAt) > s.cfg.ReturnWindow {
		return nil, invalidf("return flight %d departs more than %s after outbound", ret.ID, s.cfg.ReturnWindow)
	}

	return append(legs, newLeg(domain.LegReturn, ret, req)), nil
}

func (s *Service) bookableFlight(
	ctx context.Context,
	id int64,
	class domain.SeatClass,
	now time.Time,
) (*domain.Flight, error) {
	f, err := s.store.Flights().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrFlightNotFound, id)
		}
		return nil, err
	}

	if !f.Bookable(now) {
		return nil, invalidf("flight %d is not open for booking", id)
	}

	if _, ok := f.Class(class); !ok {
		return nil, invalidf("flight %d has no %s class", id, class)
	}

	return f, nil
}

func newLeg(d domain.LegDirection, f *domain.Flight, req BookRequest) domain.Leg {
	ci, _ := f.Class(req.Class)
	return domain.Leg{
		Direction:   d,
		FlightID:    f.ID,
		AmountCents: ci.PriceCents * int64(req.Passengers),
		DepartureAt: f.DepartureAt,
	}
}

// compensate releases seats claimed by a Book call that will not complete.
// A failed release leaves an orphaned reservation; it is logged for
// reconciliation rather than retried here.
func (s *Service) compensate(ctx context.Context, legs []domain.Leg, class domain.SeatClass, count int) {
	ctx = context.WithoutCancel(ctx)

	for _, l := range legs {
		if err := s.store.Inventory().Release(ctx, l.FlightID, class, count); err != nil {
			s.logger.ErrorContext(ctx, "seat compensation failed, reservation orphaned",
				slog.Int64("flight_id", l.FlightID),
				slog.String("class", string(class)),
				slog.Int("seats", count),
				slog.Any("error", err),
			)
			continue
		}
		s.logger.InfoContext(ctx, "seat reservation compensated",
			slog.Int64("flight_id", l.FlightID),
			slog.String("class", string(class)),
			slog.Int("seats", count),
		)
	}
}

func reserveErr(err error, flightID int64, class domain.SeatClass, count int) error {
	switch {
	case errors.Is(err, repository.ErrInsufficientSeats):
		return InsufficientSeatsError{FlightID: flightID, Class: class, Requested: count}
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %d", ErrFlightNotFound, flightID)
	}
	return err
}

// allow applies the per-user booking rate. Limiter outages fail open: the
// limit protects capacity from abuse, it does not guard correctness.
func (s *Service) allow(ctx context.Context, userID uuid.UUID) error {
	if s.limiter == nil {
		return nil
	}

	ok, _, retry, err := s.limiter.Allow(ctx, "book:"+userID.String())
	if err != nil {
		s.logger.WarnContext(ctx, "rate limiter unavailable", slog.Any("error", err))
		return nil
	}

	if !ok {
		return RateLimitedError{RetryAfter: retry}
	}

	return nil
}
