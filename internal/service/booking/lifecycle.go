package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/policy"
	"github.com/kirinyoku/flightbook/internal/repository"
	"github.com/kirinyoku/flightbook/internal/uow"
)

// Get returns a booking the principal owns, or any booking for an admin.
//
// Returns:
//   - error: booking.ErrBookingNotFound if the booking does not exist.
//   - error: booking.ErrForbidden if the principal may not see it.
func (s *Service) Get(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.Get"

	b, err := s.load(ctx, p, id)
	if err != nil {
		return nil, storeErr(op, err)
	}

	return b, nil
}

// ListForUser pages through userID's bookings, newest first.
func (s *Service) ListForUser(
	ctx context.Context,
	p domain.Principal,
	userID uuid.UUID,
	limit, offset int,
) ([]domain.Booking, error) {
	const op = "service.booking.ListForUser"

	if !p.CanAccess(userID) {
		return nil, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	if limit <= 0 {
		limit = defaultPageSize
	}

	if limit > maxPageSize {
		limit = maxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	bookings, err := s.store.Bookings().ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, storeErr(op, err)
	}

	if bookings == nil {
		bookings = []domain.Booking{}
	}

	return bookings, nil
}

// ConfirmPayment records the payment method and moves a pending booking to
// confirmed. Seat counts are not touched.
//
// Parameters:
//   - ctx: request-scoped context.
//   - p: acting principal, the owner or an admin.
//   - id: booking to confirm.
//   - method: payment method tag, credit_card or mobile_money.
//   - details: opaque payment reference data, stored as is.
//
// Returns:
//   - *domain.Booking: the confirmed booking.
//   - error: booking.ErrBookingNotFound, booking.ErrForbidden.
//   - error: booking.ErrInvalidState if the booking is not pending.
//   - error: booking.ErrInvalidRequest if the method is unknown.
func (s *Service) ConfirmPayment(
	ctx context.Context,
	p domain.Principal,
	id uuid.UUID,
	method string,
	details json.RawMessage,
) (*domain.Booking, error) {
	const op = "service.booking.ConfirmPayment"

	pm, ok := domain.ParsePaymentMethod(method)
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, invalidf("unknown payment method %q", method))
	}

	if len(details) > 0 && !json.Valid(details) {
		return nil, fmt.Errorf("%s:%w", op, invalidf("payment details must be JSON"))
	}

	b, err := s.load(ctx, p, id)
	if err != nil {
		return nil, storeErr(op, err)
	}

	if b.Status != domain.BookingPending {
		return nil, fmt.Errorf("%s: %w: booking is %s", op, ErrInvalidState, b.Status)
	}

	ch := domain.StatusChange{
		From:           domain.BookingPending,
		To:             domain.BookingConfirmed,
		At:             s.cfg.Now(),
		PaymentMethod:  pm,
		PaymentDetails: details,
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		if err := tx.Bookings().Transition(ctx, b.ID, ch); err != nil {
			return err
		}

		ch.Apply(b)

		after(func(ctx context.Context) {
			s.notify(ctx, domain.EventBookingConfirmed, b)
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, fmt.Errorf("%s: %w: booking changed concurrently", op, ErrInvalidState)
		}
		return nil, storeErr(op, err)
	}

	return b, nil
}

// Cancel cancels a pending or confirmed booking and returns its seats.
//
// The status compare-and-swap and the seat releases share one unit of work.
// Only the caller whose swap succeeds releases seats, so concurrent cancels
// release each reservation exactly once.
//
// Returns:
//   - *domain.Booking: the cancelled booking with its refund hint.
//   - error: booking.ErrBookingNotFound, booking.ErrForbidden.
//   - error: booking.ErrInvalidState if the booking is already cancelled.
//   - error: booking.ErrCancellationWindowClosed if a leg departs too soon.
func (s *Service) Cancel(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.Cancel"

	b, err := s.load(ctx, p, id)
	if err != nil {
		return nil, storeErr(op, err)
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		if b.Status.IsTerminal() {
			return nil, fmt.Errorf("%s: %w: booking is %s", op, ErrInvalidState, b.Status)
		}

		if err := s.policy.Evaluate(b, s.cfg.Now()); err != nil {
			if errors.Is(err, policy.ErrWindowClosed) {
				return nil, fmt.Errorf("%s:%w", op, ErrCancellationWindowClosed)
			}
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		err := s.cancelFrom(ctx, b, policy.RefundHint(b.Status), domain.EventBookingCancelled)
		if err == nil {
			return b, nil
		}

		if !errors.Is(err, repository.ErrStatusConflict) {
			return nil, storeErr(op, err)
		}

		// Someone moved the booking between our read and the swap.
		if b, err = s.load(ctx, p, id); err != nil {
			return nil, storeErr(op, err)
		}
	}

	return nil, fmt.Errorf("%s: %w: booking keeps changing", op, ErrInvalidState)
}

// ExpireStale cancels pending bookings older than the pending TTL and
// returns their seats. It acts as the system principal and skips the
// cancellation window because nothing was paid.
//
// Returns:
//   - int: number of bookings expired.
//   - error: joined errors of bookings that could not be expired.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	const op = "service.booking.ExpireStale"

	cutoff := s.cfg.Now().Add(-s.cfg.PendingTTL)

	ids, err := s.store.Bookings().ListStalePending(ctx, cutoff, s.cfg.ExpiryBatch)
	if err != nil {
		return 0, storeErr(op, err)
	}

	var (
		expired int
		errs    []error
	)
	for _, id := range ids {
		b, err := s.load(ctx, domain.SystemPrincipal, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if b.Status != domain.BookingPending {
			continue
		}

		err = s.cancelFrom(ctx, b, domain.RefundExpiredUnpaid, domain.EventBookingExpired)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, repository.ErrStatusConflict):
			// confirmed or cancelled meanwhile
		default:
			errs = append(errs, fmt.Errorf("booking %s: %w", id, err))
		}
	}

	if len(errs) > 0 {
		return expired, storeErr(op, errors.Join(errs...))
	}

	return expired, nil
}

// cancelFrom swaps b from its current status to cancelled and releases every
// leg. On success b reflects the stored state.
func (s *Service) cancelFrom(
	ctx context.Context,
	b *domain.Booking,
	hint domain.RefundHint,
	event domain.BookingEventType,
) error {
	ch := domain.StatusChange{
		From:       b.Status,
		To:         domain.BookingCancelled,
		At:         s.cfg.Now(),
		RefundHint: hint,
	}

	if !ch.From.CanTransitionTo(ch.To) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidState, ch.From, ch.To)
	}

	return s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		if err := tx.Bookings().Transition(ctx, b.ID, ch); err != nil {
			return err
		}

		for _, l := range b.Legs {
			err := tx.Inventory().Release(ctx, l.FlightID, b.SeatClass, b.Passengers)
			if errors.Is(err, repository.ErrCapacityExceeded) {
				// The counter already holds these seats; releasing again would
				// break available <= capacity. Cancel anyway, flag for reconciliation.
				s.logger.ErrorContext(ctx, "seat release would exceed capacity, leg left as is",
					slog.String("booking_id", b.ID.String()),
					slog.Int64("flight_id", l.FlightID),
					slog.String("class", string(b.SeatClass)),
					slog.Int("seats", b.Passengers),
				)
				continue
			}
			if err != nil {
				return err
			}
		}

		ch.Apply(b)

		after(func(ctx context.Context) {
			s.flightsChanged(ctx, b.Legs)
			s.notify(ctx, event, b)
		})

		return nil
	})
}

// load fetches a booking and checks that p may act on it.
func (s *Service) load(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Booking, error) {
	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if !p.CanAccess(b.UserID) {
		return nil, ErrForbidden
	}

	return b, nil
}
