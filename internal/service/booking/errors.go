package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
)

var (
	ErrFlightNotFound           = errors.New("flight not found")
	ErrBookingNotFound          = errors.New("booking not found")
	ErrInsufficientSeats        = errors.New("insufficient seats")
	ErrInvalidRequest           = errors.New("invalid request")
	ErrForbidden                = errors.New("forbidden")
	ErrInvalidState             = errors.New("invalid booking state")
	ErrCancellationWindowClosed = errors.New("cancellation window closed")
	ErrStoreUnavailable         = errors.New("store unavailable")
	ErrRateLimited              = errors.New("rate limited")
)

type InsufficientSeatsError struct {
	FlightID  int64
	Class     domain.SeatClass
	Requested int
}

func (e InsufficientSeatsError) Error() string {
	return fmt.Sprintf("insufficient %s seats on flight %d for %d passengers", e.Class, e.FlightID, e.Requested)
}

func (e InsufficientSeatsError) Is(target error) bool {
	return target == ErrInsufficientSeats
}

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidRequest}, args...)...)
}

// storeErr wraps err with op and tags transient persistence failures.
func storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrUnavailable) && !errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s:%w", op, err)
}
