package policy

import (
	"errors"
	"time"

	"github.com/kirinyoku/flightbook/internal/domain"
)

const DefaultCutoff = time.Hour

var ErrWindowClosed = errors.New("cancellation window closed")

// Cancellation decides whether a booking may still be cancelled.
type Cancellation struct {
	Cutoff time.Duration
}

func NewCancellation(cutoff time.Duration) Cancellation {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	return Cancellation{Cutoff: cutoff}
}

// CheckWindow reports whether at least Cutoff remains before departure.
func (p Cancellation) CheckWindow(departure, now time.Time) bool {
	return departure.Sub(now) >= p.Cutoff
}

// Evaluate checks every leg of b. One closed leg closes the whole booking;
// partial cancellation is not offered.
func (p Cancellation) Evaluate(b *domain.Booking, now time.Time) error {
	for _, l := range b.Legs {
		if !p.CheckWindow(l.DepartureAt, now) {
			return ErrWindowClosed
		}
	}
	return nil
}

// RefundHint tells reporting what a cancellation from status means for money.
func RefundHint(from domain.BookingStatus) domain.RefundHint {
	if from == domain.BookingConfirmed {
		return domain.RefundEligible
	}
	return domain.RefundNoPayment
}
