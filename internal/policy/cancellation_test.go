package policy

import (
	"testing"
	"time"

	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCancellation_CheckWindow(t *testing.T) {
	p := NewCancellation(0)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		departure time.Time
		want      bool
	}{
		{"two hours out", now.Add(2 * time.Hour), true},
		{"exactly one hour", now.Add(time.Hour), true},
		{"59 minutes", now.Add(59 * time.Minute), false},
		{"departed", now.Add(-time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CheckWindow(tt.departure, now))
		})
	}
}

func TestCancellation_EvaluateAllLegs(t *testing.T) {
	p := NewCancellation(time.Hour)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	b := &domain.Booking{Legs: []domain.Leg{
		{Direction: domain.LegOutbound, DepartureAt: now.Add(30 * time.Minute)},
		{Direction: domain.LegReturn, DepartureAt: now.Add(48 * time.Hour)},
	}}
	assert.ErrorIs(t, p.Evaluate(b, now), ErrWindowClosed)

	b.Legs[0].DepartureAt = now.Add(3 * time.Hour)
	assert.NoError(t, p.Evaluate(b, now))
}

func TestRefundHint(t *testing.T) {
	assert.Equal(t, domain.RefundNoPayment, RefundHint(domain.BookingPending))
	assert.Equal(t, domain.RefundEligible, RefundHint(domain.BookingConfirmed))
}
