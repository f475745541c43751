package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		want     bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingConfirmed, BookingPending, false},
		{BookingCancelled, BookingConfirmed, false},
		{BookingCancelled, BookingCancelled, false},
		{BookingPending, BookingPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestParseBookingStatus(t *testing.T) {
	st, err := ParseBookingStatus("confirmed")
	require.NoError(t, err)
	assert.Equal(t, BookingConfirmed, st)

	_, err = ParseBookingStatus("refunded")
	assert.Error(t, err)
}

func TestStatusChange_Apply(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	b := &Booking{Status: BookingPending}
	StatusChange{
		From:           BookingPending,
		To:             BookingConfirmed,
		At:             at,
		PaymentMethod:  PaymentMobileMoney,
		PaymentDetails: []byte(`{"ref":"x"}`),
	}.Apply(b)

	assert.Equal(t, BookingConfirmed, b.Status)
	assert.Equal(t, PaymentMobileMoney, b.PaymentMethod)
	require.NotNil(t, b.ConfirmedAt)
	assert.Equal(t, at, *b.ConfirmedAt)
	assert.Equal(t, at, b.UpdatedAt)
	assert.Nil(t, b.CancelledAt)

	StatusChange{From: BookingConfirmed, To: BookingCancelled, At: at.Add(time.Hour), RefundHint: RefundEligible}.Apply(b)

	assert.Equal(t, BookingCancelled, b.Status)
	assert.Equal(t, RefundEligible, b.RefundHint)
	require.NotNil(t, b.CancelledAt)
	assert.Equal(t, PaymentMobileMoney, b.PaymentMethod)
}

func TestBooking_Legs(t *testing.T) {
	dep := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	b := &Booking{Legs: []Leg{
		{Direction: LegOutbound, TicketNumber: "LJ00000001", DepartureAt: dep},
		{Direction: LegReturn, TicketNumber: "LJ00000002", DepartureAt: dep.Add(72 * time.Hour)},
	}}

	assert.True(t, b.IsRoundTrip())
	assert.Equal(t, []string{"LJ00000001", "LJ00000002"}, b.TicketNumbers())
	assert.Equal(t, dep, b.EarliestDeparture())

	_, ok := (&Booking{Legs: b.Legs[:1]}).Leg(LegReturn)
	assert.False(t, ok)
}

func TestPrincipal_CanAccess(t *testing.T) {
	owner := uuid.MustParse("4b0d8a53-5b1e-4f7e-9d55-2a3c9d1b7e01")
	other := uuid.MustParse("4b0d8a53-5b1e-4f7e-9d55-2a3c9d1b7e02")

	assert.True(t, Principal{UserID: owner, Role: RoleUser}.CanAccess(owner))
	assert.False(t, Principal{UserID: other, Role: RoleUser}.CanAccess(owner))
	assert.True(t, Principal{UserID: other, Role: RoleAdmin}.CanAccess(owner))
	assert.True(t, SystemPrincipal.CanAccess(owner))
	assert.False(t, Principal{}.CanAccess(owner))
}

func TestFlight_Bookable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := &Flight{Status: FlightScheduled, DepartureAt: now.Add(time.Minute)}
	assert.True(t, f.Bookable(now))

	f.DepartureAt = now
	assert.False(t, f.Bookable(now))

	f.DepartureAt = now.Add(time.Hour)
	f.Status = FlightCancelled
	assert.False(t, f.Bookable(now))
}

func TestRevenueReport_Finalize(t *testing.T) {
	r := &RevenueReport{TotalRevenueCents: 1000, TotalBookings: 3}
	r.Finalize()

	assert.Equal(t, int64(333), r.AverageRevenuePerBooking)
	assert.Len(t, r.ByClass, len(SeatClasses))
}
