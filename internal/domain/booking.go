package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type LegDirection string

const (
	LegOutbound LegDirection = "outbound"
	LegReturn   LegDirection = "return"
)

type PaymentMethod string

const (
	PaymentCreditCard  PaymentMethod = "credit_card"
	PaymentMobileMoney PaymentMethod = "mobile_money"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case PaymentCreditCard, PaymentMobileMoney:
		return PaymentMethod(s), true
	}
	return "", false
}

type RefundHint string

const (
	RefundNone          RefundHint = ""
	RefundNoPayment     RefundHint = "no_payment_captured"
	RefundEligible      RefundHint = "refund_eligible"
	RefundExpiredUnpaid RefundHint = "expired_unpaid"
)

// Leg is one directional flight segment of a booking.
type Leg struct {
	Direction    LegDirection `json:"direction"`
	FlightID     int64        `json:"flight_id"`
	TicketNumber string       `json:"ticket_number"`
	AmountCents  int64        `json:"amount_cents"`
	DepartureAt  time.Time    `json:"departure_at"`
}

type Booking struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	SeatClass      SeatClass       `json:"seat_class"`
	Passengers     int             `json:"passengers"`
	Legs           []Leg           `json:"legs"`
	TotalCents     int64           `json:"total_cents"`
	Status         BookingStatus   `json:"status"`
	PaymentMethod  PaymentMethod   `json:"payment_method,omitempty"`
	PaymentDetails json.RawMessage `json:"payment_details,omitempty"`
	RefundHint     RefundHint      `json:"refund_hint,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ConfirmedAt    *time.Time      `json:"confirmed_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
}

func (b *Booking) Leg(d LegDirection) (Leg, bool) {
	for _, l := range b.Legs {
		if l.Direction == d {
			return l, true
		}
	}
	return Leg{}, false
}

func (b *Booking) IsRoundTrip() bool {
	_, ok := b.Leg(LegReturn)
	return ok
}

func (b *Booking) TicketNumbers() []string {
	out := make([]string, 0, len(b.Legs))
	for _, l := range b.Legs {
		out = append(out, l.TicketNumber)
	}
	return out
}

// EarliestDeparture returns the departure of the first leg to fly.
func (b *Booking) EarliestDeparture() time.Time {
	var earliest time.Time
	for i, l := range b.Legs {
		if i == 0 || l.DepartureAt.Before(earliest) {
			earliest = l.DepartureAt
		}
	}
	return earliest
}

// StatusChange is a compare-and-swap request on a booking's status.
// The change applies only if the stored status still equals From.
type StatusChange struct {
	From           BookingStatus
	To             BookingStatus
	At             time.Time
	PaymentMethod  PaymentMethod
	PaymentDetails json.RawMessage
	RefundHint     RefundHint
}

// Apply mutates b as a successful change would be persisted.
func (c StatusChange) Apply(b *Booking) {
	b.Status = c.To
	b.UpdatedAt = c.At
	at := c.At
	switch c.To {
	case BookingConfirmed:
		b.PaymentMethod = c.PaymentMethod
		b.PaymentDetails = c.PaymentDetails
		b.ConfirmedAt = &at
	case BookingCancelled:
		b.RefundHint = c.RefundHint
		b.CancelledAt = &at
	}
}
