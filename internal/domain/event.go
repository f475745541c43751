package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingEventType string

const (
	EventBookingCreated   BookingEventType = "booking.created"
	EventBookingConfirmed BookingEventType = "booking.confirmed"
	EventBookingCancelled BookingEventType = "booking.cancelled"
	EventBookingExpired   BookingEventType = "booking.expired"
)

// BookingEvent is the payload handed to the notification collaborator.
type BookingEvent struct {
	Type       BookingEventType `json:"type"`
	BookingID  uuid.UUID        `json:"booking_id"`
	UserID     uuid.UUID        `json:"user_id"`
	Status     BookingStatus    `json:"status"`
	SeatClass  SeatClass        `json:"seat_class"`
	Passengers int              `json:"passengers"`
	TotalCents int64            `json:"total_cents"`
	Legs       []Leg            `json:"legs"`
	RefundHint RefundHint       `json:"refund_hint,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

func NewBookingEvent(t BookingEventType, b *Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       t,
		BookingID:  b.ID,
		UserID:     b.UserID,
		Status:     b.Status,
		SeatClass:  b.SeatClass,
		Passengers: b.Passengers,
		TotalCents: b.TotalCents,
		Legs:       b.Legs,
		RefundHint: b.RefundHint,
		OccurredAt: at,
	}
}
