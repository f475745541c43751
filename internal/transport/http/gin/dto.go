package httpgin

import (
	"encoding/json"

	"github.com/kirinyoku/flightbook/internal/domain"
)

type CreateBookingRequest struct {
	OutboundFlightID int64  `json:"outbound_flight_id" binding:"required,gt=0"`
	ReturnFlightID   *int64 `json:"return_flight_id" binding:"omitempty,gt=0"`
	SeatClass        string `json:"seat_class" binding:"required,oneof=economy firstClass"`
	Passengers       int    `json:"passengers" binding:"required,min=1"`
}

type ConfirmPaymentRequest struct {
	PaymentMethod  string          `json:"payment_method" binding:"required"`
	PaymentDetails json.RawMessage `json:"payment_details"`
}

type UpdateFlightStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type InsufficientSeatsResponse struct {
	Error     string           `json:"error"`
	Code      string           `json:"code"`
	FlightID  int64            `json:"flight_id"`
	SeatClass domain.SeatClass `json:"seat_class"`
	Requested int              `json:"requested"`
}

type BookingListResponse struct {
	Items  []domain.Booking `json:"items"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type FlightListResponse struct {
	Items  []domain.Flight `json:"items"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type ExpireResponse struct {
	Expired int `json:"expired"`
}
