package httpgin

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/flightbook/internal/auth"
	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/service"
	"github.com/kirinyoku/flightbook/internal/service/booking"
	"github.com/kirinyoku/flightbook/internal/service/flights"
	"github.com/kirinyoku/flightbook/internal/service/reports"
)

func listBookings(c *gin.Context, svcs *service.Services, p domain.Principal, userID uuid.UUID) {
	limit := parseIntDefault(c.Query("limit"), 0)
	offset := parseIntDefault(c.Query("offset"), 0)

	bookings, err := svcs.Booking.ListForUser(c.Request.Context(), p, userID, limit, offset)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, BookingListResponse{
		Items:  bookings,
		Limit:  limit,
		Offset: offset,
	})
}

func replay(c *gin.Context, idemKey, payload string) {
	c.Header("Idempotency-Key", idemKey)
	c.Header("Idempotent-Replayed", "true")
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func parseIntQuery(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "invalid_request"})
}

func retryAfter(c *gin.Context, seconds float64) {
	c.Header("Retry-After", strconv.Itoa(int(math.Max(1, math.Ceil(seconds)))))
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var seats booking.InsufficientSeatsError
	var limited booking.RateLimitedError

	switch {
	case errors.As(err, &seats):
		c.JSON(http.StatusConflict, InsufficientSeatsResponse{
			Error:     "insufficient seats",
			Code:      "insufficient_seats",
			FlightID:  seats.FlightID,
			SeatClass: seats.Class,
			Requested: seats.Requested,
		})
	case errors.Is(err, booking.ErrInsufficientSeats):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "insufficient seats", Code: "insufficient_seats"})
	case errors.As(err, &limited):
		retryAfter(c, limited.RetryAfter.Seconds())
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited", Code: "rate_limited"})
	case errors.Is(err, booking.ErrRateLimited):
		retryAfter(c, 1)
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited", Code: "rate_limited"})
	case errors.Is(err, booking.ErrStoreUnavailable):
		_ = c.Error(err)
		retryAfter(c, 1)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "store unavailable", Code: "store_unavailable"})
	case errors.Is(err, booking.ErrFlightNotFound),
		errors.Is(err, flights.ErrFlightNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "flight not found", Code: "not_found"})
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found", Code: "not_found"})
	case errors.Is(err, booking.ErrForbidden),
		errors.Is(err, flights.ErrForbidden),
		errors.Is(err, reports.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Code: "forbidden"})
	case errors.Is(err, booking.ErrInvalidState):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "invalid booking state", Code: "invalid_state"})
	case errors.Is(err, booking.ErrCancellationWindowClosed):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "cancellation window closed",
			Code:  "cancellation_window_closed",
		})
	case errors.Is(err, booking.ErrInvalidRequest),
		errors.Is(err, flights.ErrInvalidRequest),
		errors.Is(err, reports.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: cause(err), Code: "invalid_request"})
	case errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token", Code: "unauthorized"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "internal"})
	}
}

// cause strips the "pkg.Type.Method:" prefixes that wrapping adds so the
// client sees only the validation message.
func cause(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{booking.ErrInvalidRequest, flights.ErrInvalidRequest, reports.ErrInvalidRequest} {
		if i := strings.Index(msg, sentinel.Error()); i >= 0 {
			return msg[i:]
		}
	}
	return msg
}
