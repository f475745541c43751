package httpgin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/kirinyoku/flightbook/docs"
	"github.com/kirinyoku/flightbook/internal/domain"
	redisx "github.com/kirinyoku/flightbook/internal/redis"
	redisrepo "github.com/kirinyoku/flightbook/internal/repository/redis"
	"github.com/kirinyoku/flightbook/internal/service"
	"github.com/kirinyoku/flightbook/internal/service/booking"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const idemLockTTL = 60 * time.Second

// NewRouter builds the HTTP API. idem may be nil, in which case the
// Idempotency-Key header is ignored.
func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	tokens TokenVerifier,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public flight reads
	r.GET("/flights/:id", handleGetFlight(svcs))
	r.GET("/flights/:id/availability", handleGetAvailability(svcs))

	authed := r.Group("/", Authenticate(tokens))
	{
		authed.POST("/bookings", handleCreateBooking(svcs, idem, logger))
		authed.GET("/bookings/:id", handleGetBooking(svcs))
		authed.POST("/bookings/:id/confirm-payment", handleConfirmPayment(svcs))
		authed.POST("/bookings/:id/cancel", handleCancelBooking(svcs))
		authed.GET("/me/bookings", handleListMyBookings(svcs))
	}

	admin := r.Group("/admin", Authenticate(tokens), RequireAdmin())
	{
		admin.GET("/flights", handleListFlights(svcs))
		admin.PATCH("/flights/:id/status", handleUpdateFlightStatus(svcs))
		admin.GET("/users/:id/bookings", handleListUserBookings(svcs))
		admin.POST("/bookings/expire", handleExpireBookings(svcs))
		admin.GET("/reports/monthly-revenue", handleMonthlyRevenue(svcs))
	}

	return r
}

// @Summary  Get flight
// @Param    id  path  int  true  "Flight ID"
// @Success  200  {object}  domain.Flight
// @Failure  404  {object}  ErrorResponse
// @Router   /flights/{id} [get]
func handleGetFlight(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		f, err := svcs.Flights.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, f, "public, max-age=60")
	}
}

// @Summary  Get seat availability per class
// @Param    id  path  int  true  "Flight ID"
// @Success  200  {object}  domain.FlightAvailability
// @Failure  404  {object}  ErrorResponse
// @Router   /flights/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		a, err := svcs.Flights.Availability(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, a, "public, max-age=5")
	}
}

// @Summary   Create booking (idempotent)
// @Security  BearerAuth
// @Param     req body  CreateBookingRequest true "payload"
// @Header    201 {string} Idempotency-Key "echo"
// @Success   201 {object} domain.Booking
// @Failure   400 {object} ErrorResponse
// @Failure   404 {object} ErrorResponse "flight not found"
// @Failure   409 {object} InsufficientSeatsResponse "insufficient seats / idem in progress"
// @Failure   429 {object} ErrorResponse "rate limited"
// @Failure   503 {object} ErrorResponse
// @Router    /bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principal(c)

		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			var proceed bool
			idemStorageKey, proceed = claimIdempotencyKey(c, idem, idemKey,
				redisx.KeyIdemBooking(p.UserID.String(), idemKey))
			if !proceed {
				return
			}
		}

		b, err := svcs.Booking.Book(c.Request.Context(), p, booking.BookRequest{
			OutboundFlightID: req.OutboundFlightID,
			ReturnFlightID:   req.ReturnFlightID,
			Class:            domain.SeatClass(req.SeatClass),
			Passengers:       req.Passengers,
		})

		// The booking outlives the request, so does its idempotency record.
		ctx := context.WithoutCancel(c.Request.Context())

		if err != nil {
			if idemStorageKey != "" {
				if relErr := idem.Release(ctx, idemStorageKey); relErr != nil {
					logger.WarnContext(ctx, "idempotency key release failed",
						slog.String("key", idemKey),
						slog.Any("error", relErr),
					)
				}
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" {
			payload, _ := json.Marshal(b)
			if err := idem.SaveResult(ctx, idemStorageKey, string(payload)); err != nil {
				logger.ErrorContext(ctx, "idempotency result not saved, a retry may book again",
					slog.String("key", idemKey),
					slog.String("booking_id", b.ID.String()),
					slog.Any("error", err),
				)
			}
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, b)
	}
}

// claimIdempotencyKey either takes the key for this request or answers the
// request itself: a replay of the stored result, or 409 while another
// request holds the key. It returns the storage key the request now holds.
// Redis trouble must not block bookings, so on error the request proceeds
// with no key held and no replay protection.
func claimIdempotencyKey(
	c *gin.Context,
	idem *redisrepo.IdempotencyStore,
	idemKey, storageKey string,
) (held string, proceed bool) {
	ctx := c.Request.Context()

	if payload, ok, _ := idem.GetResult(ctx, storageKey); ok {
		replay(c, idemKey, payload)
		return "", false
	}

	locked, err := idem.AcquireLock(ctx, storageKey, idemLockTTL)
	if err != nil {
		_ = c.Error(err)
		return "", true
	}
	if locked {
		return storageKey, true
	}

	if payload, ok, _ := idem.GetResult(ctx, storageKey); ok {
		replay(c, idemKey, payload)
		return "", false
	}

	// The holder may have released the key after a failed booking.
	if busy, err := idem.IsLocked(ctx, storageKey); err == nil && !busy {
		if locked, err := idem.AcquireLock(ctx, storageKey, idemLockTTL); err == nil && locked {
			return storageKey, true
		}
	}

	c.Header("Retry-After", "1")
	c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress", Code: "idempotency_in_progress"})
	return "", false
}

// @Summary   Get booking
// @Security  BearerAuth
// @Param     id  path  string  true  "Booking ID (uuid)"
// @Success   200 {object} domain.Booking
// @Failure   403 {object} ErrorResponse
// @Failure   404 {object} ErrorResponse
// @Router    /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		p, _ := principal(c)
		b, err := svcs.Booking.Get(c.Request.Context(), p, id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary   Confirm payment
// @Security  BearerAuth
// @Param     id  path  string  true  "Booking ID (uuid)"
// @Param     req body  ConfirmPaymentRequest true "payload"
// @Success   200 {object} domain.Booking
// @Failure   409 {object} ErrorResponse "booking not pending"
// @Router    /bookings/{id}/confirm-payment [post]
func handleConfirmPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req ConfirmPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, _ := principal(c)
		b, err := svcs.Booking.ConfirmPayment(
			c.Request.Context(),
			p,
			id,
			req.PaymentMethod,
			req.PaymentDetails,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary   Cancel booking
// @Security  BearerAuth
// @Param     id  path  string  true  "Booking ID (uuid)"
// @Success   200 {object} domain.Booking
// @Failure   409 {object} ErrorResponse "already cancelled"
// @Failure   422 {object} ErrorResponse "cancellation window closed"
// @Router    /bookings/{id}/cancel [post]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		p, _ := principal(c)
		b, err := svcs.Booking.Cancel(c.Request.Context(), p, id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary   List my bookings
// @Security  BearerAuth
// @Param     limit  query  int  false "page size"
// @Param     offset query  int  false "offset"
// @Success   200 {object} BookingListResponse
// @Router    /me/bookings [get]
func handleListMyBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principal(c)
		listBookings(c, svcs, p, p.UserID)
	}
}

// @Summary   List a user's bookings
// @Security  BearerAuth
// @Param     id     path   string  true  "User ID (uuid)"
// @Param     limit  query  int     false "page size"
// @Param     offset query  int     false "offset"
// @Success   200 {object} BookingListResponse
// @Router    /admin/users/{id}/bookings [get]
func handleListUserBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		p, _ := principal(c)
		listBookings(c, svcs, p, userID)
	}
}

// @Summary   List flights
// @Security  BearerAuth
// @Param     status query  string  false "scheduled, cancelled or completed"
// @Param     limit  query  int     false "page size"
// @Param     offset query  int     false "offset"
// @Success   200 {object} FlightListResponse
// @Router    /admin/flights [get]
func handleListFlights(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principal(c)
		filter := domain.FlightFilter{
			Status: domain.FlightStatus(c.Query("status")),
			Limit:  parseIntDefault(c.Query("limit"), 0),
			Offset: parseIntDefault(c.Query("offset"), 0),
		}
		flights, err := svcs.Flights.List(c.Request.Context(), p, filter)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, FlightListResponse{
			Items:  flights,
			Limit:  filter.Limit,
			Offset: filter.Offset,
		})
	}
}

// @Summary   Update flight status
// @Security  BearerAuth
// @Param     id  path  int  true  "Flight ID"
// @Param     req body  UpdateFlightStatusRequest true "payload"
// @Success   204
// @Failure   400 {object} ErrorResponse
// @Failure   404 {object} ErrorResponse
// @Router    /admin/flights/{id}/status [patch]
func handleUpdateFlightStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateFlightStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, _ := principal(c)
		if err := svcs.Flights.UpdateStatus(c.Request.Context(), p, id, req.Status); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary   Expire stale pending bookings now
// @Security  BearerAuth
// @Success   200 {object} ExpireResponse
// @Router    /admin/bookings/expire [post]
func handleExpireBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svcs.Booking.ExpireStale(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ExpireResponse{Expired: n})
	}
}

// @Summary   Monthly revenue report
// @Security  BearerAuth
// @Param     year   query  int  true  "year"
// @Param     month  query  int  true  "month 1-12"
// @Success   200 {object} domain.RevenueReport
// @Failure   400 {object} ErrorResponse
// @Router    /admin/reports/monthly-revenue [get]
func handleMonthlyRevenue(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, ok := parseIntQuery(c, "year")
		if !ok {
			return
		}
		month, ok := parseIntQuery(c, "month")
		if !ok {
			return
		}
		p, _ := principal(c)
		rep, err := svcs.Reports.MonthlyRevenue(c.Request.Context(), p, year, month)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, rep)
	}
}
