package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/notify"
	"github.com/kirinyoku/flightbook/internal/policy"
	"github.com/kirinyoku/flightbook/internal/repository"
	redisrepo "github.com/kirinyoku/flightbook/internal/repository/redis"
	"github.com/kirinyoku/flightbook/internal/ticket"
	"github.com/kirinyoku/flightbook/internal/uow"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	notifyTimeout   = 5 * time.Second
	maxCASAttempts  = 3
)

// Config tunes the lifecycle engine. CommitTimeout bounds the
// reserve-and-persist section of Book, which runs detached from the caller's
// cancellation once seats are being claimed.
type Config struct {
	CancellationCutoff time.Duration
	PendingTTL         time.Duration
	ReturnWindow       time.Duration
	ExpiryBatch        int
	CommitTimeout      time.Duration
	Now                func() time.Time
}

type Limiter interface {
	Allow(ctx context.Context, suffix string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

type FlightEvents interface {
	PublishFlightChanged(ctx context.Context, flightID int64) error
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	cache    *redisrepo.Cache
	events   FlightEvents
	limiter  Limiter
	notifier notify.Notifier
	tickets  *ticket.Generator
	policy   policy.Cancellation
	logger   *slog.Logger
	cfg      Config
}

// New wires the booking service. cache, events, limiter and notifier may be nil.
func New(
	store repository.Store,
	cache *redisrepo.Cache,
	events FlightEvents,
	limiter Limiter,
	notifier notify.Notifier,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 30 * time.Minute
	}

	if cfg.ReturnWindow <= 0 {
		cfg.ReturnWindow = 30 * 24 * time.Hour
	}

	if cfg.ExpiryBatch <= 0 {
		cfg.ExpiryBatch = 100
	}

	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = 15 * time.Second
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:    store,
		uow:      uow.NewUoW(store),
		cache:    cache,
		events:   events,
		limiter:  limiter,
		notifier: notifier,
		tickets:  ticket.NewGenerator(ticket.DefaultPrefix),
		policy:   policy.NewCancellation(cfg.CancellationCutoff),
		logger:   logger,
		cfg:      cfg,
	}
}

// flightsChanged drops cached flight views and tells other instances.
func (s *Service) flightsChanged(ctx context.Context, legs []domain.Leg) {
	for _, l := range legs {
		if err := s.cache.InvalidateFlight(ctx, l.FlightID); err != nil {
			s.logger.WarnContext(ctx, "flight cache invalidation failed",
				slog.Int64("flight_id", l.FlightID), slog.Any("error", err))
		}
		if s.events == nil {
			continue
		}
		if err := s.events.PublishFlightChanged(ctx, l.FlightID); err != nil {
			s.logger.WarnContext(ctx, "flight change publish failed",
				slog.Int64("flight_id", l.FlightID), slog.Any("error", err))
		}
	}
}

func (s *Service) notify(ctx context.Context, t domain.BookingEventType, b *domain.Booking) {
	if s.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(ctx, domain.NewBookingEvent(t, b, s.cfg.Now())); err != nil {
		s.logger.WarnContext(ctx, "booking notification failed",
			slog.String("event", string(t)),
			slog.String("booking_id", b.ID.String()),
			slog.Any("error", err),
		)
	}
}
