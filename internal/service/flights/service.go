package flights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
	redisx "github.com/kirinyoku/flightbook/internal/redis"
	redisrepo "github.com/kirinyoku/flightbook/internal/repository/redis"
)

type Config struct {
	FlightTTL       time.Duration
	AvailabilityTTL time.Duration
	DefaultPage     int
	MaxPage         int
}

type Events interface {
	PublishFlightChanged(ctx context.Context, flightID int64) error
}

type Service struct {
	store  repository.Store
	cache  *redisrepo.Cache
	events Events
	logger *slog.Logger
	cfg    Config
}

func New(store repository.Store, cache *redisrepo.Cache, events Events, logger *slog.Logger, cfg Config) *Service {
	if cfg.FlightTTL <= 0 {
		cfg.FlightTTL = 60 * time.Second
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 5 * time.Second
	}

	if cfg.DefaultPage <= 0 {
		cfg.DefaultPage = 50
	}

	if cfg.MaxPage <= 0 {
		cfg.MaxPage = 200
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:  store,
		cache:  cache,
		events: events,
		logger: logger,
		cfg:    cfg,
	}
}

// Get retrieves a flight with its per-class inventory through the cache.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the flight.
//
// Returns:
//   - *domain.Flight: the flight.
//   - error: flights.ErrFlightNotFound if the flight does not exist.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Flight, error) {
	const op = "service.flights.Get"

	f, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyFlight(id),
		s.cfg.FlightTTL,
		func(ctx context.Context) (domain.Flight, error) {
			f, err := s.store.Flights().Get(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Flight{}, ErrFlightNotFound
				}
				return domain.Flight{}, err
			}

			return *f, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &f, nil
}

// Availability returns the seat counters of every class on a flight.
// Its cache entry is short lived and dropped on every seat change.
func (s *Service) Availability(ctx context.Context, id int64) (*domain.FlightAvailability, error) {
	const op = "service.flights.Availability"

	a, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyFlightAvailability(id),
		s.cfg.AvailabilityTTL,
		func(ctx context.Context) (domain.FlightAvailability, error) {
			classes, err := s.store.Inventory().Snapshot(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.FlightAvailability{}, ErrFlightNotFound
				}
				return domain.FlightAvailability{}, err
			}

			return domain.FlightAvailability{FlightID: id, Classes: classes}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &a, nil
}

// List pages through flights for administrators, optionally by status.
func (s *Service) List(ctx context.Context, p domain.Principal, filter domain.FlightFilter) ([]domain.Flight, error) {
	const op = "service.flights.List"

	if !p.IsAdmin() {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if filter.Status != "" {
		if _, ok := domain.ParseFlightStatus(string(filter.Status)); !ok {
			return nil, fmt.Errorf("%s: %w: unknown status %q", op, ErrInvalidRequest, filter.Status)
		}
	}

	if filter.Limit <= 0 {
		filter.Limit = s.cfg.DefaultPage
	}

	if filter.Limit > s.cfg.MaxPage {
		filter.Limit = s.cfg.MaxPage
	}

	if filter.Offset < 0 {
		filter.Offset = 0
	}

	flights, err := s.store.Flights().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if flights == nil {
		flights = []domain.Flight{}
	}

	return flights, nil
}

// UpdateStatus changes a flight's status and tells every instance to drop
// its cached copy.
//
// Returns:
//   - error: flights.ErrForbidden for non-admins.
//   - error: flights.ErrInvalidRequest for an unknown status.
//   - error: flights.ErrFlightNotFound if the flight does not exist.
func (s *Service) UpdateStatus(ctx context.Context, p domain.Principal, id int64, status string) error {
	const op = "service.flights.UpdateStatus"

	if !p.IsAdmin() {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	st, ok := domain.ParseFlightStatus(status)
	if !ok {
		return fmt.Errorf("%s: %w: unknown status %q", op, ErrInvalidRequest, status)
	}

	if err := s.store.Flights().UpdateStatus(ctx, id, st); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrFlightNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.Invalidate(ctx, id)

	if s.events != nil {
		if err := s.events.PublishFlightChanged(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "flight change publish failed",
				slog.Int64("flight_id", id), slog.Any("error", err))
		}
	}

	return nil
}

// Invalidate drops the cached views of a flight. It is also the handler for
// flight-changed messages from other instances.
func (s *Service) Invalidate(ctx context.Context, id int64) {
	if err := s.cache.InvalidateFlight(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "flight cache invalidation failed",
			slog.Int64("flight_id", id), slog.Any("error", err))
	}
}
