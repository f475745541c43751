package service

import (
	"log/slog"

	"github.com/kirinyoku/flightbook/internal/notify"
	"github.com/kirinyoku/flightbook/internal/repository"
	redisrepo "github.com/kirinyoku/flightbook/internal/repository/redis"
	"github.com/kirinyoku/flightbook/internal/service/booking"
	"github.com/kirinyoku/flightbook/internal/service/flights"
	"github.com/kirinyoku/flightbook/internal/service/reports"
)

type Services struct {
	Booking *booking.Service
	Flights *flights.Service
	Reports *reports.Service
}

type Config struct {
	Booking booking.Config
	Flights flights.Config
}

// Deps are the optional collaborators. Nil interface fields disable the
// feature they back.
type Deps struct {
	Cache    *redisrepo.Cache
	Events   booking.FlightEvents
	Limiter  booking.Limiter
	Notifier notify.Notifier
}

func NewServices(store repository.Store, deps Deps, logger *slog.Logger, cfg Config) *Services {
	return &Services{
		Booking: booking.New(store, deps.Cache, deps.Events, deps.Limiter, deps.Notifier, logger, cfg.Booking),
		Flights: flights.New(store, deps.Cache, deps.Events, logger, cfg.Flights),
		Reports: reports.New(store),
	}
}
