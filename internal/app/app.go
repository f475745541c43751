package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/flightbook/internal/auth"
	"github.com/kirinyoku/flightbook/internal/config"
	"github.com/kirinyoku/flightbook/internal/kafka"
	"github.com/kirinyoku/flightbook/internal/notify"
	"github.com/kirinyoku/flightbook/internal/postgres"
	redisx "github.com/kirinyoku/flightbook/internal/redis"
	"github.com/kirinyoku/flightbook/internal/repository"
	"github.com/kirinyoku/flightbook/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/flightbook/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/flightbook/internal/repository/redis"
	"github.com/kirinyoku/flightbook/internal/service"
	"github.com/kirinyoku/flightbook/internal/service/booking"
	httpgin "github.com/kirinyoku/flightbook/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	pubsub     *redisx.FlightsPubSub
	closers    []io.Closer
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	var (
		deps service.Deps
		idem *redisrepo.IdempotencyStore
	)

	if cfg.Redis.Addr != "" {
		rdb, err := redisx.New(ctx, redisx.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, rdb)

		a.pubsub = redisx.NewFlightsPubSub(rdb)
		deps.Cache = redisrepo.New(rdb)
		deps.Events = a.pubsub
		idem = redisrepo.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)
		if cfg.Booking.RateLimit > 0 {
			deps.Limiter = redisrepo.NewBookingLimiter(rdb, redisrepo.LimiterConfig{
				Scope:  "bookings",
				Limit:  cfg.Booking.RateLimit,
				Window: cfg.Booking.RateWindow,
			})
		}
	} else {
		logger.Warn("redis disabled: no cache, idempotency or rate limiting")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.closers = append(a.closers, producer)
		deps.Notifier = notify.NewKafkaNotifier(producer)
	} else {
		deps.Notifier = notify.NewLogNotifier(logger)
	}

	a.services = service.NewServices(store, deps, logger, service.Config{
		Booking: booking.Config{
			CancellationCutoff: cfg.Booking.CancellationCutoff,
			PendingTTL:         cfg.Booking.PendingTTL,
			ReturnWindow:       cfg.Booking.ReturnWindow,
		},
	})

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	router := httpgin.NewRouter(a.services, idem, tokens, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		if a.cfg.Storage.SeedPath != "" {
			n, err := store.LoadSeed(a.cfg.Storage.SeedPath)
			if err != nil {
				return nil, fmt.Errorf("failed to seed memory store: %w", err)
			}
			a.logger.Info("memory store seeded", slog.Int("flights", n))
		}
		return store, nil
	default:
		pgCfg := postgres.Config{
			Host:     a.cfg.Postgres.Host,
			Port:     a.cfg.Postgres.Port,
			User:     a.cfg.Postgres.User,
			Password: a.cfg.Postgres.Password,
			Name:     a.cfg.Postgres.Name,
			SSLMode:  a.cfg.Postgres.SSLMode,
			MaxConns: a.cfg.Postgres.MaxConns,
		}

		if a.cfg.Postgres.Migrate {
			if err := postgres.Migrate(pgCfg.DSN()); err != nil {
				return nil, fmt.Errorf("failed to migrate postgres: %w", err)
			}
		}

		pool, err := postgres.New(ctx, pgCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		a.closers = append(a.closers, poolCloser{pool})

		return postgresrepo.NewStore(pool), nil
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	// Drop cached flight views when another instance changes seats or status.
	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, flightID int64) {
				a.services.Flights.Invalidate(ctx, flightID)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("flight change subscription: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		a.expireLoop(gCtx)
		return nil
	})

	return g.Wait()
}

// expireLoop cancels stale pending bookings on every tick until ctx is done.
func (a *App) expireLoop(ctx context.Context) {
	t := time.NewTicker(a.cfg.Booking.ExpiryInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.services.Booking.ExpireStale(ctx)
			if err != nil {
				a.logger.ErrorContext(ctx, "pending expiry sweep failed", slog.Any("error", err))
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "expired stale bookings", slog.Int("count", n))
			}
		}
	}
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", slog.Any("error", err))
		}
	}
	a.closers = nil
}

type poolCloser struct {
	pool *pgxpool.Pool
}

func (p poolCloser) Close() error {
	p.pool.Close()
	return nil
}
