//go:build integration

package postgresrepo_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/postgres"
	postgresrepo "github.com/kirinyoku/flightbook/internal/repository/postgres"
	"github.com/kirinyoku/flightbook/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "flightbook",
				"POSTGRES_PASSWORD": "flightbook",
				"POSTGRES_DB":       "flightbook",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	cfg := postgres.Config{
		Host:     host,
		Port:     portNum,
		User:     "flightbook",
		Password: "flightbook",
		Name:     "flightbook",
		SSLMode:  "disable",
		MaxConns: 20,
	}

	require.NoError(t, postgres.Migrate(cfg.DSN()))

	pool, err := postgres.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func insertFlight(t *testing.T, pool *pgxpool.Pool, departure time.Time, economy int) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO flights(flight_number, origin, destination, departure_at, arrival_at)
		 VALUES ('LJ101', 'LOS', 'ABV', $1, $2) RETURNING id`,
		departure, departure.Add(90*time.Minute),
	).Scan(&id))

	_, err := pool.Exec(ctx,
		`INSERT INTO flight_seats(flight_id, seat_class, price_cents, capacity, available)
		 VALUES ($1, 'economy', 15000, $2, $2)`,
		id, economy,
	)
	require.NoError(t, err)

	return id
}

func TestPostgres_BookingFlow(t *testing.T) {
	pool := startPostgres(t)
	store := postgresrepo.NewStore(pool)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := booking.New(store, nil, nil, nil, nil, logger, booking.Config{})
	ctx := context.Background()

	flightID := insertFlight(t, pool, time.Now().Add(72*time.Hour), 5)
	user := domain.Principal{UserID: uuid.New(), Role: domain.RoleUser}

	t.Run("no double allocation under contention", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			booked  atomic.Int32
			refused atomic.Int32
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Book(ctx, user, booking.BookRequest{
					OutboundFlightID: flightID,
					Class:            domain.SeatClassEconomy,
					Passengers:       1,
				})
				switch {
				case err == nil:
					booked.Add(1)
				case errors.Is(err, booking.ErrInsufficientSeats):
					refused.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 5, booked.Load())
		assert.EqualValues(t, 15, refused.Load())

		inv, err := store.Inventory().Snapshot(ctx, flightID)
		require.NoError(t, err)
		assert.Equal(t, 0, inv[0].Available)
	})

	t.Run("cancel returns seats once", func(t *testing.T) {
		list, err := svc.ListForUser(ctx, user, user.UserID, 1, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)

		b, err := svc.Cancel(ctx, user, list[0].ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingCancelled, b.Status)

		_, err = svc.Cancel(ctx, user, list[0].ID)
		assert.ErrorIs(t, err, booking.ErrInvalidState)

		inv, err := store.Inventory().Snapshot(ctx, flightID)
		require.NoError(t, err)
		assert.Equal(t, 1, inv[0].Available)
	})

	t.Run("confirm payment persists details", func(t *testing.T) {
		b, err := svc.Book(ctx, user, booking.BookRequest{
			OutboundFlightID: flightID,
			Class:            domain.SeatClassEconomy,
			Passengers:       1,
		})
		require.NoError(t, err)
		require.Len(t, b.Legs, 1)
		assert.NotEmpty(t, b.Legs[0].TicketNumber)

		_, err = svc.ConfirmPayment(ctx, user, b.ID, "mobile_money", []byte(`{"msisdn":"+2348000000000"}`))
		require.NoError(t, err)

		got, err := svc.Get(ctx, user, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingConfirmed, got.Status)
		assert.Equal(t, domain.PaymentMobileMoney, got.PaymentMethod)
		assert.JSONEq(t, `{"msisdn":"+2348000000000"}`, string(got.PaymentDetails))
	})
}
