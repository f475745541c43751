package postgresrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/flightbook/internal/domain"
	"github.com/kirinyoku/flightbook/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	reserveSQL = regexp.QuoteMeta(`UPDATE flight_seats SET available = available - $3`)
	releaseSQL = regexp.QuoteMeta(`UPDATE flight_seats SET available = available + $3`)
	seatsExist = regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM flight_seats`)
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	return mock
}

func TestInventoryReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(reserveSQL).
			WithArgs(int64(7), "economy", 2).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := NewStore(mock).Inventory().Reserve(ctx, 7, domain.SeatClassEconomy, 2)
		require.NoError(t, err)
	})

	t.Run("guard miss is insufficient seats", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(reserveSQL).
			WithArgs(int64(7), "economy", 5).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(seatsExist).
			WithArgs(int64(7), "economy").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		err := NewStore(mock).Inventory().Reserve(ctx, 7, domain.SeatClassEconomy, 5)
		assert.ErrorIs(t, err, repository.ErrInsufficientSeats)
	})

	t.Run("missing class is not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(reserveSQL).
			WithArgs(int64(8), "firstClass", 1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(seatsExist).
			WithArgs(int64(8), "firstClass").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		err := NewStore(mock).Inventory().Reserve(ctx, 8, domain.SeatClassFirst, 1)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("rejects non-positive count", func(t *testing.T) {
		mock := newMock(t)

		err := NewStore(mock).Inventory().Reserve(ctx, 7, domain.SeatClassEconomy, 0)
		assert.Error(t, err)
	})

	t.Run("connection failure is unavailable", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(reserveSQL).
			WithArgs(int64(7), "economy", 1).
			WillReturnError(&pgconn.PgError{Code: "57P01"})

		err := NewStore(mock).Inventory().Reserve(ctx, 7, domain.SeatClassEconomy, 1)
		assert.ErrorIs(t, err, repository.ErrUnavailable)
	})
}

func TestInventoryRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("increments", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(releaseSQL).
			WithArgs(int64(7), "economy", 2).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewStore(mock).Inventory().Release(ctx, 7, domain.SeatClassEconomy, 2))
	})

	t.Run("overflow is capacity exceeded", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(releaseSQL).
			WithArgs(int64(7), "economy", 2).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(seatsExist).
			WithArgs(int64(7), "economy").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		err := NewStore(mock).Inventory().Release(ctx, 7, domain.SeatClassEconomy, 2)
		assert.ErrorIs(t, err, repository.ErrCapacityExceeded)
	})
}

func TestInventorySnapshot(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`SELECT seat_class, price_cents, capacity, available`)

	t.Run("rows", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(query).
			WithArgs(int64(7)).
			WillReturnRows(pgxmock.NewRows([]string{"seat_class", "price_cents", "capacity", "available"}).
				AddRow("economy", int64(12000), 100, 40).
				AddRow("firstClass", int64(50000), 10, 10))

		got, err := NewStore(mock).Inventory().Snapshot(ctx, 7)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, domain.SeatClassEconomy, got[0].Class)
		assert.Equal(t, 40, got[0].Available)
		assert.Equal(t, int64(50000), got[1].PriceCents)
	})

	t.Run("no rows is not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(query).
			WithArgs(int64(9)).
			WillReturnRows(pgxmock.NewRows([]string{"seat_class", "price_cents", "capacity", "available"}))

		_, err := NewStore(mock).Inventory().Snapshot(ctx, 9)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestRunTx(t *testing.T) {
	ctx := context.Background()
	opts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}

	t.Run("commits", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBeginTx(opts)
		mock.ExpectExec(reserveSQL).
			WithArgs(int64(7), "economy", 1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		err := NewStore(mock).RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			return tx.Inventory().Reserve(ctx, 7, domain.SeatClassEconomy, 1)
		})
		require.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBeginTx(opts)
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := NewStore(mock).RunTx(ctx, func(context.Context, repository.Repos) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})
}
