package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/flightbook/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	DB
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Store struct {
	pool Pool
	db   DB
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool Pool) *Store {
	return &Store{
		pool: pool,
	}
}

func (s *Store) handle() DB {
	if s.db != nil {
		return s.db
	}
	return s.pool
}

// RunTx runs fn inside a READ COMMITTED transaction. Seat counters and booking
// status are guarded by conditional UPDATEs, which re-check their predicate
// after waiting on a row lock.
func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	const op = "postgresrepo.Store.RunTx"

	if s.db != nil {
		return fn(ctx, s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, &Store{pool: s.pool, db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDBErr(op+".commit", err)
	}

	return nil
}

func (s *Store) Flights() repository.FlightRepository   { return &FlightRepo{db: s.handle()} }
func (s *Store) Inventory() repository.SeatInventory    { return &InventoryRepo{db: s.handle()} }
func (s *Store) Bookings() repository.BookingRepository { return &BookingRepo{db: s.handle()} }
func (s *Store) Tickets() repository.TicketSequence     { return &TicketRepo{db: s.handle()} }
func (s *Store) Reports() repository.ReportRepository   { return &ReportRepo{db: s.handle()} }
