package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hall-reservation/internal/store"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the MySQL implementation of store.Store.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the given database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func reposFor(q dbtx) store.Repos {
	return store.Repos{
		Halls:    &HallRepo{db: q},
		Calendar: &AvailabilityRepo{db: q},
		Pricing:  &PricingRepo{db: q},
		Bookings: &BookingRepo{db: q},
	}
}

// Repos returns repositories that run directly on the connection pool.
func (s *Store) Repos() store.Repos { return reposFor(s.db) }

// InTx begins a transaction, locks the hall row with SELECT ... FOR
// UPDATE and runs fn.  Concurrent callers for the same hall queue on the
// row lock until the transaction commits or rolls back; callers for
// other halls are not affected.
func (s *Store) InTx(ctx context.Context, lockHallID uint64, fn func(store.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if lockHallID != 0 {
		var id uint64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM halls WHERE id = ? FOR UPDATE`, lockHallID).Scan(&id); err != nil {
			return notFound(err)
		}
	}
	if err := fn(reposFor(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
