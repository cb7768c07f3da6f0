// Package mysql implements repository.Store on MySQL/InnoDB via sqlx.
//
// The event lock is the row lock taken by SELECT ... FOR UPDATE on the
// events row; it lives as long as the transaction carried in the context.
// Status transitions are single UPDATE statements guarded by the expected
// current status, so the affected row count tells whether they applied.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// MySQL server error numbers.
const (
	errDupEntry         = 1062
	errRowIsReferenced  = 1451
	errRowIsReferenced2 = 1217
	errLockDeadlock     = 1213
	errLockWaitTimeout  = 1205
)

// Store provides data access to the events, seat_holds and bookings tables.
type Store struct {
	db *sqlx.DB
}

var _ repository.Store = (*Store)(nil)

// New returns a Store bound to the provided database.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

type txKey struct{}

// ext is what both *sqlx.DB and *sqlx.Tx offer.
type ext interface {
	sqlx.ExtContext
	sqlx.PreparerContext
}

// WithTx begins a transaction, stores it in the context and commits when fn
// succeeds.  Nested calls reuse the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", classify(err))
	}
	committed = true
	return nil
}

func txFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

// q returns the transaction in ctx or the pool.
func (s *Store) q(ctx context.Context) ext {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

// classify maps driver errors onto repository sentinels, keeping the
// original error in the chain.
func classify(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDupEntry:
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	case errRowIsReferenced, errRowIsReferenced2:
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	case errLockDeadlock, errLockWaitTimeout:
		return fmt.Errorf("%w: %v", repository.ErrConcurrentUpdate, err)
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
