package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/dundie/backend/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	pqSerializationFailure pq.ErrorCode = "40001"
	pqDeadlockDetected     pq.ErrorCode = "40P01"
	pqUniqueViolation      pq.ErrorCode = "23505"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.QueryStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// RunInTx begins a transaction, hands it to fn and commits when fn succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.LedgerTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classifyCommit(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// classify tags retryable driver errors with storage.ErrConflict and leaves
// everything else untouched.
func classify(err error) error {
	if err == nil || errors.Is(err, storage.ErrConflict) {
		return err
	}
	if isRolledBack(err) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	}
	return err
}

// classifyCommit only retries commits the server reported as rolled back.
// A connection lost during COMMIT leaves the outcome unknown, so it is
// returned as a plain failure.
func classifyCommit(err error) error {
	if isRolledBack(err) {
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	}
	return err
}

func isRolledBack(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqSerializationFailure || pqErr.Code == pqDeadlockDetected
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
