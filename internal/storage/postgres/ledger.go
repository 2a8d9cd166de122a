package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type ledgerTx struct {
	tx *sqlx.Tx
}

func (l *ledgerTx) LockAccounts(ctx context.Context, ids ...int64) error {
	unique := make(map[int64]struct{}, len(ids))
	ordered := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, seen := unique[id]; seen {
			continue
		}
		unique[id] = struct{}{}
		ordered = append(ordered, id)
	}
	// Lock accounts in consistent order to prevent deadlocks
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var locked []int64
	err := l.tx.SelectContext(ctx, &locked, `
		SELECT id FROM users
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, pq.Array(ordered))
	if err != nil {
		return fmt.Errorf("lock accounts: %w", err)
	}

	if len(locked) != len(ordered) {
		return fmt.Errorf("lock accounts %v: %w", ordered, storage.ErrNotFound)
	}
	return nil
}

func (l *ledgerTx) LedgerBalance(ctx context.Context, accountID int64) (int64, error) {
	var balance int64
	err := l.tx.GetContext(ctx, &balance, `
		SELECT COALESCE(SUM(CASE WHEN recipient_id = $1 THEN value ELSE 0 END), 0)
		     - COALESCE(SUM(CASE WHEN sender_id = $1 THEN value ELSE 0 END), 0)
		FROM transactions
		WHERE recipient_id = $1 OR sender_id = $1`, accountID)
	if err != nil {
		return 0, fmt.Errorf("sum ledger for account %d: %w", accountID, err)
	}
	return balance, nil
}

func (l *ledgerTx) CachedBalance(ctx context.Context, accountID int64) (int64, bool, error) {
	var value int64
	err := l.tx.GetContext(ctx, &value, `SELECT value FROM balances WHERE account_id = $1`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read balance for account %d: %w", accountID, err)
	}
	return value, true, nil
}

func (l *ledgerTx) InsertTransaction(ctx context.Context, recipientID, senderID, value int64) (models.Transaction, error) {
	txn := models.Transaction{
		RecipientID: recipientID,
		SenderID:    senderID,
		Value:       value,
	}
	err := l.tx.QueryRowxContext(ctx, `
		INSERT INTO transactions (recipient_id, sender_id, value, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		recipientID, senderID, value, time.Now().UTC()).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	txn.CreatedAt = txn.CreatedAt.UTC()
	return txn, nil
}

func (l *ledgerTx) SetBalance(ctx context.Context, accountID, value int64) error {
	_, err := l.tx.ExecContext(ctx, `
		INSERT INTO balances (account_id, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		accountID, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set balance for account %d: %w", accountID, err)
	}
	return nil
}
