package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/storage"
)

// orderColumns maps sortable fields to SQL. Nothing outside this map is ever
// written into an ORDER BY clause.
var orderColumns = map[storage.OrderColumn]string{
	storage.OrderByID:        "t.id",
	storage.OrderByCreatedAt: "t.created_at",
	storage.OrderByValue:     "t.value",
}

const transactionFrom = `
		FROM transactions t
		JOIN users r ON r.id = t.recipient_id
		JOIN users s ON s.id = t.sender_id`

func buildTransactionWhere(q storage.TransactionQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Recipient != "" {
		args = append(args, q.Recipient)
		conds = append(conds, fmt.Sprintf("r.username = $%d", len(args)))
	}
	if q.Sender != "" {
		args = append(args, q.Sender)
		conds = append(conds, fmt.Sprintf("s.username = $%d", len(args)))
	}
	if q.ParticipantID != nil {
		args = append(args, *q.ParticipantID)
		conds = append(conds, fmt.Sprintf("(t.recipient_id = $%d OR t.sender_id = $%d)", len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func buildOrderBy(q storage.TransactionQuery) (string, error) {
	column, ok := orderColumns[q.OrderBy]
	if !ok {
		return "", fmt.Errorf("unsupported order column %q", q.OrderBy)
	}
	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}
	if column == "t.id" {
		return fmt.Sprintf(" ORDER BY t.id %s", direction), nil
	}
	return fmt.Sprintf(" ORDER BY %s %s, t.id %s", column, direction, direction), nil
}

func (s *Store) ListTransactions(ctx context.Context, q storage.TransactionQuery) ([]models.TransactionView, int, error) {
	where, args := buildTransactionWhere(q)
	orderBy, err := buildOrderBy(q)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*)`+transactionFrom+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	pageArgs := append(append([]any{}, args...), q.Limit, q.Offset)
	query := `
		SELECT t.id, t.value, t.created_at, t.recipient_id, t.sender_id,
		       r.username AS recipient, s.username AS sender` +
		transactionFrom + where + orderBy +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	views := []models.TransactionView{}
	if err := s.db.SelectContext(ctx, &views, query, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return views, total, nil
}

func (s *Store) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	var value int64
	err := s.db.GetContext(ctx, &value, `SELECT value FROM balances WHERE account_id = $1`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance for account %d: %w", accountID, err)
	}
	return value, nil
}
