package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/storage"
)

const accountColumns = `id, username, email, password, name, avatar, bio, dept, currency, role, created_at`

func (s *Store) CreateAccount(ctx context.Context, acct models.Account) (models.Account, error) {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO users (username, email, password, name, avatar, bio, dept, currency, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		acct.Username, acct.Email, acct.PasswordHash, acct.Name, acct.Avatar, acct.Bio,
		acct.Dept, acct.Currency, acct.Role,
	).Scan(&acct.ID, &acct.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Account{}, fmt.Errorf("username %q: %w", acct.Username, storage.ErrDuplicate)
		}
		return models.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return acct, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id int64) (models.Account, error) {
	var acct models.Account
	err := s.db.GetContext(ctx, &acct, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("account %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return acct, nil
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (models.Account, error) {
	var acct models.Account
	err := s.db.GetContext(ctx, &acct, `SELECT `+accountColumns+` FROM users WHERE username = $1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("account %q: %w", username, storage.ErrNotFound)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("get account %q: %w", username, err)
	}
	return acct, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	accounts := []models.Account{}
	if err := s.db.SelectContext(ctx, &accounts, `SELECT `+accountColumns+` FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *Store) ListAccountIDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list account ids: %w", err)
	}
	return ids, nil
}
