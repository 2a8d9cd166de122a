package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/storage"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// TransactionFilter narrows a listing by participant usernames. Empty fields
// do not filter; set fields are combined with AND.
type TransactionFilter struct {
	Recipient string
	Sender    string
}

type PageRequest struct {
	Page int
	Size int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

var orderFields = map[string]storage.OrderColumn{
	"id":         storage.OrderByID,
	"date":       storage.OrderByCreatedAt,
	"created_at": storage.OrderByCreatedAt,
	"value":      storage.OrderByValue,
}

// ParseOrdering turns an order_by parameter such as "-date" into a column and
// direction. An empty value orders by id ascending.
func ParseOrdering(orderBy string) (storage.OrderColumn, bool, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return storage.OrderByID, false, nil
	}
	descending := strings.HasPrefix(orderBy, "-")
	column, ok := orderFields[strings.TrimPrefix(orderBy, "-")]
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidOrdering, orderBy)
	}
	return column, descending, nil
}

// QueryService is the read side of the ledger.
type QueryService struct {
	store  storage.QueryStore
	logger *zap.Logger
}

func NewQueryService(store storage.QueryStore, logger *zap.Logger) *QueryService {
	return &QueryService{store: store, logger: logger.Named("query")}
}

// ListTransactions returns one page of transactions visible to caller.
// Members only ever see transactions they took part in, whatever the filter.
func (s *QueryService) ListTransactions(ctx context.Context, caller models.Account, filter TransactionFilter, orderBy string, page PageRequest) (*models.Page[models.TransactionView], error) {
	column, descending, err := ParseOrdering(orderBy)
	if err != nil {
		return nil, err
	}
	page = page.normalize()

	q := storage.TransactionQuery{
		Recipient:  strings.TrimSpace(filter.Recipient),
		Sender:     strings.TrimSpace(filter.Sender),
		OrderBy:    column,
		Descending: descending,
		Limit:      page.Size,
		Offset:     (page.Page - 1) * page.Size,
	}
	if !caller.IsPrivileged() {
		id := caller.ID
		q.ParticipantID = &id
	}

	items, total, err := s.store.ListTransactions(ctx, q)
	if err != nil {
		s.logger.Error("list transactions failed", zap.Int64("caller_id", caller.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return models.NewPage(items, total, page.Page, page.Size), nil
}

// GetBalance returns the cached balance of an account, zero when it has
// never taken part in a transaction.
func (s *QueryService) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	balance, err := s.store.GetBalance(ctx, accountID)
	if err != nil {
		s.logger.Error("get balance failed", zap.Int64("account_id", accountID), zap.Error(err))
		return 0, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return balance, nil
}
