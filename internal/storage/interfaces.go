package storage

import (
	"context"
	"errors"

	"github.com/dundie/backend/internal/models"
)

var (
	// ErrNotFound is returned when a looked up row does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("storage: duplicate")
	// ErrConflict marks a transaction that lost a serialization race or a
	// connection that dropped mid-flight. The whole unit of work may be retried.
	ErrConflict = errors.New("storage: conflict")
)

// AccountStore persists user accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct models.Account) (models.Account, error)
	GetAccountByID(ctx context.Context, id int64) (models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ListAccountIDs(ctx context.Context) ([]int64, error)
}

// LedgerStore runs ledger writes inside a single database transaction.
// If fn returns an error nothing it wrote is kept.
type LedgerStore interface {
	RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx is the set of operations available inside a ledger transaction.
type LedgerTx interface {
	// LockAccounts takes row locks on the given accounts, in ascending id
	// order, until the transaction ends.
	LockAccounts(ctx context.Context, ids ...int64) error
	// LedgerBalance sums incoming minus outgoing transactions of an account.
	LedgerBalance(ctx context.Context, accountID int64) (int64, error)
	// CachedBalance reads the materialized balance row.
	CachedBalance(ctx context.Context, accountID int64) (value int64, ok bool, err error)
	InsertTransaction(ctx context.Context, recipientID, senderID, value int64) (models.Transaction, error)
	SetBalance(ctx context.Context, accountID, value int64) error
}

// OrderColumn is a sortable column of the transaction listing.
type OrderColumn string

const (
	OrderByID        OrderColumn = "id"
	OrderByCreatedAt OrderColumn = "created_at"
	OrderByValue     OrderColumn = "value"
)

// TransactionQuery selects a page of transactions. Empty usernames do not filter.
type TransactionQuery struct {
	Recipient     string
	Sender        string
	ParticipantID *int64
	OrderBy       OrderColumn
	Descending    bool
	Limit         int
	Offset        int
}

// QueryStore serves the read side of the ledger.
type QueryStore interface {
	ListTransactions(ctx context.Context, q TransactionQuery) ([]models.TransactionView, int, error)
	GetBalance(ctx context.Context, accountID int64) (int64, error)
}
