package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/storage"
)

// memStore is an in-memory AccountStore and LedgerStore. Per-account mutexes
// stand in for row locks; writes are buffered and applied on commit.
type memStore struct {
	mu       sync.Mutex
	accounts map[int64]models.Account
	txns     []models.Transaction
	balances map[int64]int64
	locks    map[int64]*sync.Mutex
	nextTxID int64

	conflicts int   // RunInTx calls that fail with storage.ErrConflict before running fn
	failWith  error // returned by every RunInTx call when set
	calls     int
}

func newMemStore(accts ...models.Account) *memStore {
	s := &memStore{
		accounts: map[int64]models.Account{},
		balances: map[int64]int64{},
		locks:    map[int64]*sync.Mutex{},
	}
	for _, a := range accts {
		s.accounts[a.ID] = a
		s.locks[a.ID] = &sync.Mutex{}
	}
	return s
}

func (s *memStore) CreateAccount(ctx context.Context, acct models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == acct.Username {
			return models.Account{}, fmt.Errorf("username %q: %w", acct.Username, storage.ErrDuplicate)
		}
	}
	acct.ID = int64(len(s.accounts) + 1)
	acct.CreatedAt = time.Now().UTC()
	s.accounts[acct.ID] = acct
	s.locks[acct.ID] = &sync.Mutex{}
	return acct, nil
}

func (s *memStore) GetAccountByID(ctx context.Context, id int64) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *memStore) GetAccountByUsername(ctx context.Context, username string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return models.Account{}, storage.ErrNotFound
}

func (s *memStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b models.Account) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *memStore) ListAccountIDs(ctx context.Context) ([]int64, error) {
	accts, _ := s.ListAccounts(ctx)
	ids := make([]int64, len(accts))
	for i, a := range accts {
		ids[i] = a.ID
	}
	return ids, nil
}

func (s *memStore) RunInTx(ctx context.Context, fn func(tx storage.LedgerTx) error) error {
	s.mu.Lock()
	s.calls++
	if s.failWith != nil {
		s.mu.Unlock()
		return s.failWith
	}
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return fmt.Errorf("could not serialize access: %w", storage.ErrConflict)
	}
	s.mu.Unlock()

	tx := &memTx{store: s, held: map[int64]bool{}, balances: map[int64]int64{}}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = append(s.txns, tx.pending...)
	for id, v := range tx.balances {
		s.balances[id] = v
	}
	return nil
}

// ledgerSum must be called with s.mu held.
func (s *memStore) ledgerSum(id int64, extra []models.Transaction) int64 {
	var sum int64
	for _, list := range [][]models.Transaction{s.txns, extra} {
		for _, t := range list {
			if t.RecipientID == id {
				sum += t.Value
			}
			if t.SenderID == id {
				sum -= t.Value
			}
		}
	}
	return sum
}

func (s *memStore) balance(id int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.balances[id]
	return v, ok
}

func (s *memStore) ledger(id int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledgerSum(id, nil)
}

func (s *memStore) transactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}

type memTx struct {
	store    *memStore
	held     map[int64]bool
	order    []int64
	pending  []models.Transaction
	balances map[int64]int64
}

func (t *memTx) LockAccounts(ctx context.Context, ids ...int64) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	for _, id := range sorted {
		if t.held[id] {
			continue
		}
		t.store.mu.Lock()
		lock, ok := t.store.locks[id]
		t.store.mu.Unlock()
		if !ok {
			return fmt.Errorf("account %d: %w", id, storage.ErrNotFound)
		}
		lock.Lock()
		t.held[id] = true
		t.order = append(t.order, id)
	}
	return nil
}

func (t *memTx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.store.mu.Lock()
		lock := t.store.locks[t.order[i]]
		t.store.mu.Unlock()
		lock.Unlock()
	}
}

func (t *memTx) LedgerBalance(ctx context.Context, accountID int64) (int64, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.ledgerSum(accountID, t.pending), nil
}

func (t *memTx) CachedBalance(ctx context.Context, accountID int64) (int64, bool, error) {
	if v, ok := t.balances[accountID]; ok {
		return v, true, nil
	}
	v, ok := t.store.balance(accountID)
	return v, ok, nil
}

func (t *memTx) InsertTransaction(ctx context.Context, recipientID, senderID, value int64) (models.Transaction, error) {
	t.store.mu.Lock()
	t.store.nextTxID++
	id := t.store.nextTxID
	t.store.mu.Unlock()

	txn := models.Transaction{
		ID:          id,
		RecipientID: recipientID,
		SenderID:    senderID,
		Value:       value,
		CreatedAt:   time.Now().UTC(),
	}
	t.pending = append(t.pending, txn)
	return txn, nil
}

func (t *memTx) SetBalance(ctx context.Context, accountID, value int64) error {
	t.balances[accountID] = value
	return nil
}
