package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dundie/backend/internal/config"
	"github.com/dundie/backend/internal/events"
	"github.com/dundie/backend/internal/metrics"
	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Auditor records ledger activity for later review.
type Auditor interface {
	LogTransfer(txn models.Transaction, sender, recipient string)
	LogRejected(senderID int64, recipient string, amount int64, err error)
	LogBalanceDrift(drift models.BalanceDrift)
}

// ReconcileReport summarizes one reconciliation run.
type ReconcileReport struct {
	Checked   int                   `json:"checked"`
	Corrected []models.BalanceDrift `json:"corrected"`
}

// LedgerService appends transactions and keeps the cached balances in step
// with the ledger.
type LedgerService struct {
	accounts    storage.AccountStore
	store       storage.LedgerStore
	auditor     Auditor
	publisher   events.Publisher
	logger      *zap.Logger
	maxAttempts int
	baseDelay   time.Duration

	// in-flight event publishes
	pending sync.WaitGroup
}

func NewLedgerService(
	accounts storage.AccountStore,
	store storage.LedgerStore,
	auditor Auditor,
	publisher events.Publisher,
	logger *zap.Logger,
	cfg config.LedgerConfig,
) *LedgerService {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &LedgerService{
		accounts:    accounts,
		store:       store,
		auditor:     auditor,
		publisher:   publisher,
		logger:      logger.Named("ledger"),
		maxAttempts: maxAttempts,
		baseDelay:   cfg.RetryBaseDelay,
	}
}

// PostTransaction moves value dundies from sender to the account named by
// recipientUsername. Members may only spend what the ledger says they own;
// managers are not balance checked.
func (s *LedgerService) PostTransaction(ctx context.Context, recipientUsername string, sender models.Account, value int64) (*models.Transaction, error) {
	start := time.Now()
	txn, err := s.postTransaction(ctx, recipientUsername, sender, value)
	metrics.ObservePost(postOutcome(err), time.Since(start))
	if err != nil {
		s.auditor.LogRejected(sender.ID, recipientUsername, value, err)
		return nil, err
	}
	return txn, nil
}

func (s *LedgerService) postTransaction(ctx context.Context, recipientUsername string, sender models.Account, value int64) (*models.Transaction, error) {
	if value <= 0 {
		return nil, ErrInvalidValue
	}

	recipient, err := s.accounts.GetAccountByUsername(ctx, recipientUsername)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("recipient %q: %w", recipientUsername, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: resolve recipient: %w", ErrStorageFailure, err)
	}

	if recipient.ID == sender.ID {
		return nil, ErrSelfTransfer
	}

	var (
		txn           models.Transaction
		senderBalance int64
	)
	err = s.runWithRetry(ctx, "post", func(tx storage.LedgerTx) error {
		if err := tx.LockAccounts(ctx, sender.ID, recipient.ID); err != nil {
			return err
		}

		if !sender.IsPrivileged() {
			available, err := tx.LedgerBalance(ctx, sender.ID)
			if err != nil {
				return err
			}
			if available < value {
				return ErrInsufficientBalance
			}
		}

		inserted, err := tx.InsertTransaction(ctx, recipient.ID, sender.ID, value)
		if err != nil {
			return err
		}

		if _, err := recomputeBalance(ctx, tx, recipient.ID); err != nil {
			return err
		}
		balance, err := recomputeBalance(ctx, tx, sender.ID)
		if err != nil {
			return err
		}

		txn = inserted
		senderBalance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction posted",
		zap.Int64("transaction_id", txn.ID),
		zap.String("sender", sender.Username),
		zap.String("recipient", recipient.Username),
		zap.Int64("value", value),
	)
	s.auditor.LogTransfer(txn, sender.Username, recipient.Username)
	s.publish(txn, sender.Username, recipient.Username, senderBalance)

	return &txn, nil
}

// ReconcileBalances resums the ledger of every account and rewrites any
// cached balance that drifted from it.
func (s *LedgerService) ReconcileBalances(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{Corrected: []models.BalanceDrift{}}

	ids, err := s.accounts.ListAccountIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: list accounts: %w", ErrStorageFailure, err)
	}

	for _, id := range ids {
		var drift *models.BalanceDrift
		err := s.runWithRetry(ctx, "reconcile", func(tx storage.LedgerTx) error {
			drift = nil
			if err := tx.LockAccounts(ctx, id); err != nil {
				return err
			}
			ledger, err := tx.LedgerBalance(ctx, id)
			if err != nil {
				return err
			}
			cached, ok, err := tx.CachedBalance(ctx, id)
			if err != nil {
				return err
			}
			// accounts that never took part in a transaction have no row yet
			if (ok && cached == ledger) || (!ok && ledger == 0) {
				return nil
			}
			if err := tx.SetBalance(ctx, id, ledger); err != nil {
				return err
			}
			drift = &models.BalanceDrift{AccountID: id, Cached: cached, Ledger: ledger}
			return nil
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// deleted between listing and locking
				continue
			}
			return report, err
		}

		report.Checked++
		if drift != nil {
			s.logger.Warn("balance drift corrected",
				zap.Int64("account_id", drift.AccountID),
				zap.Int64("cached", drift.Cached),
				zap.Int64("ledger", drift.Ledger),
			)
			s.auditor.LogBalanceDrift(*drift)
			report.Corrected = append(report.Corrected, *drift)
		}
	}

	metrics.AddBalanceDrift(len(report.Corrected))
	return report, nil
}

// runWithRetry runs fn in a ledger transaction, retrying the whole unit of
// work when storage reports a conflict. Service errors returned by fn are
// passed through untouched.
func (s *LedgerService) runWithRetry(ctx context.Context, op string, fn func(tx storage.LedgerTx) error) error {
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			metrics.IncPostRetry()
			delay := fullJitter(exponentialBackoff(s.baseDelay, attempt-1))
			s.logger.Debug("retrying after conflict",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := sleepWithContext(ctx, delay); err != nil {
				return fmt.Errorf("%w: %w", ErrStorageFailure, err)
			}
		}

		err := s.store.RunInTx(ctx, fn)
		if err == nil {
			return nil
		}

		var svcErr *Error
		switch {
		case errors.As(err, &svcErr):
			return err
		case errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case errors.Is(err, storage.ErrConflict):
			lastErr = err
			continue
		default:
			s.logger.Error("ledger storage failure", zap.String("op", op), zap.Error(err))
			return fmt.Errorf("%w: %w", ErrStorageFailure, err)
		}
	}

	s.logger.Warn("giving up after repeated conflicts",
		zap.String("op", op),
		zap.Int("attempts", s.maxAttempts),
		zap.Error(lastErr),
	)
	return fmt.Errorf("%w: %w", ErrConflictRetryExhausted, lastErr)
}

func postOutcome(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ToLower(ErrorCode(err))
}

func recomputeBalance(ctx context.Context, tx storage.LedgerTx, accountID int64) (int64, error) {
	balance, err := tx.LedgerBalance(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if err := tx.SetBalance(ctx, accountID, balance); err != nil {
		return 0, err
	}
	return balance, nil
}

const publishTimeout = 5 * time.Second

// publish sends the posted event in the background so a slow broker never
// delays the response. Drain waits for these sends.
func (s *LedgerService) publish(txn models.Transaction, sender, recipient string, senderBalance int64) {
	if s.publisher == nil {
		return
	}
	event := events.TransactionPostedEvent{
		EventID:       uuid.New(),
		TransactionID: txn.ID,
		Sender:        sender,
		Recipient:     recipient,
		Value:         txn.Value,
		SenderBalance: senderBalance,
		CreatedAt:     txn.CreatedAt,
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.publisher.PublishTransactionPosted(ctx, event); err != nil {
			s.logger.Warn("failed to publish transaction event",
				zap.Int64("transaction_id", event.TransactionID),
				zap.Error(err),
			)
		}
	}()
}

// Drain blocks until every queued event publish has finished or ctx is done.
// Call it before closing the publisher.
func (s *LedgerService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
