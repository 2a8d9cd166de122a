package audit

import (
	"time"

	"github.com/dundie/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventTransfer     = "TRANSFER"
	EventRejected     = "TRANSFER_REJECTED"
	EventBalanceDrift = "BALANCE_DRIFT"
)

type AuditEvent struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	EventType     string         `json:"event_type"`
	TransactionID int64          `json:"transaction_id,omitempty"`
	AccountID     int64          `json:"account_id,omitempty"`
	Amount        int64          `json:"amount"`
	Status        string         `json:"status"`
	Details       map[string]any `json:"details"`
}

// AuditLogger writes ledger audit events to a dedicated zap logger
type AuditLogger struct {
	logger *zap.Logger
}

func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.Named("audit")}
}

func (a *AuditLogger) LogTransfer(txn models.Transaction, sender, recipient string) {
	a.log(AuditEvent{
		EventType:     EventTransfer,
		TransactionID: txn.ID,
		AccountID:     txn.SenderID,
		Amount:        txn.Value,
		Status:        "SUCCESS",
		Details: map[string]any{
			"from_account": sender,
			"to_account":   recipient,
		},
	})
}

func (a *AuditLogger) LogRejected(senderID int64, recipient string, amount int64, err error) {
	a.log(AuditEvent{
		EventType: EventRejected,
		AccountID: senderID,
		Amount:    amount,
		Status:    "FAILED",
		Details: map[string]any{
			"to_account": recipient,
			"error":      err.Error(),
		},
	})
}

func (a *AuditLogger) LogBalanceDrift(drift models.BalanceDrift) {
	a.log(AuditEvent{
		EventType: EventBalanceDrift,
		AccountID: drift.AccountID,
		Amount:    drift.Ledger - drift.Cached,
		Status:    "CORRECTED",
		Details: map[string]any{
			"cached": drift.Cached,
			"ledger": drift.Ledger,
		},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()

	a.logger.Info("audit",
		zap.String("id", event.ID),
		zap.Time("timestamp", event.Timestamp),
		zap.String("event_type", event.EventType),
		zap.Int64("transaction_id", event.TransactionID),
		zap.Int64("account_id", event.AccountID),
		zap.Int64("amount", event.Amount),
		zap.String("status", event.Status),
		zap.Any("details", event.Details),
	)
}
