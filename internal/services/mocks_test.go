package services

import (
	"context"

	"github.com/dundie/backend/internal/events"
	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/storage"
	"github.com/stretchr/testify/mock"
)

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) LogTransfer(txn models.Transaction, sender, recipient string) {
	m.Called(txn, sender, recipient)
}

func (m *MockAuditor) LogRejected(senderID int64, recipient string, amount int64, err error) {
	m.Called(senderID, recipient, amount, err)
}

func (m *MockAuditor) LogBalanceDrift(drift models.BalanceDrift) {
	m.Called(drift)
}

// newQuietAuditor accepts every call without expectations.
func newQuietAuditor() *MockAuditor {
	m := &MockAuditor{}
	m.On("LogTransfer", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("LogRejected", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("LogBalanceDrift", mock.Anything).Maybe()
	return m
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishTransactionPosted(ctx context.Context, event events.TransactionPostedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() {
	m.Called()
}

type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

type MockQueryStore struct {
	mock.Mock
}

func (m *MockQueryStore) ListTransactions(ctx context.Context, q storage.TransactionQuery) ([]models.TransactionView, int, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.TransactionView), args.Int(1), args.Error(2)
}

func (m *MockQueryStore) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}
