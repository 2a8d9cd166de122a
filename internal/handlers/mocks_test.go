package handlers

import (
	"context"
	"net/http"

	"github.com/dundie/backend/internal/middleware"
	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/services"
	"github.com/stretchr/testify/mock"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) PostTransaction(ctx context.Context, recipientUsername string, sender models.Account, value int64) (*models.Transaction, error) {
	args := m.Called(ctx, recipientUsername, sender, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

type MockQuery struct {
	mock.Mock
}

func (m *MockQuery) ListTransactions(ctx context.Context, caller models.Account, filter services.TransactionFilter, orderBy string, page services.PageRequest) (*models.Page[models.TransactionView], error) {
	args := m.Called(ctx, caller, filter, orderBy, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Page[models.TransactionView]), args.Error(1)
}

func (m *MockQuery) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) CreateAccount(ctx context.Context, req services.CreateAccountRequest) (models.Account, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Account), args.Error(1)
}

func (m *MockAccounts) ResolveByUsername(ctx context.Context, username string) (models.Account, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(models.Account), args.Error(1)
}

func (m *MockAccounts) ListAccounts(ctx context.Context) ([]models.Account, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Account), args.Error(1)
}

type MockAuth struct {
	mock.Mock
}

func (m *MockAuth) Authenticate(ctx context.Context, username, password string) (string, models.Account, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Get(1).(models.Account), args.Error(2)
}

func (m *MockAuth) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

var (
	michael = models.Account{ID: 1, Username: "michael-scott", Dept: "management", Role: models.RoleManager}
	pam     = models.Account{ID: 2, Username: "pam-beesly", Dept: "reception", Role: models.RoleMember}
	jim     = models.Account{ID: 3, Username: "jim-halpert", Dept: "sales", Role: models.RoleMember}
)

// as authenticates every request as acct.
func as(acct models.Account) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithAccount(r.Context(), acct)))
		})
	}
}
