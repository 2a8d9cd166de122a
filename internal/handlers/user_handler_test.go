package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserRouter(acct models.Account, accounts *MockAccounts, query *MockQuery) http.Handler {
	h := NewUserHandler(accounts, query, zap.NewNop())
	r := chi.NewRouter()
	r.Use(as(acct))
	r.Get("/users", h.ListUsers)
	r.Post("/users", h.CreateUser)
	r.Get("/users/{username}", h.GetUser)
	r.Get("/users/{username}/balance", h.GetUserBalance)
	r.Get("/balance", h.GetMyBalance)
	return r
}

func TestUserHandler_Balance(t *testing.T) {
	t.Run("own balance", func(t *testing.T) {
		accounts, query := &MockAccounts{}, &MockQuery{}
		accounts.On("ResolveByUsername", mock.Anything, pam.Username).Return(pam, nil)
		query.On("GetBalance", mock.Anything, pam.ID).Return(int64(150), nil)

		w := httptest.NewRecorder()
		newUserRouter(pam, accounts, query).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/pam-beesly/balance", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body BalanceResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, BalanceResponse{Username: pam.Username, Balance: 150}, body)
	})

	t.Run("member cannot read another balance", func(t *testing.T) {
		accounts, query := &MockAccounts{}, &MockQuery{}
		accounts.On("ResolveByUsername", mock.Anything, jim.Username).Return(jim, nil)

		w := httptest.NewRecorder()
		newUserRouter(pam, accounts, query).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/jim-halpert/balance", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		query.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)
	})

	t.Run("manager can read any balance", func(t *testing.T) {
		accounts, query := &MockAccounts{}, &MockQuery{}
		accounts.On("ResolveByUsername", mock.Anything, jim.Username).Return(jim, nil)
		query.On("GetBalance", mock.Anything, jim.ID).Return(int64(0), nil)

		w := httptest.NewRecorder()
		newUserRouter(michael, accounts, query).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/jim-halpert/balance", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("caller balance", func(t *testing.T) {
		query := &MockQuery{}
		query.On("GetBalance", mock.Anything, pam.ID).Return(int64(-3), nil)

		w := httptest.NewRecorder()
		newUserRouter(pam, &MockAccounts{}, query).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/balance", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"balance":-3`)
	})
}

func TestUserHandler_GetUser(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("ResolveByUsername", mock.Anything, pam.Username).Return(pam, nil)
	accounts.On("ResolveByUsername", mock.Anything, "creed-bratton").
		Return(models.Account{}, fmt.Errorf("%w", services.ErrNotFound))
	router := newUserRouter(jim, accounts, &MockQuery{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/pam-beesly", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/creed-bratton", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserHandler_CreateUser(t *testing.T) {
	body := `{"name":"Ryan Howard","email":"ryan@dm.com","dept":"sales","password":"temp1234"}`

	t.Run("manager creates", func(t *testing.T) {
		accounts := &MockAccounts{}
		accounts.On("CreateAccount", mock.Anything, services.CreateAccountRequest{
			Name: "Ryan Howard", Email: "ryan@dm.com", Dept: "sales", Password: "temp1234",
		}).Return(models.Account{ID: 10, Username: "ryan-howard", Role: models.RoleMember}, nil)

		w := httptest.NewRecorder()
		newUserRouter(michael, accounts, &MockQuery{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "ryan-howard")
	})

	t.Run("member is forbidden", func(t *testing.T) {
		accounts := &MockAccounts{}
		w := httptest.NewRecorder()
		newUserRouter(pam, accounts, &MockQuery{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))

		assert.Equal(t, http.StatusForbidden, w.Code)
		accounts.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
	})

	t.Run("username taken", func(t *testing.T) {
		accounts := &MockAccounts{}
		accounts.On("CreateAccount", mock.Anything, mock.Anything).
			Return(models.Account{}, fmt.Errorf("%w: ryan-howard", services.ErrUsernameTaken))

		w := httptest.NewRecorder()
		newUserRouter(michael, accounts, &MockQuery{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestAuthHandler(t *testing.T) {
	t.Run("token", func(t *testing.T) {
		auth := &MockAuth{}
		auth.On("Authenticate", mock.Anything, "pam-beesly", "beesly").Return("jwt-token", pam, nil)
		h := NewAuthHandler(auth, zap.NewNop())

		w := httptest.NewRecorder()
		h.Token(w, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"username":"pam-beesly","password":"beesly"}`)))

		require.Equal(t, http.StatusOK, w.Code)
		var resp services.AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "jwt-token", resp.Token)
		assert.Equal(t, pam.Username, resp.User.Username)
	})

	t.Run("bad credentials", func(t *testing.T) {
		auth := &MockAuth{}
		auth.On("Authenticate", mock.Anything, "pam-beesly", "wrong").Return("", models.Account{}, services.ErrInvalidCredentials)
		h := NewAuthHandler(auth, zap.NewNop())

		w := httptest.NewRecorder()
		h.Token(w, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"username":"pam-beesly","password":"wrong"}`)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		h := NewAuthHandler(&MockAuth{}, zap.NewNop())
		w := httptest.NewRecorder()
		h.Token(w, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"username":"pam-beesly"}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("logout", func(t *testing.T) {
		auth := &MockAuth{}
		auth.On("Logout", mock.Anything, "jwt-token").Return(nil).Once()
		h := NewAuthHandler(auth, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer jwt-token")
		w := httptest.NewRecorder()
		h.Logout(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		auth.AssertExpectations(t)
	})
}
