package handlers

import (
	"context"
	"net/http"

	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AccountManager interface {
	CreateAccount(ctx context.Context, req services.CreateAccountRequest) (models.Account, error)
	ResolveByUsername(ctx context.Context, username string) (models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

type BalanceReader interface {
	GetBalance(ctx context.Context, accountID int64) (int64, error)
}

type UserHandler struct {
	accounts AccountManager
	balances BalanceReader
	logger   *zap.Logger
}

func NewUserHandler(accounts AccountManager, balances BalanceReader, logger *zap.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, balances: balances, logger: logger.Named("users")}
}

// BalanceResponse is the balance of one account
type BalanceResponse struct {
	Username string `json:"username" example:"pam-beesly"`
	Balance  int64  `json:"balance" example:"150"`
}

// ListUsers
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Account
// @Router /users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	accts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accts)
}

// GetUser
// @Summary Get a user by username
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{username} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	acct, err := h.accounts.ResolveByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// CreateUser registers a new account. Only managers may create accounts.
// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateAccountRequest true "New user"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	if !acct.IsPrivileged() {
		services.SendServiceError(w, services.ErrForbidden)
		return
	}

	var req services.CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendBadRequest(w, "Invalid request body")
		return
	}

	created, err := h.accounts.CreateAccount(r.Context(), req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	h.logger.Info("user created", zap.String("username", created.Username), zap.Int64("created_by", acct.ID))
	writeJSON(w, http.StatusCreated, created)
}

// GetUserBalance
// @Summary Balance of a user
// @Description Members may only read their own balance
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} BalanceResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{username}/balance [get]
func (h *UserHandler) GetUserBalance(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}

	target, err := h.accounts.ResolveByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	if target.ID != acct.ID && !acct.IsPrivileged() {
		services.SendServiceError(w, services.ErrForbidden)
		return
	}

	h.writeBalance(w, r, target)
}

// GetMyBalance
// @Summary Balance of the caller
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BalanceResponse
// @Router /balance [get]
func (h *UserHandler) GetMyBalance(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	h.writeBalance(w, r, acct)
}

func (h *UserHandler) writeBalance(w http.ResponseWriter, r *http.Request, acct models.Account) {
	balance, err := h.balances.GetBalance(r.Context(), acct.ID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Username: acct.Username, Balance: balance})
}
