package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dundie/backend/internal/config"
	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/storage"
	"go.uber.org/zap"
)

const DefaultCurrency = "USD"

// PasswordHasher turns a plain password into a storable hash.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// CreateAccountRequest represents the user creation payload
type CreateAccountRequest struct {
	Name     string      `json:"name" validate:"required,min=2,max=255" example:"Michael Scott"`
	Email    string      `json:"email" validate:"required,email" example:"michael@dm.com"`
	Dept     string      `json:"dept" validate:"required,max=255" example:"sales"`
	Password string      `json:"password" validate:"required,min=6" example:"password123"`
	Username string      `json:"username,omitempty" validate:"omitempty,max=255"`
	Currency string      `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Avatar   *string     `json:"avatar,omitempty" validate:"omitempty,url"`
	Bio      *string     `json:"bio,omitempty"`
	Role     models.Role `json:"role,omitempty" validate:"omitempty,oneof=member manager"`
}

type AccountService struct {
	store      storage.AccountStore
	hasher     PasswordHasher
	validation *ValidationHelper
	logger     *zap.Logger
}

func NewAccountService(store storage.AccountStore, hasher PasswordHasher, logger *zap.Logger) *AccountService {
	return &AccountService{
		store:      store,
		hasher:     hasher,
		validation: NewValidationHelper(),
		logger:     logger.Named("accounts"),
	}
}

// CreateAccount validates req and stores a new account. The role, when not
// given, is derived from the department once and persisted.
func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (models.Account, error) {
	if err := s.validation.ValidateStruct(&req); err != nil {
		return models.Account{}, err
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = models.GenerateUsername(req.Name)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	role := req.Role
	if role == "" {
		role = models.DefaultRole(req.Dept)
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}

	acct, err := s.store.CreateAccount(ctx, models.Account{
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		Dept:         strings.TrimSpace(req.Dept),
		Currency:     currency,
		Avatar:       req.Avatar,
		Bio:          req.Bio,
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return models.Account{}, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
		}
		return models.Account{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	s.logger.Info("account created",
		zap.Int64("user_id", acct.ID),
		zap.String("username", acct.Username),
		zap.String("role", string(acct.Role)),
	)
	return acct, nil
}

// ResolveByUsername maps a username to an account or ErrNotFound.
func (s *AccountService) ResolveByUsername(ctx context.Context, username string) (models.Account, error) {
	acct, err := s.store.GetAccountByUsername(ctx, username)
	return acct, s.mapLookupErr(err)
}

func (s *AccountService) GetAccount(ctx context.Context, id int64) (models.Account, error) {
	acct, err := s.store.GetAccountByID(ctx, id)
	return acct, s.mapLookupErr(err)
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	accts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return accts, nil
}

// EnsureAdmin creates the management account described by cfg unless an
// account with that username already exists.
func (s *AccountService) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) (models.Account, error) {
	acct, err := s.ResolveByUsername(ctx, cfg.Username)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.Account{}, err
	}
	if cfg.Password == "" {
		return models.Account{}, errors.New("admin account missing and ADMIN_PASSWORD is not set")
	}

	acct, err = s.CreateAccount(ctx, CreateAccountRequest{
		Name:     cfg.Username,
		Email:    cfg.Email,
		Dept:     models.ManagementDept,
		Password: cfg.Password,
		Username: cfg.Username,
		Role:     models.RoleManager,
	})
	if errors.Is(err, ErrUsernameTaken) {
		// created concurrently by another instance
		return s.ResolveByUsername(ctx, cfg.Username)
	}
	return acct, err
}

func (s *AccountService) mapLookupErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
}
