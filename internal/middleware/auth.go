package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/services"
	"go.uber.org/zap"
)

type contextKey string

const accountKey contextKey = "account"

// TokenVerifier validates access tokens and reports revoked ones.
type TokenVerifier interface {
	ParseToken(token string) (*services.Claims, error)
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// AccountLoader loads the account a token was issued for.
type AccountLoader interface {
	GetAccount(ctx context.Context, id int64) (models.Account, error)
}

type Auth struct {
	tokens   TokenVerifier
	accounts AccountLoader
	logger   *zap.Logger
}

func NewAuth(tokens TokenVerifier, accounts AccountLoader, logger *zap.Logger) *Auth {
	return &Auth{tokens: tokens, accounts: accounts, logger: logger.Named("auth")}
}

// Middleware rejects requests without a valid bearer token and puts the
// caller's account in the request context.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			services.SendErrorResponse(w, "Authorization header required", "UNAUTHORIZED", http.StatusUnauthorized, nil)
			return
		}

		claims, err := a.tokens.ParseToken(token)
		if err != nil {
			services.SendErrorResponse(w, "Invalid token", "UNAUTHORIZED", http.StatusUnauthorized, nil)
			return
		}

		revoked, err := a.tokens.IsBlacklisted(r.Context(), token)
		if err != nil {
			// lookup failures count as not revoked
			a.logger.Warn("blacklist lookup failed", zap.Error(err))
		}
		if revoked {
			services.SendErrorResponse(w, "Token has been revoked", "UNAUTHORIZED", http.StatusUnauthorized, nil)
			return
		}

		acct, err := a.accounts.GetAccount(r.Context(), claims.UserID)
		if err != nil {
			if services.ErrorCode(err) == services.ErrNotFound.Code {
				services.SendErrorResponse(w, "Invalid token", "UNAUTHORIZED", http.StatusUnauthorized, nil)
				return
			}
			a.logger.Error("failed to load caller", zap.Int64("user_id", claims.UserID), zap.Error(err))
			services.SendServiceError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acct)))
	})
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func WithAccount(ctx context.Context, acct models.Account) context.Context {
	return context.WithValue(ctx, accountKey, acct)
}

// AccountFromContext returns the authenticated caller.
func AccountFromContext(ctx context.Context) (models.Account, bool) {
	acct, ok := ctx.Value(accountKey).(models.Account)
	return acct, ok
}
