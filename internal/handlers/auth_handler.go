package handlers

import (
	"context"
	"net/http"

	"github.com/dundie/backend/internal/middleware"
	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/services"
	"go.uber.org/zap"
)

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (string, models.Account, error)
	Logout(ctx context.Context, token string) error
}

type AuthHandler struct {
	auth      Authenticator
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewAuthHandler(auth Authenticator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, validator: services.NewValidationHelper(), logger: logger.Named("auth")}
}

// Token exchanges a username and password for an access token
// @Summary Obtain a token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Credentials"
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/token [post]
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendBadRequest(w, "Invalid request")
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", "VALIDATION_FAILED", http.StatusBadRequest, err)
		return
	}

	token, acct, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, services.AuthResponse{Token: token, User: acct})
}

// Logout revokes the bearer token
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.BearerToken(r); ok {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			h.logger.Warn("logout could not revoke token", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}
