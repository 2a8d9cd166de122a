package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dundie/backend/internal/config"
	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/storage"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

// Claims carried by every access token.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// LoginRequest represents the token request payload
type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"michael-scott"`
	Password string `json:"password" validate:"required" example:"password123"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token string         `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	User  models.Account `json:"user"`
}

type AuthService struct {
	accounts storage.AccountStore
	redis    *redis.Client
	jwt      config.JWTConfig
	argon    config.Argon2Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(accounts storage.AccountStore, redisClient *redis.Client, jwtCfg config.JWTConfig, argonCfg config.Argon2Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		accounts: accounts,
		redis:    redisClient,
		jwt:      jwtCfg,
		argon:    argonCfg,
		logger:   logger.Named("auth"),
		now:      time.Now,
	}
}

// Authenticate checks a username and password pair and issues a token.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (string, models.Account, error) {
	acct, err := s.accounts.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Info("login for unknown user", zap.String("username", username))
			return "", models.Account{}, ErrInvalidCredentials
		}
		return "", models.Account{}, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	if !s.VerifyPassword(password, acct.PasswordHash) {
		s.logger.Info("invalid password", zap.Int64("user_id", acct.ID))
		return "", models.Account{}, ErrInvalidCredentials
	}

	token, err := s.GenerateToken(acct.ID)
	if err != nil {
		return "", models.Account{}, fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info("login successful", zap.Int64("user_id", acct.ID))
	return token, acct, nil
}

// Logout blacklists the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.redis == nil || token == "" {
		return nil
	}

	ttl := s.jwt.Expiry()
	if claims, err := s.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, blacklistKey(token), "1", ttl).Err(); err != nil {
		s.logger.Error("failed to blacklist token", zap.Error(err))
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether the token was revoked by a logout.
// Without Redis no token is ever revoked.
func (s *AuthService) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	if s.redis == nil {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *AuthService) GenerateToken(userID int64) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwt.Expiry())),
		},
	})
	return token.SignedString([]byte(s.jwt.SecretKey))
}

// ParseToken validates the signature and expiry of a token.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(s.jwt.SecretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.UserID <= 0 {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// HashPassword returns base64(salt)$base64(argon2id(password, salt)).
func (s *AuthService) HashPassword(password string) (string, error) {
	salt := make([]byte, s.argon.SaltLength)
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, s.argon.Time, s.argon.Memory, s.argon.Threads, s.argon.KeyLength)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func (s *AuthService) VerifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, s.argon.Time, s.argon.Memory, s.argon.Threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computedHash) == 1
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}
