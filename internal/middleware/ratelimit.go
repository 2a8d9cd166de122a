package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dundie/backend/internal/services"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter caps how many requests each caller may make per window.
// Counters live in Redis so every instance shares them; when Redis is
// missing or failing a per-process token bucket takes over.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	local map[int64]*rate.Limiter
}

func NewRateLimiter(redisClient *redis.Client, perMinute int, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  perMinute,
		window: time.Minute,
		logger: logger.Named("ratelimit"),
		local:  make(map[int64]*rate.Limiter),
	}
}

// Allow counts one request for accountID and reports whether it is within
// the limit.
func (l *RateLimiter) Allow(ctx context.Context, accountID int64) bool {
	if l.limit <= 0 {
		return true
	}
	if l.redis != nil {
		allowed, err := l.allowRedis(ctx, accountID)
		if err == nil {
			return allowed
		}
		l.logger.Warn("redis rate limit failed, using local limiter", zap.Error(err))
	}
	return l.localLimiter(accountID).Allow()
}

func (l *RateLimiter) allowRedis(ctx context.Context, accountID int64) (bool, error) {
	window := time.Now().Unix() / int64(l.window.Seconds())
	key := fmt.Sprintf("ratelimit:tx:%d:%d", accountID, window)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.limit), nil
}

func (l *RateLimiter) localLimiter(accountID int64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.local[accountID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)
		l.local[accountID] = lim
	}
	return lim
}

// Middleware applies the limit to the authenticated caller. It must run
// after Auth.Middleware.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, ok := AccountFromContext(r.Context())
		if ok && !l.Allow(r.Context(), acct.ID) {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			services.SendErrorResponse(w, "Too many requests", "RATE_LIMITED", http.StatusTooManyRequests, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
