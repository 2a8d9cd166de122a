package main

import (
	"context"
	"net/http"
	"time"

	"github.com/dundie/backend/internal/handlers"
	"github.com/dundie/backend/internal/metrics"
	mW "github.com/dundie/backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

type routerDeps struct {
	auth         *mW.Auth
	rateLimiter  *mW.RateLimiter
	authHandler  *handlers.AuthHandler
	userHandler  *handlers.UserHandler
	txHandler    *handlers.TransactionHandler
	logger       *zap.Logger
	healthChecks []healthCheck
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.SecurityHeaders)
	r.Use(mW.RequestLogger(d.logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		checks := map[string]string{}
		for _, hc := range d.healthChecks {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := hc.check(ctx)
			cancel()
			if err != nil {
				status = http.StatusServiceUnavailable
				checks[hc.name] = "unhealthy"
				continue
			}
			checks[hc.name] = "healthy"
		}
		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		writeHealth(w, status, overall, checks)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/token", d.authHandler.Token)
		r.Post("/auth/logout", d.authHandler.Logout)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(d.auth.Middleware)

			r.Get("/users", d.userHandler.ListUsers)
			r.Post("/users", d.userHandler.CreateUser)
			r.Get("/users/{username}", d.userHandler.GetUser)
			r.Get("/users/{username}/balance", d.userHandler.GetUserBalance)
			r.Get("/balance", d.userHandler.GetMyBalance)

			r.Get("/transactions", d.txHandler.ListTransactions)
			r.With(d.rateLimiter.Middleware).Post("/transactions/{username}", d.txHandler.CreateTransaction)
		})
	})

	return r
}
