package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dundie/backend/internal/audit"
	"github.com/dundie/backend/internal/config"
	"github.com/dundie/backend/internal/database"
	"github.com/dundie/backend/internal/events"
	"github.com/dundie/backend/internal/handlers"
	"github.com/dundie/backend/internal/logger"
	mW "github.com/dundie/backend/internal/middleware"
	"github.com/dundie/backend/internal/scheduler"
	"github.com/dundie/backend/internal/services"
	"github.com/dundie/backend/internal/storage/postgres"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Server.Environment, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	db, err := database.InitDB(cfg.Database, zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := database.RunMigrations(db.DB, cfg.Database.Name, zl); err != nil {
			zl.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisClient := database.InitRedis(cfg.Redis, zl)
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher := events.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, zl)
	defer publisher.Close()

	store := postgres.New(db)
	authService := services.NewAuthService(store, redisClient, cfg.JWT, cfg.Argon2, zl)
	accountService := services.NewAccountService(store, authService, zl)
	ledgerService := services.NewLedgerService(store, store, audit.NewAuditLogger(zl), publisher, zl, cfg.Ledger)
	queryService := services.NewQueryService(store, zl)

	if cfg.Admin.Password != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		admin, err := accountService.EnsureAdmin(ctx, cfg.Admin)
		cancel()
		if err != nil {
			zl.Fatal("failed to ensure admin account", zap.Error(err))
		}
		zl.Info("admin account ready", zap.String("username", admin.Username))
	} else {
		zl.Warn("ADMIN_PASSWORD not set, skipping admin account seeding")
	}

	jobs := scheduler.New(ledgerService, cfg.Ledger.ReconcileSchedule, zl)
	if err := jobs.Start(); err != nil {
		zl.Fatal("failed to start scheduler", zap.Error(err))
	}

	r := newRouter(routerDeps{
		auth:         mW.NewAuth(authService, accountService, zl),
		rateLimiter:  mW.NewRateLimiter(redisClient, cfg.RateLimit.PostsPerMinute, zl),
		authHandler:  handlers.NewAuthHandler(authService, zl),
		userHandler:  handlers.NewUserHandler(accountService, queryService, zl),
		txHandler:    handlers.NewTransactionHandler(ledgerService, queryService, zl),
		logger:       zl,
		healthChecks: []healthCheck{{name: "database", check: db.PingContext}},
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		zl.Info("server starting", zap.String("addr", server.Addr), zap.String("environment", cfg.Server.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	<-jobs.Stop().Done()
	if err := server.Shutdown(ctx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	if err := ledgerService.Drain(ctx); err != nil {
		zl.Warn("pending transaction events dropped", zap.Error(err))
	}

	zl.Info("server stopped")
}
