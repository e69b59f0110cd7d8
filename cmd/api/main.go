package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/flowbit/support-platform/internal/adapters/primary/http"
	mw "github.com/flowbit/support-platform/internal/adapters/primary/http/middleware"
	"github.com/flowbit/support-platform/internal/adapters/primary/websocket"
	"github.com/flowbit/support-platform/internal/adapters/secondary/postgres"
	"github.com/flowbit/support-platform/internal/adapters/secondary/workflow"
	"github.com/flowbit/support-platform/internal/auth"
	"github.com/flowbit/support-platform/internal/config"
	"github.com/flowbit/support-platform/internal/core/services"
	"github.com/flowbit/support-platform/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	// Apply database configuration
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	hub := websocket.NewHub(logger)

	// 5. Initialize Rate Limiters
	var generalRateLimiter, webhookRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		webhookRateLimiter = mw.NewRateLimiter(mw.WebhookRateLimiterConfig())
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	userRepo := postgres.NewUserRepository(pool)
	ticketRepo := postgres.NewTicketRepository(pool)
	auditRepo := postgres.NewAuditLogRepository(pool)

	// Workflow engine trigger (Secondary Adapter)
	engineClient := workflow.NewEngineClient(
		cfg.Workflow.TriggerURL,
		cfg.Workflow.Secret,
		cfg.Workflow.TriggerTimeout,
		logger,
	)

	// Services (Core)
	identityService := services.NewIdentityService(tokenManager, userRepo)
	auditRecorder := services.NewAuditService(auditRepo, logger)
	txManager := postgres.NewTransactionManager(pool)
	ticketService := services.NewTicketService(
		ticketRepo, userRepo, auditRecorder, hub, engineClient,
		txManager, cfg.Workflow.TriggerTimeout, logger,
	)
	webhookService := services.NewWebhookIngressService(
		ticketRepo, userRepo, auditRecorder, hub, logger,
	)

	// Handlers (Primary Adapters)
	ticketHandler := httpAdapter.NewTicketHandler(ticketService, errorHandler, logger)
	webhookHandler := httpAdapter.NewWebhookHandler(webhookService, cfg.Webhook.Secret, logger)
	screensHandler := httpAdapter.NewScreensHandler(userRepo, nil, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, identityService, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Apply general rate limiting if enabled
	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	healthHandler.RegisterRoutes(r)

	// Webhook routes are secret-gated inside the handler, not identity-gated
	r.Group(func(r chi.Router) {
		if webhookRateLimiter != nil {
			r.Use(webhookRateLimiter.Middleware)
		}
		r.Route("/webhook", webhookHandler.RegisterRoutes)
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.Identity(identityService))
			r.Route("/tickets", ticketHandler.RegisterRoutes)
			r.Route("/users", screensHandler.RegisterRoutes)
		})
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	// Let in-flight workflow triggers finish
	ticketService.Shutdown()

	logger.Info("server shutdown complete")
}
