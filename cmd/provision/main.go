// Command provision runs schema migrations and seeds demo tenants with their
// initial accounts. It is idempotent: rerunning it skips users that already
// exist.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowbit/support-platform/internal/adapters/secondary/postgres"
	"github.com/flowbit/support-platform/internal/auth"
	"github.com/flowbit/support-platform/internal/config"
	"github.com/flowbit/support-platform/internal/core/domain"
	apperrors "github.com/flowbit/support-platform/internal/core/errors"
	"github.com/flowbit/support-platform/internal/infrastructure/logging"
)

type seedAccount struct {
	Email      string
	Password   string
	Role       domain.Role
	TenantID   string
	TenantName string
}

var seedAccounts = []seedAccount{
	{Email: "admin@logisticsco.com", Password: "demo123", Role: domain.RoleAdmin, TenantID: "tenant-logisticsco", TenantName: "LogisticsCo"},
	{Email: "user@logisticsco.com", Password: "demo123", Role: domain.RoleUser, TenantID: "tenant-logisticsco", TenantName: "LogisticsCo"},
	{Email: "admin@retailgmbh.com", Password: "demo123", Role: domain.RoleAdmin, TenantID: "tenant-retailgmbh", TenantName: "RetailGmbH"},
	{Email: "user@retailgmbh.com", Password: "demo123", Role: domain.RoleUser, TenantID: "tenant-retailgmbh", TenantName: "RetailGmbH"},
}

func main() {
	migrationsPath := flag.String("migrations", "migrations", "path to migration files")
	seed := flag.Bool("seed", true, "seed demo tenants after migrating")
	printTokens := flag.Bool("tokens", false, "print an access token for each seeded account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      "text",
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	if err := runMigrations(*migrationsPath, cfg.Database.URL, logger); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	if !*seed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	userRepo := postgres.NewUserRepository(pool)

	for _, account := range seedAccounts {
		existing, err := userRepo.GetByEmail(ctx, account.Email)
		if err == nil {
			logger.Info("account already provisioned", "email", account.Email)
			maybePrintToken(tokenManager, existing, *printTokens, logger)
			continue
		}
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			logger.Error("account lookup failed", "email", account.Email, "error", err)
			os.Exit(1)
		}

		user, err := domain.NewUser(domain.UserParams{
			Email:      account.Email,
			Password:   account.Password,
			Role:       account.Role,
			TenantID:   account.TenantID,
			TenantName: account.TenantName,
		})
		if err != nil {
			logger.Error("invalid seed account", "email", account.Email, "error", err)
			os.Exit(1)
		}

		created, err := userRepo.Create(ctx, user)
		if err != nil {
			logger.Error("failed to create account", "email", account.Email, "error", err)
			os.Exit(1)
		}

		logger.Info("account provisioned",
			"email", created.Email,
			"role", string(created.Role),
			"tenant_id", created.TenantID,
		)
		maybePrintToken(tokenManager, created, *printTokens, logger)
	}
}

func runMigrations(path, databaseURL string, logger *slog.Logger) error {
	mig, err := migrate.New("file://"+path, databaseURL)
	if err != nil {
		return err
	}
	defer mig.Close()

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	logger.Info("migrations applied", "path", path)
	return nil
}

func maybePrintToken(tm *auth.TokenManager, user *domain.User, enabled bool, logger *slog.Logger) {
	if !enabled {
		return
	}
	token, err := tm.GenerateToken(user.ID, user.TenantID, user.Role)
	if err != nil {
		logger.Error("failed to generate token", "email", user.Email, "error", err)
		return
	}
	logger.Info("access token", "email", user.Email, "token", token)
}
