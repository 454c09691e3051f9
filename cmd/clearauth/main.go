// Package main runs the production-shaped authentication service: settings
// from the environment, PostgreSQL persistence, and confirmation and reset
// notices delivered over SMTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearauth/clearauth/pkg/config"
	"github.com/clearauth/clearauth/pkg/credential"
	"github.com/clearauth/clearauth/pkg/gate"
	"github.com/clearauth/clearauth/pkg/gate/api"
	"github.com/clearauth/clearauth/pkg/notification"
	"github.com/clearauth/clearauth/pkg/token"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	store, pool, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize credential store", "err", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	hasherFactory, err := cfg.ToHasherFactory()
	if err != nil {
		slog.Error("Failed to build hasher factory", "err", err)
		os.Exit(1)
	}

	issuer, err := token.NewIssuer(cfg.ToTokenConfig())
	if err != nil {
		slog.Error("Invalid token configuration", "err", err)
		os.Exit(1)
	}

	hooks, err := newHooks(cfg)
	if err != nil {
		slog.Error("Failed to set up notifications", "err", err)
		os.Exit(1)
	}

	service := gate.NewService(store,
		gate.WithHasherFactory(hasherFactory),
		gate.WithIssuer(issuer),
		gate.WithHooks(hooks),
		gate.WithRefreshOnUse(cfg.RememberTokenRotation),
	)

	handle := api.NewHandle(service, store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	handle.RegisterRoutes(r)

	slog.Info("Authentication service ready",
		"addr", cfg.Addr,
		"persistence", cfg.PersistenceType,
		"bcrypt_preset", cfg.BcryptPreset,
		"remember_rotation", cfg.RememberTokenRotation)

	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}

// newStore builds the credential store for the configured persistence type.
// The returned pool is nil for the in-memory store.
func newStore(ctx context.Context, cfg config.Config) (credential.Store, *pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	if cfg.PersistenceType == "postgres" {
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required when PERSISTENCE_TYPE is postgres")
		}

		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if _, err := pool.Exec(ctx, credential.Schema); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	store, err := credential.NewStore(cfg.PersistenceType, credential.StoreConfig{Pool: pool})
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, nil, err
	}
	return store, pool, nil
}

// newHooks wires SMTP delivery for confirmation and password-reset notices.
// Without an email host configured the gate runs with no-op hooks, which is
// fine for development but leaves users without their tokens.
func newHooks(cfg config.Config) (gate.Hooks, error) {
	if cfg.Email.Host == "" {
		slog.Warn("EMAIL_HOST not set, confirmation and reset notices will not be delivered")
		return gate.NoopHooks{}, nil
	}

	notifier, err := notification.NewEmailNotifier(cfg.ToSMTPConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create email notifier: %w", err)
	}

	manager := notification.NewManager()

	confirmationTemplate := notification.NoticeTemplate{
		Subject: "Confirm your account",
		Text:    "Visit " + cfg.BaseURL + "/users/{{.account_id}}/confirmation?token={{.token}} to confirm your account.",
	}
	if err := manager.Register(notification.NoticeConfirmation, notifier, confirmationTemplate); err != nil {
		return nil, err
	}

	resetTemplate := notification.NoticeTemplate{
		Subject: "Change your password",
		Text:    "Visit " + cfg.BaseURL + "/passwords/{{.token}}/edit?account_id={{.account_id}} to choose a new password.",
	}
	if err := manager.Register(notification.NoticePasswordReset, notifier, resetTemplate); err != nil {
		return nil, err
	}

	return gate.ManagerHooks{Manager: manager}, nil
}
