// Package main runs the authentication service without a database using the
// in-memory credential store. This is useful for:
// - Quick development and testing
// - Demo/prototype environments
// - Learning the API without database setup
//
// Note: All data is lost when the server stops. For production, use
// cmd/clearauth with PostgreSQL.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clearauth/clearauth/pkg/credential"
	"github.com/clearauth/clearauth/pkg/gate"
	"github.com/clearauth/clearauth/pkg/gate/api"
	"github.com/clearauth/clearauth/pkg/hasher"
)

const addr = ":4000"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting in-memory authentication service (no database required)")

	store := credential.NewInMemoryStore()

	// Fast bcrypt cost keeps the demo snappy; never use it in production.
	service := gate.NewService(store,
		gate.WithHasherFactory(hasher.NewFactory(hasher.FastCost)),
	)

	seedDemoAccount(store, service)

	handle := api.NewHandle(service, store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	handle.RegisterRoutes(r)

	slog.Info("Authentication service ready", "addr", addr)
	slog.Info("Demo credentials", "email", "demo@example.com", "password", "password123")

	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}

// seedDemoAccount registers and confirms a ready-to-use account so the demo
// sign-in works immediately.
func seedDemoAccount(store *credential.InMemoryStore, service *gate.Service) {
	ctx := context.Background()

	decision, err := service.Register(ctx, "demo@example.com", "password123")
	if err != nil || !decision.OK() {
		slog.Error("Failed to seed demo account", "err", err, "outcome", decision.Outcome)
		os.Exit(1)
	}

	cred, err := store.GetByID(ctx, decision.Credential.ID)
	if err != nil {
		slog.Error("Failed to load seeded account", "err", err)
		os.Exit(1)
	}

	if d, err := service.ConfirmAccount(ctx, cred.ID, cred.ConfirmationToken); err != nil || !d.OK() {
		slog.Error("Failed to confirm demo account", "err", err, "outcome", d.Outcome)
		os.Exit(1)
	}

	slog.Info("Seeded demo account", "email", "demo@example.com")
}
