package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/splitkaro/splitkaro/internal/api"
	"github.com/splitkaro/splitkaro/internal/auth"
	"github.com/splitkaro/splitkaro/internal/config"
	"github.com/splitkaro/splitkaro/internal/service"
	"github.com/splitkaro/splitkaro/internal/storage"
	"github.com/splitkaro/splitkaro/internal/storage/postgres"
	"github.com/splitkaro/splitkaro/internal/storage/sqlite"
	"github.com/splitkaro/splitkaro/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store)

	authSvc := service.NewAuthService(authenticator, jwtManager, store, slog.Default())
	groupSvc := service.NewGroupService(store)
	ledgerSvc := service.NewLedgerService(store)

	handler := api.New(authSvc, groupSvc, ledgerSvc, jwtManager).Handler()

	// h2c enables HTTP/2 without TLS for clients behind a terminating proxy.
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	slog.Info("Server starting", "address", cfg.BindAddr)
	if err := http.ListenAndServe(cfg.BindAddr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// openStore selects PostgreSQL when DATABASE_URL is set, SQLite otherwise.
func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.DatabaseURL != "" {
		store, err := postgres.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "backend", "postgres")
		return store, nil
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("Storage initialized", "backend", "sqlite", "database", cfg.DBPath)
	return store, nil
}
