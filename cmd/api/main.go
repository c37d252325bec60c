package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrJamesThe3rd/ledger/internal/account"
	accountStore "github.com/MrJamesThe3rd/ledger/internal/account/store"
	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/audit/broker"
	auditStore "github.com/MrJamesThe3rd/ledger/internal/audit/store"
	"github.com/MrJamesThe3rd/ledger/internal/config"
	"github.com/MrJamesThe3rd/ledger/internal/database"
	"github.com/MrJamesThe3rd/ledger/internal/export"
	ledgerHttp "github.com/MrJamesThe3rd/ledger/internal/http"
	accountHandler "github.com/MrJamesThe3rd/ledger/internal/http/account"
	auditHandler "github.com/MrJamesThe3rd/ledger/internal/http/audit"
	"github.com/MrJamesThe3rd/ledger/internal/http/auth"
	exportHandler "github.com/MrJamesThe3rd/ledger/internal/http/export"
	txHandler "github.com/MrJamesThe3rd/ledger/internal/http/transaction"
	"github.com/MrJamesThe3rd/ledger/internal/transaction"
	txStore "github.com/MrJamesThe3rd/ledger/internal/transaction/store"
	"github.com/MrJamesThe3rd/ledger/internal/user"
	userStore "github.com/MrJamesThe3rd/ledger/internal/user/store"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.RequireAuth()
	}

	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DB.Driver, cfg.ConnectionString(), cfg.Pool())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var (
		userService    = user.NewService(userStore.New(db))
		accountService = account.NewService(accountStore.New(db), userService, db)
		auditService   = audit.NewService(auditStore.New(db))
	)

	var sink transaction.AuditSink = auditService

	if cfg.Audit.BrokerURL != "" {
		publisher, err := broker.Dial(cfg.Audit.BrokerURL, cfg.Audit.Exchange, auditService)
		if err != nil {
			slog.Error("failed to connect to audit broker", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		slog.Info("publishing audit events", "exchange", cfg.Audit.Exchange)

		sink = publisher
	}

	transactionService := transaction.NewService(
		txStore.New(db), accountService, userService, sink, auditService, db,
		transaction.Options{
			Currency:            cfg.Ledger.Currency,
			ComplianceThreshold: cfg.Ledger.ComplianceThreshold,
			MaxRetries:          cfg.Ledger.MaxRetries,
		},
	)
	exportService := export.NewService(accountService, transactionService, auditService)

	if err := seedDemoUsers(ctx, userService, cfg); err != nil {
		slog.Error("failed to seed demo users", "error", err)
		os.Exit(1)
	}

	router := ledgerHttp.New(
		ledgerHttp.Options{
			JWTSecret:      []byte(cfg.Auth.JWTSecret),
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		},
		accountHandler.NewHandler(accountService),
		txHandler.NewHandler(transactionService),
		auditHandler.NewHandler(auditService, transactionService),
		exportHandler.NewHandler(exportService),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      http.TimeoutHandler(router, cfg.Server.Timeout, "request timed out"),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout + 5*time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "port", srv.Addr, "driver", cfg.DB.Driver)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.Timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}

// seedDemoUsers creates the configured demo users and logs a day-long token
// for each, so a fresh install can be exercised without an identity service.
func seedDemoUsers(ctx context.Context, users *user.Service, cfg *config.Config) error {
	if len(cfg.DB.SeedDemoUsers) == 0 {
		return nil
	}

	seeded, err := users.SeedDemo(ctx, cfg.DB.SeedDemoUsers)
	if err != nil {
		return err
	}

	for _, u := range seeded {
		token, err := auth.Issue([]byte(cfg.Auth.JWTSecret), u.ID, "demo-"+u.Username, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("issuing token for %s: %w", u.Username, err)
		}

		slog.Info("demo user ready", "username", u.Username, "id", u.ID, "token", token)
	}

	return nil
}
