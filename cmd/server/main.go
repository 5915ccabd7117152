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

	"bankledger/internal/auth"
	"bankledger/internal/config"
	"bankledger/internal/db"
	"bankledger/internal/dupguard"
	"bankledger/internal/handlers"
	"bankledger/internal/idgen"
	"bankledger/internal/middleware"
	"bankledger/internal/services"
	"bankledger/internal/store"
	"bankledger/internal/userclient"
	"bankledger/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	changed, err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsPath, db.Up)
	if err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	if changed {
		logger.Info("database schema migrated")
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	admins := store.NewAdminStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database, logger)
	hub := websocket.NewHub(logger)
	ids := idgen.New(cfg.IDMaxAttempts)
	validator := userclient.New(cfg.UserServiceURL, cfg.AuthTimeout)
	opts := services.Options{Logger: logger, AuthTimeout: cfg.AuthTimeout}

	accounts := services.NewAccountService(txRunner, store.NewAccountStore(database), store.NewTransactionStore(database), audit, hub, ids, opts)
	cards := services.NewCardService(txRunner, store.NewCardStore(database), store.NewCardTransactionStore(database), audit, hub, validator, ids, dupguard.New(cfg.DuplicateWindow), opts)
	loans := services.NewLoanService(txRunner, store.NewLoanStore(database), store.NewLoanPaymentStore(database), audit, hub, validator, opts)

	rateLimiter, err := middleware.NewLimiter(cfg.RateLimit)
	if err != nil {
		logger.Error("invalid rate limit", "rate", cfg.RateLimit, "error", err)
		os.Exit(1)
	}

	handler := handlers.New(cfg, handlers.Deps{
		TxRunner:    txRunner,
		Users:       users,
		Admins:      admins,
		Audit:       audit,
		Accounts:    accounts,
		Cards:       cards,
		Loans:       loans,
		Hub:         hub,
		Revocations: auth.NewRevocationList(0, cfg.RevocationTTL),
		Limiter:     rateLimiter,
		Logger:      logger,
	})
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("ledger API listening", "addr", server.Addr, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
