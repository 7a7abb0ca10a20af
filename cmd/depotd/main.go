package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/jsattler/depot-tracker/internal/application"
	"github.com/jsattler/depot-tracker/internal/domain"
	"github.com/jsattler/depot-tracker/internal/infrastructure/config"
	"github.com/jsattler/depot-tracker/internal/infrastructure/marketdata/twelvedata"
	"github.com/jsattler/depot-tracker/internal/infrastructure/persistence/memory"
	"github.com/jsattler/depot-tracker/internal/infrastructure/persistence/sqldb"
	httpHandler "github.com/jsattler/depot-tracker/internal/interfaces/http"
	_ "github.com/sijms/go-ora/v2"
)

func setupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(logger)
	return logger
}

// initializeStore opens the configured database, runs migrations and returns
// the versioning store. The memory driver backs local runs without a
// database.
func initializeStore(cfg *config.Config) (domain.VersioningStore, error) {
	if cfg.DBDriver == "memory" {
		return memory.NewStore(), nil
	}

	var db *sql.DB
	var dialect sqldb.Dialect
	var err error

	switch cfg.DBDriver {
	case "postgres":
		db, err = sql.Open("pgx", cfg.DBDSN)
		dialect = &sqldb.PostgresDialect{}
	case "oracle":
		db, err = sql.Open("oracle", cfg.DBDSN)
		dialect = &sqldb.OracleDialect{}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	wrapper := sqldb.New(db, dialect)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := wrapper.Dialect.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return sqldb.NewStore(wrapper), nil
}

func buildServer(cfg *config.Config, handler *httpHandler.Handler) *http.Server {
	router := gin.Default()
	httpHandler.SetupRoutes(router, handler)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// App wraps the running components for shutdown and testing.
type App struct {
	Server        *http.Server
	PriceUpdater  *application.PriceUpdater
	CancelContext context.CancelFunc
}

func (a *App) Shutdown(ctx context.Context) error {
	slog.Info("shutting down")

	a.PriceUpdater.Stop()
	a.CancelContext()

	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	return nil
}

func run() error {
	setupLogger()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := initializeStore(cfg)
	if err != nil {
		return fmt.Errorf("store initialization failed: %w", err)
	}

	priceBook := application.NewPriceBook()
	ingestService := application.NewIngestService(store, priceBook)

	quoteClient := twelvedata.NewClient(cfg.TwelveDataAPIKey)
	priceUpdater := application.NewPriceUpdater(store, quoteClient, priceBook, cfg.PriceRefreshInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go priceUpdater.Start(ctx)

	handler := httpHandler.NewHandler(ingestService, store)
	server := buildServer(cfg, handler)

	app := &App{
		Server:        server,
		PriceUpdater:  priceUpdater,
		CancelContext: cancel,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("server starting", "host", cfg.ServerHost, "port", cfg.ServerPort, "driver", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
		slog.Info("received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	slog.Info("server exited gracefully")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}
