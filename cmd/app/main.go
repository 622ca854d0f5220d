package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"b24-bot/internal/b24"
	"b24-bot/internal/cache"
	"b24-bot/internal/catalog"
	"b24-bot/internal/config"
	"b24-bot/internal/db"
	"b24-bot/internal/httpserver"
	"b24-bot/internal/logging"
	"b24-bot/internal/metrics"
	"b24-bot/migrations"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting b24-bot", "env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.CreateTables(ctx); err != nil {
		logger.Error("failed to create tables", "error", err)
		os.Exit(1)
	}
	if err := store.RunMigrations(ctx, migrations.Files); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisCache := cache.New(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		UseTLS:   cfg.RedisTLS,
	}, logger)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		// The bot degrades to uncached CRM reads when Redis is down.
		logger.Warn("redis unreachable, product list caching disabled", "error", err)
	}

	crm := b24.New(b24.Config{
		BaseURL:      cfg.B24URL,
		ConnectorURL: cfg.B24ConnectorURL,
		CatalogBlock: cfg.B24CatalogBlock,
		Timeout:      cfg.B24Timeout,
	}, logger, metricRegistry, redisCache)

	syncer := catalog.New(crm, store, metricRegistry, logger, cfg.CatalogRefreshInterval)
	if _, err := syncer.Refresh(ctx); err != nil {
		logger.Warn("initial catalog refresh failed", "error", err)
	}
	go syncer.Run(ctx)

	server := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Dependencies{
		Store:  store,
		Syncer: syncer,
	}, cfg.PublicBasePath)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}

	logger.Info("b24-bot stopped")
}

// openStore picks Postgres when DATABASE_URL is set, SQLite otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (db.Store, error) {
	poolCfg := db.PoolConfig{
		MinConns:        int32(cfg.DBMinConns),
		MaxConns:        int32(cfg.DBMaxConns),
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
		AcquireTimeout:  cfg.DBAcquireTimeout,
	}

	if cfg.DatabaseURL != "" {
		database := db.New(cfg.DatabaseURL, poolCfg, logger)
		if err := database.Connect(ctx); err != nil {
			return nil, err
		}
		return database, nil
	}

	logger.Info("using sqlite backend", "path", cfg.SQLitePath)
	return db.NewSQLite(ctx, cfg.SQLitePath, poolCfg, logger)
}
