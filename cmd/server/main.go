package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/garyjia/recruitment-engine/internal/application/dispatcher"
	"github.com/garyjia/recruitment-engine/internal/application/engine"
	"github.com/garyjia/recruitment-engine/internal/config"
	"github.com/garyjia/recruitment-engine/internal/domain/event"
	"github.com/garyjia/recruitment-engine/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/recruitment-engine/internal/infrastructure/screening"
	httpserver "github.com/garyjia/recruitment-engine/internal/interfaces/http"
	"github.com/garyjia/recruitment-engine/pkg/database"
	"github.com/garyjia/recruitment-engine/pkg/utils"
)

func main() {
	configPath := pflag.StringP("config", "c", "configs/config.yaml", "path to the configuration file")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(cfg.Logger.Options())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting recruitment engine",
		zap.String("database", cfg.Database.Path),
		zap.Int("port", cfg.Server.Port))

	if err := run(cfg, logger); err != nil {
		logger.Error("Recruitment engine stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Recruitment engine stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if cfg.Database.Path != database.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Initialize database
	db, err := database.New(cfg.Database.Connection(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.NewMigrator(db, logger).RunMigrations(cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	stores := sqlite.NewStores(sqlite.NewDB(db.DB, logger), cfg.Recruitment.SequencePrefixes, logger)

	// Events are logged as the audit trail of the process
	kv := utils.NewKVLogger(logger)
	events := dispatcher.NewDispatcher(dispatcher.WithLogger(kv))
	defer events.Close()
	events.SubscribeAll("audit-log", func(ctx context.Context, evt *event.Event) error {
		kv.Info("Recruitment event",
			"event_id", evt.ID,
			"type", evt.Type,
			"case_id", evt.CaseID,
			"actor", evt.Actor,
		)
		return nil
	})

	screener := screening.NewResilient(
		screening.NewWatchlistScreener(cfg.Screening.Watchlist, cfg.Screening.Latency, logger),
		cfg.Screening.Policy(),
		logger,
	)

	eng := engine.NewEngine(stores,
		engine.WithConfig(cfg.Recruitment.Engine()),
		engine.WithDispatcher(events),
		engine.WithScreener(screener),
		engine.WithLogger(kv),
	)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, eng, kv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx)
}
