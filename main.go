package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/campus-er/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/campus-er/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/campus-er/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/campus-er/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/campus-er/pkg/audit"
	"github.com/ekaya-inc/campus-er/pkg/config"
	"github.com/ekaya-inc/campus-er/pkg/database"
	"github.com/ekaya-inc/campus-er/pkg/handlers"
	"github.com/ekaya-inc/campus-er/pkg/logging"
	"github.com/ekaya-inc/campus-er/pkg/mcp"
	"github.com/ekaya-inc/campus-er/pkg/middleware"
	"github.com/ekaya-inc/campus-er/pkg/repositories"
	"github.com/ekaya-inc/campus-er/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	logConfig := zap.NewProductionConfig()
	if cfg.Env == "local" {
		logConfig = zap.NewDevelopmentConfig()
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("activity_driver", cfg.Activity.Driver),
		zap.String("activity_dsn", logging.SanitizeDSN(cfg.Activity.ActivityDSN())),
		zap.Bool("timeline_enabled", cfg.Timeline.Enabled),
		zap.Bool("mcp_enabled", cfg.MCP.Enabled))

	activityDB, err := datasource.Open(ctx, cfg.Activity.Driver, cfg.Activity.ActivityDSN())
	if err != nil {
		return err
	}
	defer activityDB.Close()

	auditor := audit.NewSecurityAuditor(logger)
	activityService := services.NewActivityService(activityDB, auditor, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewActivityHandler(activityService, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	var timelineService services.TimelineService
	if cfg.Timeline.Enabled {
		pool := database.NewPoolManager(&database.Config{
			URL:      cfg.Timeline.ConnectionString(),
			MinConns: cfg.Timeline.PoolMinConns,
			MaxConns: cfg.Timeline.PoolMaxConns,
		}, logger)
		defer pool.Close()

		// Best effort: the first request retries if the database is still down.
		_ = pool.Start(ctx)

		timelineService = services.NewTimelineService(repositories.NewTimelineRepository(pool), auditor, logger)
		handlers.NewTimelineHandler(timelineService, logger).RegisterRoutes(mux)
	}

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer("campus-er", cfg.Version, logger)
		mcpServer.RegisterTools(cfg.Version, mcp.ToolDeps{
			Activity: activityService,
			Timeline: timelineService,
			Database: activityDB,
		})
		handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)
	}

	handler := middleware.CORS(cfg.CORSAllowedOrigins)(middleware.RequestLogger(logger)(mux))
	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting campus-er", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
