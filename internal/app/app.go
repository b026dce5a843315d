package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/godilite/review-insights/internal/config"
	handler "github.com/godilite/review-insights/internal/grpc"
	"github.com/godilite/review-insights/internal/repository"
	"github.com/godilite/review-insights/internal/service"
	"github.com/godilite/review-insights/internal/snapshot"
	"github.com/godilite/review-insights/internal/source"
	"github.com/godilite/review-insights/internal/syncer"
	"github.com/godilite/review-insights/pkg/cache"
	dbbuilder "github.com/godilite/review-insights/pkg/database"
	grpcsrv "github.com/godilite/review-insights/pkg/grpc/server"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	cache      handler.Cacher
	grpcServer *grpcsrv.Server
}

// NewApp wires storage, sources, the sync orchestrator and the gRPC server.
// Extra server options are applied after the ones derived from cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, serverOpts ...grpcsrv.Option) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DBPath); cfg.DBPath != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	dbPool, err := dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
		dbbuilder.WithMaxOpenConns(cfg.DBMaxOpenConns),
		dbbuilder.WithMaxIdleConns(cfg.DBMaxIdleConns),
		dbbuilder.WithConnMaxLifetime(cfg.DBConnMaxLifetime),
		dbbuilder.WithConnMaxIdleTime(cfg.DBConnMaxIdleTime),
		dbbuilder.WithRetry(cfg.DBConnectRetries, time.Second),
		dbbuilder.WithMigrations(repository.Schema...),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))

	repo := repository.NewReviewRepository(dbPool)
	if cfg.AgentsSeedFile != "" {
		if err := seedDirectory(ctx, repo, cfg.AgentsSeedFile, logger); err != nil {
			_ = dbPool.Close()
			return nil, err
		}
	}

	var cacheClient handler.Cacher = cache.Noop{}
	var statusStore syncer.StatusStore = syncer.NewMemoryStatusStore(cfg.SyncStatusTTL)
	if cfg.RedisEnabled {
		redisClient, err := cache.New(ctx,
			cache.WithAddress(cfg.RedisAddr),
			cache.WithPassword(cfg.RedisPassword),
			cache.WithDB(cfg.RedisDB),
			cache.WithPrefix("reviews:"),
		)
		if err != nil {
			_ = dbPool.Close()
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		cacheClient = redisClient
		statusStore = syncer.NewRedisStatusStore(redisClient, cfg.SyncStatusTTL)
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Info("Redis disabled, using in-process sync status and no view cache")
	}

	primary, err := primarySource(ctx, cfg, logger)
	if err != nil {
		_ = dbPool.Close()
		_ = cacheClient.Close()
		return nil, err
	}
	archives, err := source.ParseSources(cfg.ArchiveSources, cfg.FetchTimeout)
	if err != nil {
		_ = dbPool.Close()
		_ = cacheClient.Close()
		return nil, fmt.Errorf("archive sources: %w", err)
	}

	snapshots, err := snapshot.NewStore(cfg.SnapshotDir)
	if err != nil {
		_ = dbPool.Close()
		_ = cacheClient.Close()
		return nil, fmt.Errorf("snapshot store: %w", err)
	}

	// Set below; syncs only start through the handlers.
	var grpcHandlers *handler.Handlers
	orchestrator, err := syncer.New(
		syncer.WithPrimary(primary),
		syncer.WithArchives(archives...),
		syncer.WithStatusStore(statusStore),
		syncer.WithSnapshots(snapshots),
		syncer.WithReviewStore(repo),
		syncer.WithLogger(logger),
		syncer.WithTimeout(cfg.SyncTimeout),
		syncer.WithDedup(cfg.DedupExternalID),
		syncer.WithLocation(loc),
		syncer.WithSingleFlight(cfg.SyncSingleFlight),
		syncer.WithOnComplete(func(syncer.Status) {
			if grpcHandlers != nil {
				grpcHandlers.Invalidate()
			}
		}),
	)
	if err != nil {
		_ = dbPool.Close()
		_ = cacheClient.Close()
		return nil, fmt.Errorf("sync orchestrator: %w", err)
	}

	dashboard := service.NewDashboardService(repo, logger)
	grpcHandlers = handler.NewHandlers(dashboard, orchestrator, cacheClient, logger, cfg.CacheTTL, loc)

	opts := append([]grpcsrv.Option{
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
	}, serverOpts...)
	grpcServer, err := grpcsrv.New(opts...)
	if err != nil {
		_ = dbPool.Close()
		_ = cacheClient.Close()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s grpc.ServiceRegistrar) {
		handler.RegisterReviewInsightsServer(s, grpcHandlers)
	})

	logger.Info("application configured",
		zap.Int("archives", len(archives)),
		zap.String("snapshot_dir", snapshots.Dir()),
		zap.String("timezone", loc.String()),
		zap.Bool("dedup_external_id", cfg.DedupExternalID))

	return &App{
		logger:     logger,
		dbPool:     dbPool,
		cache:      cacheClient,
		grpcServer: grpcServer,
	}, nil
}

// primarySource prefers the Sheets API and falls back to the public CSV
// export when the API is not configured or fails.
func primarySource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (source.Fetcher, error) {
	fallback := &source.FallbackFetcher{Logger: logger.Named("source")}

	var clientOpts []option.ClientOption
	switch {
	case cfg.SheetsAPIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.SheetsAPIKey))
	case cfg.SheetsCredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.SheetsCredentialsFile))
	}

	sheets, err := source.NewSheetsFetcher(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsRange, clientOpts...)
	switch {
	case err == nil:
		fallback.Primary = sheets
	case errors.Is(err, source.ErrNotConfigured):
		logger.Info("Sheets API not configured, using public CSV export")
	default:
		return nil, err
	}

	if cfg.PublicCSVURL != "" {
		fallback.Fallback = source.NewHTTPFetcher(cfg.PublicCSVURL, cfg.FetchTimeout)
	}
	if fallback.Primary == nil && fallback.Fallback == nil {
		logger.Warn("no usable review source, syncs will fail until one is configured")
	}
	return fallback, nil
}

// seedDirectory loads the agent and department directory into storage.
// Departments go first so agents can reference them.
func seedDirectory(ctx context.Context, repo *repository.ReviewRepository, path string, logger *zap.Logger) error {
	seed, err := config.LoadSeed(path)
	if err != nil {
		return err
	}
	if err := repo.UpsertDepartments(ctx, seed.Departments); err != nil {
		return fmt.Errorf("seed departments: %w", err)
	}
	if err := repo.UpsertAgents(ctx, seed.Agents); err != nil {
		return fmt.Errorf("seed agents: %w", err)
	}
	logger.Info("Agent directory seeded",
		zap.Int("departments", len(seed.Departments)),
		zap.Int("agents", len(seed.Agents)))
	return nil
}

// Start serves gRPC in the background.
func (a *App) Start() {
	a.logger.Info("application starting")
	a.grpcServer.Start()
}

// Addr is the address the gRPC server listens on.
func (a *App) Addr() string {
	return a.grpcServer.Addr().String()
}

// Run starts the application and blocks until a shutdown signal arrives or
// the server fails.
func (a *App) Run() error {
	a.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-quit:
	case serveErr = <-a.grpcServer.Err():
		a.logger.Error("gRPC server stopped unexpectedly", zap.Error(serveErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, a.Shutdown(ctx))
}

// Shutdown stops the server, then releases the cache and the database.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("application shutting down")

	var errs []error
	if err := a.grpcServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("grpc shutdown: %w", err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("cache shutdown error", zap.Error(err))
		errs = append(errs, err)
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		a.logger.Info("graceful shutdown completed successfully")
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
