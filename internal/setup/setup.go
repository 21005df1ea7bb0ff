// Package setup bootstraps the application dependencies in order and bundles
// them for the entrypoints.
package setup

import (
	"context"
	"time"

	"github.com/wardenlabs/warden/internal/admin"
	"github.com/wardenlabs/warden/internal/database"
	"github.com/wardenlabs/warden/internal/engine"
	"github.com/wardenlabs/warden/internal/evaluator"
	"github.com/wardenlabs/warden/internal/ratelimit"
	"github.com/wardenlabs/warden/internal/redis"
	"github.com/wardenlabs/warden/internal/reputation"
	"github.com/wardenlabs/warden/internal/rules"
	"github.com/wardenlabs/warden/internal/setup/config"
	"github.com/wardenlabs/warden/internal/stats"
	"go.uber.org/zap"
)

// Options control which external systems the app connects to. The standalone
// commands run memory-only with both disabled.
type Options struct {
	// NoDatabase skips PostgreSQL; the reputation ledger runs memory-only.
	NoDatabase bool
	// NoRedis skips Redis; statistics counters are disabled.
	NoRedis bool
}

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config     // Application configuration
	Logger       *zap.Logger        // Main application logger
	DB           database.Client    // Database connection pool, nil when disabled
	RedisManager *redis.Manager     // Redis connection manager, nil when disabled
	Stats        *stats.Client      // Statistics counters, nil when disabled
	Rules        *rules.Store       // Mutable rule set
	Limiter      *ratelimit.Limiter // Per-identity rate limiter
	Evaluator    *evaluator.Evaluator
	Ledger       *reputation.Ledger
	Engine       *engine.Engine
	Admin        *admin.Service
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, opts Options) (*App, error) {
	cfg, configPath, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Debug.LogLevel)
	if err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded", zap.String("path", configPath))

	var db database.Client

	if !opts.NoDatabase {
		db, err = database.NewConnection(ctx, &cfg.PostgreSQL, logger, true)
		if err != nil {
			logger.Sync() //nolint:errcheck
			return nil, err
		}
	}

	var (
		redisManager *redis.Manager
		statsClient  *stats.Client
	)

	if !opts.NoRedis {
		redisManager = redis.NewManager(&cfg.Redis, logger)

		statsRedis, err := redisManager.GetClient(redis.StatsDBIndex)
		if err != nil {
			if db != nil {
				db.Close() //nolint:errcheck
			}

			logger.Sync() //nolint:errcheck

			return nil, err
		}

		statsClient = stats.NewClient(statsRedis, logger)
	}

	ruleStore := rules.NewStore(cfg.Safety.Rules, logger)
	limiter := ratelimit.NewLimiter(cfg.Safety.RateLimit, ratelimit.DefaultWindow)
	eval := evaluator.New(&cfg.Safety, ruleStore)

	var ledgerStore reputation.Store
	if db != nil {
		ledgerStore = database.NewLedgerStore(db.Model())
	}

	writeTimeout := time.Duration(cfg.PostgreSQL.WriteTimeout) * time.Millisecond
	ledger := reputation.NewLedger(ledgerStore, writeTimeout, logger)

	adminService := admin.NewService(cfg.Admin.OwnerID, cfg.Admin.AdminIDs, ruleStore, ledger, logger)
	eng := engine.New(&cfg.Safety, ruleStore, eval, limiter, ledger, statsClient, adminService, logger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		RedisManager: redisManager,
		Stats:        statsClient,
		Rules:        ruleStore,
		Limiter:      limiter,
		Evaluator:    eval,
		Ledger:       ledger,
		Engine:       eng,
		Admin:        adminService,
	}, nil
}

// Cleanup gracefully shuts down the app's connections. Logger syncing happens
// last so shutdown messages still land.
func (a *App) Cleanup() {
	if a.RedisManager != nil {
		a.RedisManager.Close()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	a.Logger.Sync() //nolint:errcheck
}
