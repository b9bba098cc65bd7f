package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/curvelab/yieldstress/internal/analysis"
	"github.com/curvelab/yieldstress/internal/curve"
	"github.com/curvelab/yieldstress/internal/external/ecb"
	"github.com/curvelab/yieldstress/pkg/config"
	"github.com/curvelab/yieldstress/pkg/database"
	"github.com/curvelab/yieldstress/pkg/httputil"
	"github.com/curvelab/yieldstress/pkg/logger"
	"github.com/curvelab/yieldstress/pkg/redis"
)

// components holds the wired application graph shared by the commands.
type components struct {
	cfg      *config.Config
	logger   *logger.Logger
	db       *database.DB // nil when the database is disabled
	redis    *redis.Client
	ecb      *ecb.Client
	repo     *curve.Repository // nil when the database is disabled
	provider *curve.Provider
	service  *analysis.Service
	exporter *analysis.Exporter
}

// buildComponents loads config and wires every collaborator. Callers must
// invoke close() when done.
func buildComponents() (*components, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	var db *database.DB
	var repo *curve.Repository
	if cfg.Database.Enabled {
		db, err = database.New(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		repo = curve.NewRepository(db.Pool)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("Connected to database")
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "yieldstress")

	httpClient := httputil.New(log, cfg.ECB.RequestTimeout)
	if redisClient.Enabled() {
		// Shared budget across the API server and scheduler daemon.
		limiter := redis.NewRateLimiter(redisClient, "yieldstress")
		httpClient.WithRateLimiter(limiter, redis.RateLimitConfig{
			Key:    "ecb",
			Limit:  int(cfg.ECB.RatePerSecond * 60),
			Window: time.Minute,
		})
	}
	ecbClient := ecb.NewClient(httpClient, log, cfg.ECB.BaseURL, cfg.ECB.RatePerSecond)

	provider := curve.NewProvider(ecbClient, repo, cache, log)
	service := analysis.NewService(provider, cfg.Analysis, log)

	deps := &components{
		cfg:      cfg,
		logger:   log,
		db:       db,
		redis:    redisClient,
		ecb:      ecbClient,
		repo:     repo,
		provider: provider,
		service:  service,
		exporter: analysis.NewExporter(),
	}

	closeAll := func() {
		redisClient.Close()
		if db != nil {
			db.Close()
		}
	}

	return deps, closeAll, nil
}
