package curve

import (
	"context"
	"fmt"
	"time"

	"github.com/curvelab/yieldstress/pkg/logger"
	"github.com/curvelab/yieldstress/pkg/redis"
)

// Fetcher pulls a curve history from the upstream data source.
// Implemented by the ECB client.
type Fetcher interface {
	FetchHistory(ctx context.Context, from, to time.Time) (*History, error)
}

// Provider prepares engine input through an explicit cache chain:
// redis -> upstream -> postgres fallback. It is owned by the caller and
// passed into the analysis service; the engine itself holds no curve state.
type Provider struct {
	fetcher Fetcher
	repo    *Repository // optional archive, may be nil
	cache   *redis.Cache
	logger  *logger.Logger
}

// NewProvider creates a provider. repo may be nil when persistence is
// disabled; cache may be backed by a disabled redis client.
func NewProvider(fetcher Fetcher, repo *Repository, cache *redis.Cache, log *logger.Logger) *Provider {
	return &Provider{
		fetcher: fetcher,
		repo:    repo,
		cache:   cache,
		logger:  log,
	}
}

// History returns the curve history for [from, to]. Fresh upstream data is
// archived write-through; when upstream is unreachable the archive serves as
// a stale fallback.
func (p *Provider) History(ctx context.Context, from, to time.Time) (*History, error) {
	cacheKey := redis.HistoryKey(from, to)

	var cached History
	if found, err := p.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		p.logger.WithField("key", cacheKey).Debug("Curve history cache hit")
		return &cached, nil
	}

	history, err := p.fetcher.FetchHistory(ctx, from, to)
	if err != nil {
		return p.fallback(ctx, from, to, err)
	}

	if p.repo != nil && history.Len() > 0 {
		if storeErr := p.repo.Store(ctx, history); storeErr != nil {
			// Archive failure must not block analysis
			p.logger.WithError(storeErr).Warn("Failed to archive curve history")
		}
	}

	if err := p.cache.Set(ctx, cacheKey, history, redis.TTLDaily); err != nil {
		p.logger.WithError(err).Warn("Failed to cache curve history")
	}

	return history, nil
}

// fallback serves archived data when the upstream fetch failed.
func (p *Provider) fallback(ctx context.Context, from, to time.Time, fetchErr error) (*History, error) {
	if p.repo == nil {
		return nil, fetchErr
	}

	history, loadErr := p.repo.LoadRange(ctx, from, to)
	if loadErr != nil || history.Len() == 0 {
		return nil, fetchErr
	}

	p.logger.WithError(fetchErr).Warn("Upstream fetch failed, serving archived history")
	return history, nil
}

// Invalidate drops every cached history window. Called after a refresh so
// subsequent requests see the new observation.
func (p *Provider) Invalidate(ctx context.Context) error {
	if err := p.cache.DeletePrefix(ctx, "curve:history"); err != nil {
		return fmt.Errorf("invalidate history cache: %w", err)
	}
	return nil
}
