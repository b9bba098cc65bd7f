// Package jobs holds the scheduled job implementations.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/curvelab/yieldstress/internal/api"
	"github.com/curvelab/yieldstress/internal/curve"
	"github.com/curvelab/yieldstress/pkg/logger"
)

// refreshLookbackDays covers late ECB revisions of already-published dates.
const refreshLookbackDays = 10

// CurveRefreshJob pulls the most recent curve publications, archives them,
// drops stale cache entries, and notifies WebSocket subscribers.
type CurveRefreshJob struct {
	fetcher  curve.Fetcher
	repo     *curve.Repository // nil when the database is disabled
	provider *curve.Provider
	hub      *api.Hub // nil when running without the API server
	logger   *logger.Logger
	schedule string
}

// NewCurveRefreshJob creates the daily refresh job.
func NewCurveRefreshJob(
	fetcher curve.Fetcher,
	repo *curve.Repository,
	provider *curve.Provider,
	hub *api.Hub,
	log *logger.Logger,
	schedule string,
) *CurveRefreshJob {
	if schedule == "" {
		// ECB publishes yield curves in the afternoon CET; 18:00 UTC is
		// safely after.
		schedule = "0 0 18 * * 1-5"
	}
	return &CurveRefreshJob{
		fetcher:  fetcher,
		repo:     repo,
		provider: provider,
		hub:      hub,
		logger:   log,
		schedule: schedule,
	}
}

// Name implements scheduler.Job.
func (j *CurveRefreshJob) Name() string {
	return "curve_refresh"
}

// Schedule implements scheduler.Job.
func (j *CurveRefreshJob) Schedule() string {
	return j.schedule
}

// Run implements scheduler.Job.
func (j *CurveRefreshJob) Run(ctx context.Context) error {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -refreshLookbackDays)

	history, err := j.fetcher.FetchHistory(ctx, from, to)
	if err != nil {
		return fmt.Errorf("fetch recent curves: %w", err)
	}
	if history.Len() == 0 {
		j.logger.Info("No new curve publications")
		return nil
	}

	if j.repo != nil {
		if err := j.repo.Store(ctx, history); err != nil {
			return fmt.Errorf("archive curves: %w", err)
		}
	}

	if err := j.provider.Invalidate(ctx); err != nil {
		j.logger.WithError(err).Warn("Failed to invalidate curve cache")
	}

	latest, _, err := history.Latest()
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"observations": history.Len(),
		"latest":       latest.Format("2006-01-02"),
	}).Info("Curve refresh completed")

	if j.hub != nil {
		j.hub.Broadcast(api.RefreshEvent{
			Type:       "curve_refresh",
			LatestDate: latest,
			At:         time.Now().UTC(),
		})
	}

	return nil
}
