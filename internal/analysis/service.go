// Package analysis orchestrates the full pipeline: curve acquisition, PCA
// fit, stress shock generation, and scenario reconstruction.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/curvelab/yieldstress/internal/curve"
	"github.com/curvelab/yieldstress/internal/pca"
	"github.com/curvelab/yieldstress/internal/stats"
	"github.com/curvelab/yieldstress/internal/stress"
	"github.com/curvelab/yieldstress/pkg/config"
	"github.com/curvelab/yieldstress/pkg/logger"
)

// ErrNoData is returned when the requested period has no observations.
var ErrNoData = errors.New("no data available for the selected period")

// CurveSource supplies the yield-curve history for a period.
// Implemented by curve.Provider.
type CurveSource interface {
	History(ctx context.Context, from, to time.Time) (*curve.History, error)
}

// Result is the full analysis output handed to presentation and export
// collaborators.
type Result struct {
	Observations int          `json:"observations"`
	Dates        []time.Time  `json:"dates"`
	Maturities   []string     `json:"maturities"`
	LatestDate   time.Time    `json:"latest_date"`
	LatestCurve  []float64    `json:"latest_curve"`

	MeanCurve          []float64   `json:"mean_curve"`
	Loadings           [][]float64 `json:"loadings"`            // [component][maturity]
	ExplainedVariance  []float64   `json:"explained_variance"`  // ratio per retained component
	CumulativeVariance []float64   `json:"cumulative_variance"`

	Scores [][]float64 `json:"scores"` // [component][date]

	// Stress outputs. Empty with StressAvailable=false when the period is
	// too short for any rolling difference; that is a valid degraded result.
	StressAvailable bool                       `json:"stress_available"`
	ShockDates      []time.Time                `json:"shock_dates,omitempty"`
	Shocks          map[int]stress.ShockSeries `json:"shocks,omitempty"`
	Scenarios       map[int]stress.Scenario    `json:"scenarios,omitempty"`
}

// Service runs the analysis pipeline. Stateless across calls; safe for
// concurrent use.
type Service struct {
	source CurveSource
	cfg    config.AnalysisConfig
	logger *logger.Logger
}

// NewService creates an analysis service.
func NewService(source CurveSource, cfg config.AnalysisConfig, log *logger.Logger) *Service {
	return &Service{
		source: source,
		cfg:    cfg,
		logger: log,
	}
}

// Run executes the pipeline over [from, to].
func (s *Service) Run(ctx context.Context, from, to time.Time) (*Result, error) {
	if err := s.validateRange(from, to); err != nil {
		return nil, err
	}

	history, err := s.source.History(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load curve history: %w", err)
	}
	if history.Len() == 0 {
		return nil, ErrNoData
	}
	if err := history.Validate(); err != nil {
		return nil, fmt.Errorf("curve history invalid: %w", err)
	}
	if history.Len() < s.cfg.MinObservations {
		return nil, fmt.Errorf("%w: %d observations, need at least %d",
			stress.ErrInsufficientHistory, history.Len(), s.cfg.MinObservations)
	}

	s.logger.WithFields(map[string]interface{}{
		"observations": history.Len(),
		"from":         from.Format("2006-01-02"),
		"to":           to.Format("2006-01-02"),
	}).Info("Running PCA stress analysis")

	nComponents := s.cfg.NComponents
	if nComponents > len(curve.Maturities) {
		nComponents = len(curve.Maturities)
	}

	model, err := pca.Fit(history.Rates)
	if err != nil {
		return nil, fmt.Errorf("fit PCA model: %w", err)
	}

	scores, err := model.Project(history.Rates)
	if err != nil {
		return nil, fmt.Errorf("project scores: %w", err)
	}

	result, err := s.buildBaseResult(history, model, scores, nComponents)
	if err != nil {
		return nil, err
	}

	generator, err := stress.NewGenerator(stress.Config{
		Unit:         s.cfg.UnitDays,
		TrailMonths:  s.cfg.TrailMonths,
		QuantileUp:   s.cfg.QuantileUp,
		QuantileDown: s.cfg.QuantileDown,
	})
	if err != nil {
		return nil, fmt.Errorf("configure shock generator: %w", err)
	}

	shocks, err := generator.Generate(scores, nComponents)
	if errors.Is(err, stress.ErrInsufficientHistory) {
		// Not enough history for a single rolling difference: the PCA part
		// of the result stands on its own.
		s.logger.WithError(err).Warn("No stress scenarios for this period")
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("generate shocks: %w", err)
	}

	reconComponents := s.cfg.ReconstructionComponents
	if reconComponents > nComponents {
		reconComponents = nComponents
	}
	reconstructor, err := stress.NewReconstructor(reconComponents)
	if err != nil {
		return nil, fmt.Errorf("configure reconstructor: %w", err)
	}

	scenarios, err := reconstructor.LatestScenarios(model, scores, shocks, s.cfg.UnitDays)
	if err != nil {
		return nil, fmt.Errorf("reconstruct scenarios: %w", err)
	}

	result.StressAvailable = true
	result.ShockDates = history.Dates[s.cfg.UnitDays:]
	result.Shocks = shocks
	result.Scenarios = scenarios

	s.logger.WithFields(map[string]interface{}{
		"components":  nComponents,
		"shock_dates": len(result.ShockDates),
	}).Info("Analysis completed")

	return result, nil
}

// validateRange rejects inverted or oversized request windows.
func (s *Service) validateRange(from, to time.Time) error {
	if !from.Before(to) {
		return fmt.Errorf("%w: start date must be before end date", stats.ErrInvalidArgument)
	}
	if s.cfg.MaxRangeDays > 0 {
		if days := int(to.Sub(from).Hours() / 24); days > s.cfg.MaxRangeDays {
			return fmt.Errorf("%w: range of %d days exceeds maximum %d",
				stats.ErrInvalidArgument, days, s.cfg.MaxRangeDays)
		}
	}
	return nil
}

// buildBaseResult assembles the PCA half of the result.
func (s *Service) buildBaseResult(
	history *curve.History,
	model *pca.Model,
	scores *mat.Dense,
	nComponents int,
) (*Result, error) {
	rows, _ := scores.Dims()
	latestDate, latestCurve, err := history.Latest()
	if err != nil {
		return nil, err
	}

	ratio := model.ExplainedVarianceRatio()
	explained := make([]float64, nComponents)
	cumulative := make([]float64, nComponents)
	running := 0.0
	for k := 0; k < nComponents; k++ {
		explained[k] = ratio[k]
		running += ratio[k]
		cumulative[k] = running
	}

	loadings := make([][]float64, nComponents)
	for k := 0; k < nComponents; k++ {
		l, err := model.Loadings(k)
		if err != nil {
			return nil, err
		}
		loadings[k] = l
	}

	scoreSeries := make([][]float64, nComponents)
	for k := 0; k < nComponents; k++ {
		series := make([]float64, rows)
		for t := 0; t < rows; t++ {
			series[t] = scores.At(t, k)
		}
		scoreSeries[k] = series
	}

	return &Result{
		Observations:       history.Len(),
		Dates:              history.Dates,
		Maturities:         curve.Maturities,
		LatestDate:         latestDate,
		LatestCurve:        latestCurve,
		MeanCurve:          model.Mean(),
		Loadings:           loadings,
		ExplainedVariance:  explained,
		CumulativeVariance: cumulative,
		Scores:             scoreSeries,
	}, nil
}
