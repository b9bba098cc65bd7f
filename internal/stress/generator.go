// Package stress derives time-varying stress shocks for principal component
// scores from historical rolling quantiles, and rebuilds stressed yield
// curves through the fitted PCA basis.
package stress

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/curvelab/yieldstress/internal/stats"
)

// ErrInsufficientHistory is returned when the score series is too short to
// compute any rolling difference. It marks a degraded-but-valid state: no
// scenario exists for the period, the fit itself is fine.
var ErrInsufficientHistory = errors.New("insufficient history")

// ShockSeries holds the up and down shocked score paths for one component.
// Both series have length m-unit and are index-aligned to dates [unit, m) of
// the original score series.
type ShockSeries struct {
	Up   []float64 `json:"up"`
	Down []float64 `json:"down"`
}

// Config holds shock model parameters.
type Config struct {
	Unit         int     // shock horizon in trading days
	TrailMonths  int     // rolling window length in units
	QuantileUp   float64 // upper tail, default 0.995
	QuantileDown float64 // lower tail, default 0.005; tails may be decoupled
}

// DefaultConfig returns the reference parameterization: 30-day shocks over a
// 24-month trailing window at the 99.5%/0.5% quantile pair.
func DefaultConfig() Config {
	return Config{
		Unit:         30,
		TrailMonths:  24,
		QuantileUp:   0.995,
		QuantileDown: 0.005,
	}
}

func (c Config) validate() error {
	if c.Unit < 1 {
		return fmt.Errorf("%w: unit %d must be >= 1", stats.ErrInvalidArgument, c.Unit)
	}
	if c.TrailMonths < 1 {
		return fmt.Errorf("%w: trail months %d must be >= 1", stats.ErrInvalidArgument, c.TrailMonths)
	}
	if c.QuantileUp <= 0 || c.QuantileUp >= 1 {
		return fmt.Errorf("%w: up quantile %v outside (0, 1)", stats.ErrInvalidArgument, c.QuantileUp)
	}
	if c.QuantileDown <= 0 || c.QuantileDown >= 1 {
		return fmt.Errorf("%w: down quantile %v outside (0, 1)", stats.ErrInvalidArgument, c.QuantileDown)
	}
	return nil
}

// Generator derives per-component shock series from a score matrix.
// Stateless; one generator may serve concurrent calls.
type Generator struct {
	cfg Config
}

// NewGenerator creates a generator with the given config.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg}, nil
}

// Config returns the generator configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate computes one ShockSeries per retained component.
//
// Per component: unit-day score differences, split into the positive and
// negative parts, rolling quantile of each part over unit*trailMonths days
// with an expanding warm-up (minObs=1), then shocked path = aligned score +
// quantile. Deterministic for identical inputs.
func (g *Generator) Generate(scores *mat.Dense, nComponents int) (map[int]ShockSeries, error) {
	rows, cols := scores.Dims()
	if nComponents < 1 || nComponents > cols {
		return nil, fmt.Errorf("%w: nComponents %d out of range [1, %d]", stats.ErrInvalidArgument, nComponents, cols)
	}
	if rows <= g.cfg.Unit {
		return nil, fmt.Errorf("%w: %d observations, need more than %d for a %d-day difference",
			ErrInsufficientHistory, rows, g.cfg.Unit, g.cfg.Unit)
	}

	width := g.cfg.Unit * g.cfg.TrailMonths
	out := make(map[int]ShockSeries, nComponents)

	for k := 0; k < nComponents; k++ {
		col := make([]float64, rows)
		mat.Col(col, k, scores)

		series, err := g.generateComponent(col, width)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", k, err)
		}
		out[k] = series
	}

	return out, nil
}

// generateComponent runs the shock algorithm over a single score path.
func (g *Generator) generateComponent(col []float64, width int) (ShockSeries, error) {
	unit := g.cfg.Unit
	n := len(col) - unit

	diff := make([]float64, n)
	for t := 0; t < n; t++ {
		diff[t] = col[t+unit] - col[t]
	}

	upDiff := make([]float64, n)
	downDiff := make([]float64, n)
	for t, d := range diff {
		upDiff[t] = math.Max(d, 0)
		downDiff[t] = math.Min(d, 0)
	}

	upQ, err := stats.RollingQuantile(upDiff, width, g.cfg.QuantileUp, 1)
	if err != nil {
		return ShockSeries{}, err
	}
	downQ, err := stats.RollingQuantile(downDiff, width, g.cfg.QuantileDown, 1)
	if err != nil {
		return ShockSeries{}, err
	}

	// Shocks apply to the post-diff-alignment scores col[unit:]
	up := make([]float64, n)
	down := make([]float64, n)
	for t := 0; t < n; t++ {
		up[t] = col[t+unit] + upQ[t]
		down[t] = col[t+unit] + downQ[t]
	}

	return ShockSeries{Up: up, Down: down}, nil
}
