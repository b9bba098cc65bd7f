package stress

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/curvelab/yieldstress/internal/pca"
	"github.com/curvelab/yieldstress/internal/stats"
)

// Direction selects which tail of the shock distribution to apply.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Scenario is the consumer-facing output for one component at one date: the
// curve rebuilt from unshocked scores next to its up- and down-stressed
// counterparts.
type Scenario struct {
	Actual []float64 `json:"actual"`
	Up     []float64 `json:"up"`
	Down   []float64 `json:"down"`
}

// Reconstructor substitutes shocked scores back through a PCA basis.
// The reconstruction uses a fixed small number of components, independent of
// how many were retained for scoring; the reference model uses 4.
type Reconstructor struct {
	components int
}

// NewReconstructor creates a reconstructor that rebuilds curves from the
// first nComponents axes.
func NewReconstructor(nComponents int) (*Reconstructor, error) {
	if nComponents < 1 {
		return nil, fmt.Errorf("%w: reconstruction components %d must be >= 1", stats.ErrInvalidArgument, nComponents)
	}
	return &Reconstructor{components: nComponents}, nil
}

// Components returns the number of axes used for reconstruction.
func (r *Reconstructor) Components() int {
	return r.components
}

// StressedCurve rebuilds the yield curve at asOfIndex with one component's
// score replaced by its shocked value. asOfIndex indexes the shock series,
// i.e. position i corresponds to score row i+unit.
func (r *Reconstructor) StressedCurve(
	model *pca.Model,
	scores *mat.Dense,
	shocks map[int]ShockSeries,
	component int,
	direction Direction,
	asOfIndex int,
	unit int,
) ([]float64, error) {
	series, ok := shocks[component]
	if !ok {
		return nil, fmt.Errorf("no shock series for component %d", component)
	}
	if asOfIndex < 0 || asOfIndex >= len(series.Up) {
		return nil, fmt.Errorf("asOfIndex %d out of range [0, %d)", asOfIndex, len(series.Up))
	}

	var shocked float64
	switch direction {
	case DirectionUp:
		shocked = series.Up[asOfIndex]
	case DirectionDown:
		shocked = series.Down[asOfIndex]
	default:
		return nil, fmt.Errorf("unknown direction %q", direction)
	}

	row, err := scoreRow(scores, asOfIndex+unit)
	if err != nil {
		return nil, err
	}
	if component < 0 || component >= len(row) {
		return nil, fmt.Errorf("component index %d out of range [0, %d)", component, len(row))
	}
	row[component] = shocked

	return r.reconstructRow(model, row)
}

// LatestScenarios returns, for the most recent date, the unshocked curve next
// to the up- and down-stressed curves of every component with a shock series.
func (r *Reconstructor) LatestScenarios(
	model *pca.Model,
	scores *mat.Dense,
	shocks map[int]ShockSeries,
	unit int,
) (map[int]Scenario, error) {
	rows, _ := scores.Dims()
	if rows <= unit {
		return nil, fmt.Errorf("%w: %d score rows with unit %d", ErrInsufficientHistory, rows, unit)
	}
	last := rows - unit - 1

	baseRow, err := scoreRow(scores, rows-1)
	if err != nil {
		return nil, err
	}
	actual, err := r.reconstructRow(model, baseRow)
	if err != nil {
		return nil, err
	}

	out := make(map[int]Scenario, len(shocks))
	for component := range shocks {
		up, err := r.StressedCurve(model, scores, shocks, component, DirectionUp, last, unit)
		if err != nil {
			return nil, fmt.Errorf("component %d up: %w", component, err)
		}
		down, err := r.StressedCurve(model, scores, shocks, component, DirectionDown, last, unit)
		if err != nil {
			return nil, fmt.Errorf("component %d down: %w", component, err)
		}
		out[component] = Scenario{Actual: actual, Up: up, Down: down}
	}

	return out, nil
}

// reconstructRow inverse-transforms a single score row.
func (r *Reconstructor) reconstructRow(model *pca.Model, row []float64) ([]float64, error) {
	scoreMat := mat.NewDense(1, len(row), row)
	curves, err := model.Reconstruct(scoreMat, r.components)
	if err != nil {
		return nil, err
	}
	return curves[0], nil
}

func scoreRow(scores *mat.Dense, i int) ([]float64, error) {
	rows, cols := scores.Dims()
	if i < 0 || i >= rows {
		return nil, fmt.Errorf("score row %d out of range [0, %d)", i, rows)
	}
	row := make([]float64, cols)
	mat.Row(row, i, scores)
	return row, nil
}
