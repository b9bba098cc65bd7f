// Package stats provides the order-statistic building blocks of the stress
// model: a linearly interpolated quantile and a trailing-window rolling
// quantile with expanding warm-up.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidArgument is returned for malformed inputs: empty sequences,
// probabilities outside [0, 1], non-positive window widths.
var ErrInvalidArgument = errors.New("invalid argument")

// Quantile computes the p-quantile of values by linear interpolation between
// order statistics at the fractional rank p*(len-1). This matches the
// "linear" quantile definition used by most statistical packages.
func Quantile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: empty values", ErrInvalidArgument)
	}
	if p < 0 || p > 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("%w: probability %v outside [0, 1]", ErrInvalidArgument, p)
	}
	if len(values) == 1 {
		return values[0], nil
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1], nil
	}

	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight, nil
}

// RollingQuantile applies Quantile over a trailing window across values,
// producing one output per input position. For position i the window is
// values[max(0, i-width+1) .. i]: the window expands until width observations
// have accumulated and is a fixed trailing window afterwards. Positions with
// fewer than minObs samples are NaN and must be masked by the caller.
//
// The expanding warm-up is deliberate: with minObs=1 every position yields a
// value from whatever history exists, instead of emitting nothing until the
// window fills. Early outputs are noisier; the model prefers that over gaps.
func RollingQuantile(values []float64, width int, p float64, minObs int) ([]float64, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: window width %d must be positive", ErrInvalidArgument, width)
	}
	if minObs < 1 {
		return nil, fmt.Errorf("%w: min observations %d must be >= 1", ErrInvalidArgument, minObs)
	}
	if p < 0 || p > 1 || math.IsNaN(p) {
		return nil, fmt.Errorf("%w: probability %v outside [0, 1]", ErrInvalidArgument, p)
	}

	out := make([]float64, len(values))
	for i := range values {
		start := i - width + 1
		if start < 0 {
			start = 0
		}
		window := values[start : i+1]

		if len(window) < minObs {
			out[i] = math.NaN()
			continue
		}

		q, err := Quantile(window, p)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}

	return out, nil
}
