package pca

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// syntheticCurves builds a plausible yield-curve history: a level factor with
// noise on top of an upward-sloping base curve.
func syntheticCurves(rows, cols int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	matrix := make([][]float64, rows)
	for i := range matrix {
		level := math.Sin(float64(i)*0.05) * 0.8
		row := make([]float64, cols)
		for j := range row {
			base := 1.0 + 2.0*float64(j)/float64(cols-1)
			row[j] = base + level + rng.NormFloat64()*0.02
		}
		matrix[i] = row
	}
	return matrix
}

func TestFitRotationIsOrthonormal(t *testing.T) {
	matrix := syntheticCurves(120, 8, 1)

	model, err := Fit(matrix)
	require.NoError(t, err)

	rotation := model.Rotation()
	n, _ := rotation.Dims()

	var gram mat.Dense
	gram.Mul(rotation.T(), rotation)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, gram.At(i, j), 1e-10,
				"rotation^T · rotation at (%d,%d)", i, j)
		}
	}
}

func TestFitFewerRowsThanColumns(t *testing.T) {
	// 3 observations over 5 tenors: the centered matrix has rank at most 2,
	// yet the rotation must still be a full 5×5 orthonormal basis, with the
	// null-space axes carrying zero variance.
	matrix := syntheticCurves(3, 5, 4)

	model, err := Fit(matrix)
	require.NoError(t, err)

	rotation := model.Rotation()
	n, cols := rotation.Dims()
	require.Equal(t, 5, n)
	require.Equal(t, 5, cols)

	var gram mat.Dense
	gram.Mul(rotation.T(), rotation)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, gram.At(i, j), 1e-10,
				"rotation^T · rotation at (%d,%d)", i, j)
		}
	}

	variance := model.ExplainedVariance()
	require.Len(t, variance, 5)
	assert.Greater(t, variance[0], 0.0)
	// Rank is bounded by m-1 after centering.
	for k := 2; k < 5; k++ {
		assert.InDelta(t, 0.0, variance[k], 1e-12, "null-space axis %d", k)
	}

	sum := 0.0
	for _, r := range model.ExplainedVarianceRatio() {
		sum += r
	}
	assert.InDelta(t, 1.0, sum, 1e-10)

	// The full basis still reproduces the observations exactly.
	scores, err := model.Project(matrix)
	require.NoError(t, err)
	rebuilt, err := model.Reconstruct(scores, 5)
	require.NoError(t, err)
	for i := range matrix {
		for j := range matrix[i] {
			assert.InDelta(t, matrix[i][j], rebuilt[i][j], 1e-9)
		}
	}
}

func TestFitVarianceRatioOrderedAndSumsToOne(t *testing.T) {
	matrix := syntheticCurves(120, 8, 2)

	model, err := Fit(matrix)
	require.NoError(t, err)

	ratio := model.ExplainedVarianceRatio()
	require.Len(t, ratio, 8)

	sum := 0.0
	for i, r := range ratio {
		sum += r
		if i > 0 {
			assert.LessOrEqual(t, ratio[i], ratio[i-1], "ratio must be non-increasing")
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-10)
}

func TestProjectReconstructRoundTrip(t *testing.T) {
	matrix := syntheticCurves(100, 6, 3)

	model, err := Fit(matrix)
	require.NoError(t, err)

	scores, err := model.Project(matrix)
	require.NoError(t, err)

	// Full-rank reconstruction recovers the input
	recon, err := model.Reconstruct(scores, 6)
	require.NoError(t, err)

	for i := range matrix {
		for j := range matrix[i] {
			assert.InDelta(t, matrix[i][j], recon[i][j], 1e-9,
				"round trip at (%d,%d)", i, j)
		}
	}
}

func TestReconstructTruncatesComponents(t *testing.T) {
	matrix := syntheticCurves(100, 6, 4)

	model, err := Fit(matrix)
	require.NoError(t, err)

	scores, err := model.Project(matrix)
	require.NoError(t, err)

	full, err := model.Reconstruct(scores, 6)
	require.NoError(t, err)
	truncated, err := model.Reconstruct(scores, 1)
	require.NoError(t, err)

	// Truncated reconstruction differs from the full one but keeps dimensions
	require.Len(t, truncated, len(full))
	require.Len(t, truncated[0], len(full[0]))

	var maxDiff float64
	for i := range full {
		for j := range full[i] {
			if d := math.Abs(full[i][j] - truncated[i][j]); d > maxDiff {
				maxDiff = d
			}
		}
	}
	assert.Greater(t, maxDiff, 0.0, "dropping axes must lose information")
}

func TestFitSignConventionIsDeterministic(t *testing.T) {
	matrix := syntheticCurves(100, 6, 5)

	first, err := Fit(matrix)
	require.NoError(t, err)
	second, err := Fit(matrix)
	require.NoError(t, err)

	r1 := first.Rotation()
	r2 := second.Rotation()
	n, _ := r1.Dims()

	for j := 0; j < n; j++ {
		maxAbs := 0.0
		maxVal := 0.0
		for i := 0; i < n; i++ {
			assert.Equal(t, r1.At(i, j), r2.At(i, j), "refit changed rotation at (%d,%d)", i, j)
			if a := math.Abs(r1.At(i, j)); a > maxAbs {
				maxAbs = a
				maxVal = r1.At(i, j)
			}
		}
		assert.Positive(t, maxVal, "largest-magnitude loading of axis %d must be positive", j)
	}
}

func TestFitDegenerateInputs(t *testing.T) {
	tests := []struct {
		name   string
		matrix [][]float64
	}{
		{
			name:   "no rows",
			matrix: nil,
		},
		{
			name:   "single row",
			matrix: [][]float64{{1, 2, 3}},
		},
		{
			name: "zero variance column",
			matrix: [][]float64{
				{1.0, 5.0, 2.0},
				{1.0, 5.1, 2.2},
				{1.0, 4.9, 2.1},
			},
		},
		{
			name: "ragged rows",
			matrix: [][]float64{
				{1.0, 2.0},
				{1.1, 2.1, 3.0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(tt.matrix)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDegenerateInput)
		})
	}
}

func TestProjectMismatchedRowLength(t *testing.T) {
	matrix := syntheticCurves(50, 4, 6)
	model, err := Fit(matrix)
	require.NoError(t, err)

	_, err = model.Project([][]float64{{1, 2, 3}})
	require.Error(t, err)
}

func TestReconstructRejectsBadComponentCount(t *testing.T) {
	matrix := syntheticCurves(50, 4, 7)
	model, err := Fit(matrix)
	require.NoError(t, err)

	scores, err := model.Project(matrix)
	require.NoError(t, err)

	_, err = model.Reconstruct(scores, 0)
	require.Error(t, err)
	_, err = model.Reconstruct(scores, 5)
	require.Error(t, err)
}

func TestLoadings(t *testing.T) {
	matrix := syntheticCurves(60, 5, 8)
	model, err := Fit(matrix)
	require.NoError(t, err)

	loadings, err := model.Loadings(0)
	require.NoError(t, err)
	require.Len(t, loadings, 5)

	_, err = model.Loadings(5)
	require.Error(t, err)
	_, err = model.Loadings(-1)
	require.Error(t, err)
}
