// Package pca fits a principal component basis to a yield-curve history and
// exposes forward (project) and inverse (reconstruct) transforms.
package pca

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateInput is returned when the input matrix cannot support a PCA
// fit: fewer than two observations, or a column with zero variance.
var ErrDegenerateInput = errors.New("degenerate input")

// Model is a fitted PCA basis. Immutable once returned by Fit; safe for
// concurrent readers.
type Model struct {
	mean     []float64
	rotation *mat.Dense // n×n, columns are principal axes, descending variance
	variance []float64  // eigenvalues of the covariance matrix
	ratio    []float64  // variance / total, sums to 1
}

// Fit computes the PCA basis of matrix: column means, centering, SVD of
// the centered matrix, eigenvalues s²/(m-1) sorted descending. Eigenvectors
// are sign-ambiguous, so a deterministic convention is applied: within each
// axis the largest-magnitude loading is made positive. Two fits of the same
// data always produce the same rotation.
func Fit(matrix [][]float64) (*Model, error) {
	m := len(matrix)
	if m < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, got %d", ErrDegenerateInput, m)
	}
	n := len(matrix[0])
	if n == 0 {
		return nil, fmt.Errorf("%w: rows are empty", ErrDegenerateInput)
	}
	for i, row := range matrix {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrDegenerateInput, i, len(row), n)
		}
	}

	mean := columnMeans(matrix)

	// Center the data
	centered := mat.NewDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			centered.Set(i, j, matrix[i][j]-mean[j])
		}
	}

	// A zero-variance column makes the corresponding axis meaningless
	for j := 0; j < n; j++ {
		if colVariance(centered, j) == 0 {
			return nil, fmt.Errorf("%w: column %d has zero variance", ErrDegenerateInput, j)
		}
	}

	// Full SVD: V is n×n orthogonal even when m < n, where the trailing
	// axes span the null space and carry zero variance. Thin SVD would leave
	// those columns missing and the rotation rank-deficient.
	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDFull); !ok {
		return nil, fmt.Errorf("%w: SVD factorization failed", ErrDegenerateInput)
	}

	var v mat.Dense
	svd.VTo(&v)
	sigma := svd.Values(nil)

	rotation := mat.DenseCopyOf(&v)
	variance := make([]float64, n)
	for j := range sigma {
		variance[j] = sigma[j] * sigma[j] / float64(m-1)
	}

	applySignConvention(rotation)

	total := 0.0
	for _, ev := range variance {
		total += ev
	}
	ratio := make([]float64, n)
	for j, ev := range variance {
		ratio[j] = ev / total
	}

	return &Model{
		mean:     mean,
		rotation: rotation,
		variance: variance,
		ratio:    ratio,
	}, nil
}

// applySignConvention flips each column so its largest-magnitude loading is
// positive. SVD column order is already descending by singular value.
func applySignConvention(rotation *mat.Dense) {
	n, cols := rotation.Dims()
	for j := 0; j < cols; j++ {
		maxAbs := 0.0
		sign := 1.0
		for i := 0; i < n; i++ {
			if a := math.Abs(rotation.At(i, j)); a > maxAbs {
				maxAbs = a
				if rotation.At(i, j) < 0 {
					sign = -1
				} else {
					sign = 1
				}
			}
		}
		if sign < 0 {
			for i := 0; i < n; i++ {
				rotation.Set(i, j, -rotation.At(i, j))
			}
		}
	}
}

// Mean returns a copy of the fitted column means.
func (mdl *Model) Mean() []float64 {
	out := make([]float64, len(mdl.mean))
	copy(out, mdl.mean)
	return out
}

// Rotation returns a copy of the n×n orthonormal rotation matrix. Columns are
// principal axes in descending explained-variance order.
func (mdl *Model) Rotation() *mat.Dense {
	return mat.DenseCopyOf(mdl.rotation)
}

// Loadings returns the loadings of principal axis k across maturities.
func (mdl *Model) Loadings(k int) ([]float64, error) {
	n, _ := mdl.rotation.Dims()
	if k < 0 || k >= n {
		return nil, fmt.Errorf("component index %d out of range [0, %d)", k, n)
	}
	out := make([]float64, n)
	mat.Col(out, k, mdl.rotation)
	return out, nil
}

// ExplainedVariance returns a copy of the per-axis variances (eigenvalues).
func (mdl *Model) ExplainedVariance() []float64 {
	out := make([]float64, len(mdl.variance))
	copy(out, mdl.variance)
	return out
}

// ExplainedVarianceRatio returns the per-axis share of total variance.
// Non-increasing, sums to 1.
func (mdl *Model) ExplainedVarianceRatio() []float64 {
	out := make([]float64, len(mdl.ratio))
	copy(out, mdl.ratio)
	return out
}

// NumComponents returns the dimensionality of the basis.
func (mdl *Model) NumComponents() int {
	n, _ := mdl.rotation.Dims()
	return n
}

// Project maps matrix into score space: (X - mean) · rotation.
func (mdl *Model) Project(matrix [][]float64) (*mat.Dense, error) {
	n := len(mdl.mean)
	m := len(matrix)
	if m == 0 {
		return nil, fmt.Errorf("cannot project an empty matrix")
	}

	centered := mat.NewDense(m, n, nil)
	for i, row := range matrix {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d entries, want %d", i, len(row), n)
		}
		for j := 0; j < n; j++ {
			centered.Set(i, j, row[j]-mdl.mean[j])
		}
	}

	scores := mat.NewDense(m, n, nil)
	scores.Mul(centered, mdl.rotation)
	return scores, nil
}

// Reconstruct inverts the projection using only the first nComponents axes:
// Xhat = scores[:, :k] · rotation[:, :k]^T + mean. Truncation is the point:
// the scenario generator rebuilds curves from a small number of axes for a
// lower-dimensional stress picture, and k is always caller-supplied.
func (mdl *Model) Reconstruct(scores mat.Matrix, nComponents int) ([][]float64, error) {
	n := len(mdl.mean)
	rows, cols := scores.Dims()
	if nComponents < 1 || nComponents > n {
		return nil, fmt.Errorf("nComponents %d out of range [1, %d]", nComponents, n)
	}
	if cols < nComponents {
		return nil, fmt.Errorf("scores have %d columns, need at least %d", cols, nComponents)
	}

	truncScores := mat.DenseCopyOf(scores).Slice(0, rows, 0, nComponents)
	truncRotation := mdl.rotation.Slice(0, n, 0, nComponents)

	var xhat mat.Dense
	xhat.Mul(truncScores, truncRotation.T())

	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = xhat.At(i, j) + mdl.mean[j]
		}
		out[i] = row
	}
	return out, nil
}

func columnMeans(matrix [][]float64) []float64 {
	n := len(matrix[0])
	means := make([]float64, n)
	for _, row := range matrix {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(matrix))
	}
	return means
}

func colVariance(m *mat.Dense, j int) float64 {
	rows, _ := m.Dims()
	var sumSq float64
	for i := 0; i < rows; i++ {
		v := m.At(i, j)
		sumSq += v * v
	}
	return sumSq / float64(rows-1)
}
