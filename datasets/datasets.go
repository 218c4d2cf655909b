// Package datasets synthesizes the tabular tasks the experiments train on.
// Everything is generated in code from a seed; nothing is read from disk.
package datasets

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Dataset bundles row-major features with their targets: X is (n, features),
// Y is (n, outputs).
type Dataset struct {
	X *mat.Dense
	Y *mat.Dense
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	n, _ := d.X.Dims()
	return n
}

// Regression samples a nonlinear tabular regression task: a sparse linear
// signal over the features plus an interaction of the first two, a sinusoid
// of the first, and Gaussian noise. Targets are (n, 1).
func Regression(n, features int, noise float64, seed int64) (*Dataset, error) {
	if n <= 0 {
		return nil, errors.Errorf("sample count must be positive, got %d", n)
	}
	if features < 2 {
		return nil, errors.Errorf("need at least 2 features, got %d", features)
	}
	if noise < 0 {
		return nil, errors.Errorf("noise level must be non-negative, got %g", noise)
	}

	rng := rand.New(rand.NewSource(seed))
	coef := make([]float64, features)
	for j := range coef {
		// every other coefficient stays zero, keeping the signal sparse
		if j%2 == 0 {
			coef[j] = rng.NormFloat64()
		}
	}

	x := mat.NewDense(n, features, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		target := row[0]*row[1] + math.Sin(row[0])
		for j, c := range coef {
			target += c * row[j]
		}
		y.Set(i, 0, target+noise*rng.NormFloat64())
	}
	return &Dataset{X: x, Y: y}, nil
}

// TwoBlobs samples a two-class task: Gaussian clusters pushed apart by
// margin along the all-ones direction, with a sign flip of the second
// feature inside a central ring to keep the boundary nonlinear. Targets are
// one-hot (n, 2) rows.
func TwoBlobs(n, features int, margin float64, seed int64) (*Dataset, error) {
	if n <= 0 {
		return nil, errors.Errorf("sample count must be positive, got %d", n)
	}
	if features < 2 {
		return nil, errors.Errorf("need at least 2 features, got %d", features)
	}

	rng := rand.New(rand.NewSource(seed))
	shift := margin / (2 * math.Sqrt(float64(features)))

	x := mat.NewDense(n, features, nil)
	y := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		class := i % 2
		sign := 1.0
		if class == 1 {
			sign = -1
		}
		row := x.RawRowView(i)
		norm := 0.0
		for j := range row {
			row[j] = rng.NormFloat64() + sign*shift
			norm += row[j] * row[j]
		}
		if norm < 1 {
			row[1] = -row[1]
		}
		y.Set(i, class, 1)
	}
	return &Dataset{X: x, Y: y}, nil
}

// Split shuffles the dataset and divides it into train and test parts,
// trainFrac in (0, 1) giving the training share.
func Split(d *Dataset, trainFrac float64, seed int64) (*Dataset, *Dataset, error) {
	if trainFrac <= 0 || trainFrac >= 1 {
		return nil, nil, errors.Errorf("train fraction must be in (0, 1), got %g", trainFrac)
	}
	n := d.Len()
	cut := int(math.Round(trainFrac * float64(n)))
	if cut == 0 || cut == n {
		return nil, nil, errors.Errorf("split of %d samples at %g leaves an empty side", n, trainFrac)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return subset(d, perm[:cut]), subset(d, perm[cut:]), nil
}

// Batches shuffles the dataset and chunks it into mini batches. The final
// batch keeps the remainder.
func Batches(d *Dataset, batchSize int, seed int64) ([]*Dataset, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", batchSize)
	}
	n := d.Len()
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	batches := make([]*Dataset, 0, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		batches = append(batches, subset(d, perm[start:end]))
	}
	return batches, nil
}

func subset(d *Dataset, idx []int) *Dataset {
	_, fx := d.X.Dims()
	_, fy := d.Y.Dims()
	x := mat.NewDense(len(idx), fx, nil)
	y := mat.NewDense(len(idx), fy, nil)
	for i, src := range idx {
		copy(x.RawRowView(i), d.X.RawRowView(src))
		copy(y.RawRowView(i), d.Y.RawRowView(src))
	}
	return &Dataset{X: x, Y: y}
}
