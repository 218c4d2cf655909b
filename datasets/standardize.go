package datasets

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Stats holds the per-column moments a standardization was fit with.
type Stats struct {
	Mean []float64
	Std  []float64
}

// Standardize shifts and scales each feature column to zero mean and unit
// variance in place, returning the fitted stats so the same transform can be
// applied to held-out data. Near-constant columns keep a unit scale instead
// of dividing by zero.
func Standardize(x *mat.Dense) *Stats {
	n, cols := x.Dims()
	s := &Stats{
		Mean: make([]float64, cols),
		Std:  make([]float64, cols),
	}

	col := make([]float64, n)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		s.Mean[j] = stat.Mean(col, nil)
		s.Std[j] = stat.StdDev(col, nil)
		if s.Std[j] < 1e-8 || math.IsNaN(s.Std[j]) {
			s.Std[j] = 1
		}
	}
	s.Apply(x)
	return s
}

// Apply standardizes a batch with previously fitted stats.
func (s *Stats) Apply(x *mat.Dense) error {
	n, cols := x.Dims()
	if cols != len(s.Mean) {
		return errors.Errorf("batch has %d features, stats were fit on %d", cols, len(s.Mean))
	}
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		for j := range row {
			row[j] = (row[j] - s.Mean[j]) / s.Std[j]
		}
	}
	return nil
}
