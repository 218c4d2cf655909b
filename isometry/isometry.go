// Package isometry measures how close a network map is to an isometry at a
// point: the singular value spectrum of its numerical Jacobian. Spectra
// concentrated near 1 mean the map neither collapses nor explodes
// perturbations, the regime the structured initializations are built to
// start training in.
package isometry

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// ForwardFunc maps a row-major batch to a row-major batch. Network Forward
// and Features methods satisfy it directly.
type ForwardFunc func(x *mat.Dense) (*mat.Dense, error)

// Spectrum summarizes the singular values of a Jacobian.
type Spectrum struct {
	Values    []float64 // descending
	Min       float64
	Max       float64
	Mean      float64
	Deviation float64 // mean squared distance from 1
}

func (s *Spectrum) String() string {
	return fmt.Sprintf("min=%.4f max=%.4f mean=%.4f dev=%.6f", s.Min, s.Max, s.Mean, s.Deviation)
}

// Jacobian evaluates the map's Jacobian at the single input point x by
// central differences, one output row per output coordinate.
func Jacobian(f ForwardFunc, x []float64) (*mat.Dense, error) {
	probe := mat.NewDense(1, len(x), append([]float64(nil), x...))
	y, err := f(probe)
	if err != nil {
		return nil, errors.Wrap(err, "probing output width")
	}
	_, out := y.Dims()

	var inner error
	jac := mat.NewDense(out, len(x), nil)
	fd.Jacobian(jac, func(dst, p []float64) {
		if inner != nil {
			return
		}
		xm := mat.NewDense(1, len(p), append([]float64(nil), p...))
		ym, ferr := f(xm)
		if ferr != nil {
			inner = ferr
			return
		}
		for j := range dst {
			dst[j] = ym.At(0, j)
		}
	}, x, &fd.JacobianSettings{
		Formula:    fd.Central,
		Concurrent: false,
	})
	if inner != nil {
		return nil, errors.Wrap(inner, "evaluating map")
	}
	return jac, nil
}

// Measure computes the singular value spectrum of the map's Jacobian at x.
func Measure(f ForwardFunc, x []float64) (*Spectrum, error) {
	jac, err := Jacobian(f, x)
	if err != nil {
		return nil, err
	}

	var svd mat.SVD
	if ok := svd.Factorize(jac, mat.SVDNone); !ok {
		return nil, errors.New("singular value decomposition did not converge")
	}
	return Summarize(svd.Values(nil)), nil
}

// Summarize builds the Spectrum statistics for a set of singular values.
func Summarize(values []float64) *Spectrum {
	s := &Spectrum{
		Values: values,
		Min:    math.Inf(1),
		Max:    math.Inf(-1),
	}
	sum, dev := 0.0, 0.0
	for _, v := range values {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		sum += v
		d := v - 1
		dev += d * d
	}
	if len(values) > 0 {
		s.Mean = sum / float64(len(values))
		s.Deviation = dev / float64(len(values))
	} else {
		s.Min, s.Max = 0, 0
	}
	return s
}
