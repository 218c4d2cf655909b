package nn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear is a dense affine transform y = x W^T + b over row-major batches.
// The weight is (out x in), the bias a (1 x out) row broadcast over the
// batch. Shapes are fixed at construction; values move only under training.
type Linear struct {
	Name string
	W    *Param
	B    *Param

	lastInput *mat.Dense
}

// NewLinear builds a layer with weights from the requested initialization
// mode and a zero bias.
func NewLinear(name string, inSize, outSize int, mode Mode) (*Linear, error) {
	w, b, err := Build(outSize, inSize, mode)
	if err != nil {
		return nil, err
	}
	return &Linear{
		Name: name,
		W:    &Param{Name: name + ".weight", Value: w, Grad: mat.NewDense(outSize, inSize, nil)},
		B:    &Param{Name: name + ".bias", Value: b, Grad: mat.NewDense(1, outSize, nil)},
	}, nil
}

// InSize returns the declared input feature width.
func (l *Linear) InSize() int {
	_, in := l.W.Value.Dims()
	return in
}

// OutSize returns the output feature width.
func (l *Linear) OutSize() int {
	out, _ := l.W.Value.Dims()
	return out
}

// Forward applies the affine transform to a batch of n rows and caches the
// input for the next Backward call.
func (l *Linear) Forward(x *mat.Dense) (*mat.Dense, error) {
	n, d := x.Dims()
	out, in := l.W.Value.Dims()
	if d != in {
		return nil, &ShapeMismatchError{
			Op:         l.Name,
			OutputSize: out,
			InputSize:  in,
			Detail:     fmt.Sprintf("input has %d features, want %d", d, in),
		}
	}

	y := mat.NewDense(n, out, nil)
	y.Mul(x, l.W.Value.T())
	bias := l.B.Value.RawRowView(0)
	for i := 0; i < n; i++ {
		floats.Add(y.RawRowView(i), bias)
	}

	l.lastInput = x
	return y, nil
}

// Backward takes dLoss/dOutput for the cached batch, accumulates dLoss/dW
// and dLoss/dB into the parameter gradients, and returns dLoss/dInput.
// Gradients accumulate until ZeroGrad; any batch averaging belongs to the
// loss, not the layer.
func (l *Linear) Backward(gradOut *mat.Dense) (*mat.Dense, error) {
	if l.lastInput == nil {
		return nil, fmt.Errorf("%s: backward called before forward", l.Name)
	}
	n, d := gradOut.Dims()
	out, in := l.W.Value.Dims()
	cached, _ := l.lastInput.Dims()
	if d != out || n != cached {
		return nil, &ShapeMismatchError{
			Op:         l.Name,
			OutputSize: out,
			InputSize:  in,
			Detail:     fmt.Sprintf("gradient is (%d, %d), want (%d, %d)", n, d, cached, out),
		}
	}

	var gw mat.Dense
	gw.Mul(gradOut.T(), l.lastInput)
	l.W.Grad.Add(l.W.Grad, &gw)

	gb := l.B.Grad.RawRowView(0)
	for i := 0; i < n; i++ {
		floats.Add(gb, gradOut.RawRowView(i))
	}

	gi := mat.NewDense(n, in, nil)
	gi.Mul(gradOut, l.W.Value)
	return gi, nil
}

// Params lists the weight then the bias.
func (l *Linear) Params() []*Param {
	return []*Param{l.W, l.B}
}
