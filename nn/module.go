// Package nn holds the growing-concatenation network for tabular data
// together with its structured weight initializers, losses, and the L1/L2
// regularization wrapper. Batches are row-major: an input of n samples with
// d features is an n x d mat.Dense.
package nn

import (
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Module defines a single layer/unit in the network.
type Module interface {
	Forward(x *mat.Dense) (*mat.Dense, error)
	// Backward computes gradients and propagates them.
	// It takes the gradient of the loss with respect to the module's output,
	// accumulates parameter gradients, and returns the gradient of the loss
	// with respect to the module's input.
	Backward(gradOut *mat.Dense) (*mat.Dense, error)
	Params() []*Param
}

// Param is one named trainable tensor with its accumulated gradient. Bias
// parameters carry a ".bias" name suffix; the regularization wrapper keys
// its exclusion rule on that convention.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

// IsBias reports whether the parameter is a bias term, by naming convention.
func (p *Param) IsBias() bool {
	return p.Name == "bias" || strings.HasSuffix(p.Name, ".bias")
}

// ZeroGrad clears accumulated gradients before the next backward pass.
func ZeroGrad(params []*Param) {
	for _, p := range params {
		p.Grad.Zero()
	}
}
