package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RegularizedLoss composes a base loss with additive L1 and L2 penalties
// over every parameter whose name does not mark it as a bias:
//
//	base(pred, target) + l1*sum(|w|) + l2*sum(w^2)
//
// Both lambdas must be non-negative. The wrapper never mutates parameters;
// Compute is a read-only traversal.
//
// Caveat: the penalties assume a plain stochastic gradient optimizer.
// Adaptive per-parameter optimizers rescale the penalty gradients together
// with the data gradients, so the effective regularization no longer matches
// the written L1/L2 objective. That interaction is a documented property of
// the combination, intentionally left as is; pair with optim.SGD when the
// lambdas are meant literally.
type RegularizedLoss struct {
	Base Loss
	L1   float64
	L2   float64
}

// NewRegularizedLoss wraps base with the given penalty coefficients.
func NewRegularizedLoss(base Loss, l1, l2 float64) *RegularizedLoss {
	return &RegularizedLoss{Base: base, L1: l1, L2: l2}
}

// Compute evaluates the regularized objective for one batch.
func (r *RegularizedLoss) Compute(pred, target *mat.Dense, params []*Param) (float64, error) {
	base, err := r.Base.Forward(pred, target)
	if err != nil {
		return 0, err
	}
	return base + r.Penalty(params), nil
}

// Penalty returns l1*sum(|w|) + l2*sum(w^2) over the non-bias parameters.
// With no non-bias parameters the penalty is zero.
func (r *RegularizedLoss) Penalty(params []*Param) float64 {
	sumAbs, sumSq := 0.0, 0.0
	for _, p := range params {
		if p.IsBias() {
			continue
		}
		data := p.Value.RawMatrix().Data
		sumAbs += floats.Norm(data, 1)
		sumSq += floats.Dot(data, data)
	}
	return r.L1*sumAbs + r.L2*sumSq
}

// PenaltyGrad accumulates the penalty's gradient, l1*sign(w) + 2*l2*w, into
// the non-bias parameter gradients. Call it after the network backward pass
// and before the optimizer step.
func (r *RegularizedLoss) PenaltyGrad(params []*Param) {
	if r.L1 == 0 && r.L2 == 0 {
		return
	}
	for _, p := range params {
		if p.IsBias() {
			continue
		}
		w := p.Value.RawMatrix().Data
		g := p.Grad.RawMatrix().Data
		for i, v := range w {
			if v != 0 {
				g[i] += r.L1 * math.Copysign(1, v)
			}
			g[i] += 2 * r.L2 * v
		}
	}
}

// Backward forwards to the base loss; the penalty terms do not depend on the
// predictions.
func (r *RegularizedLoss) Backward(pred, target *mat.Dense) (*mat.Dense, error) {
	return r.Base.Backward(pred, target)
}

func (r *RegularizedLoss) String() string {
	return fmt.Sprintf("%s+l1(%g)+l2(%g)", r.Base, r.L1, r.L2)
}
