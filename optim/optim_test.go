package optim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/nn"
)

func quadParam(values []float64) *nn.Param {
	return &nn.Param{
		Name:  "w.weight",
		Value: mat.NewDense(1, len(values), append([]float64(nil), values...)),
		Grad:  mat.NewDense(1, len(values), nil),
	}
}

// fillQuadGrad sets grad = 2w, the gradient of ||w||^2.
func fillQuadGrad(p *nn.Param) {
	w := p.Value.RawMatrix().Data
	g := p.Grad.RawMatrix().Data
	for i := range g {
		g[i] = 2 * w[i]
	}
}

func TestSGDQuadraticConverges(t *testing.T) {
	p := quadParam([]float64{5, -3, 0.5})
	opt := NewSGD(0.1, 0)

	for i := 0; i < 200; i++ {
		fillQuadGrad(p)
		opt.Step([]*nn.Param{p})
	}
	assert.Less(t, floats.Norm(p.Value.RawMatrix().Data, 2), 1e-6)
}

func TestSGDMomentumHandComputed(t *testing.T) {
	p := quadParam([]float64{1})
	opt := NewSGD(0.1, 0.9)

	// constant gradient of 1: velocities 1 then 1.9
	p.Grad.Set(0, 0, 1)
	opt.Step([]*nn.Param{p})
	assert.InDelta(t, 0.9, p.Value.At(0, 0), 1e-12)

	p.Grad.Set(0, 0, 1)
	opt.Step([]*nn.Param{p})
	assert.InDelta(t, 0.71, p.Value.At(0, 0), 1e-12)
}

func TestAdamQuadraticConverges(t *testing.T) {
	p := quadParam([]float64{4, -2, 1})
	opt := NewAdam(0.05)

	for i := 0; i < 600; i++ {
		fillQuadGrad(p)
		opt.Step([]*nn.Param{p})
	}
	assert.Less(t, floats.Norm(p.Value.RawMatrix().Data, 2), 1e-3)
}

// Adam's first step has magnitude close to the learning rate regardless of
// the gradient's scale.
func TestAdamFirstStepScaleInvariant(t *testing.T) {
	small := quadParam([]float64{3})
	big := quadParam([]float64{3})
	optSmall := NewAdam(0.01)
	optBig := NewAdam(0.01)

	small.Grad.Set(0, 0, 1e-3)
	optSmall.Step([]*nn.Param{small})
	big.Grad.Set(0, 0, 1e3)
	optBig.Step([]*nn.Param{big})

	assert.InDelta(t, 3-0.01, small.Value.At(0, 0), 1e-6)
	assert.InDelta(t, 3-0.01, big.Value.At(0, 0), 1e-6)
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"sgd", "momentum", "adam"} {
		opt, err := Lookup(name, 0.01)
		require.NoError(t, err)
		require.NotNil(t, opt)
	}
	_, err := Lookup("lbfgs", 0.01)
	require.Error(t, err)
}

// End-to-end smoke: a growing net under SGD with a small L2 penalty fits a
// linear target far better than its zero-output start.
func TestTrainingLoopReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	net, err := nn.NewGrowingConcatNet(2, 1, 1)
	require.NoError(t, err)

	n := 32
	x := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		x.Set(i, 0, a)
		x.Set(i, 1, b)
		y.Set(i, 0, 1.5*a-0.7*b)
	}

	loss := nn.NewRegularizedLoss(nn.MSELoss{}, 0, 1e-5)
	opt := NewSGD(0.02, 0.9)
	params := net.Params()

	pred, err := net.Forward(x)
	require.NoError(t, err)
	initial, err := loss.Compute(pred, y, params)
	require.NoError(t, err)

	final := initial
	for epoch := 0; epoch < 200; epoch++ {
		pred, err = net.Forward(x)
		require.NoError(t, err)
		final, err = loss.Compute(pred, y, params)
		require.NoError(t, err)

		grad, gerr := loss.Backward(pred, y)
		require.NoError(t, gerr)
		nn.ZeroGrad(params)
		_, gerr = net.Backward(grad)
		require.NoError(t, gerr)
		loss.PenaltyGrad(params)
		opt.Step(params)
	}

	assert.Less(t, final, initial/10, "initial %g final %g", initial, final)
}
