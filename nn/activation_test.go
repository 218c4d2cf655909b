package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The split +/- encoding is decodable when activation(v) - activation(-v)
// returns the original value. Exact for ReLU, tight for softplus.
func TestPairedDecodeReconstruction(t *testing.T) {
	values := []float64{-25, -3.2, -1, -0.01, 0, 0.01, 0.5, 2, 7.9, 25}

	relu := ReLU{}
	for _, v := range values {
		got := relu.Activate(0, 0, v) - relu.Activate(0, 0, -v)
		assert.Equal(t, v, got, "relu decode of %g", v)
	}

	sp := Softplus{}
	for _, v := range values {
		got := sp.Activate(0, 0, v) - sp.Activate(0, 0, -v)
		assert.InDelta(t, v, got, 1e-9, "softplus decode of %g", v)
	}
}

func TestSoftplusShape(t *testing.T) {
	sp := Softplus{}

	// smooth rectifier: positive everywhere, increasing, above max(0, v)
	prev := sp.Activate(0, 0, -40)
	for v := -39.0; v <= 40; v++ {
		cur := sp.Activate(0, 0, v)
		assert.Greater(t, cur, prev, "softplus must increase at %g", v)
		assert.GreaterOrEqual(t, cur, math.Max(0, v))
		prev = cur
	}

	// large arguments approach the identity
	assert.InDelta(t, 100.0, sp.Activate(0, 0, 100), 1e-9)
	assert.InDelta(t, 0.0, sp.Activate(0, 0, -100), 1e-9)
}

// The derivative is a logistic sigmoid, so the slopes at v and -v sum to 1.
// This is what keeps the paired encoding's Jacobian at the identity.
func TestSoftplusDerivativePairsSumToOne(t *testing.T) {
	sp := Softplus{}
	for _, v := range []float64{0, 0.3, 1, 4.5, 20} {
		sum := sp.Derivative(0, 0, v) + sp.Derivative(0, 0, -v)
		assert.InDelta(t, 1.0, sum, 1e-12, "at %g", v)
	}

	// central difference agreement
	h := 1e-6
	for _, v := range []float64{-2, -0.5, 0.25, 3} {
		numeric := (sp.Activate(0, 0, v+h) - sp.Activate(0, 0, v-h)) / (2 * h)
		assert.InDelta(t, numeric, sp.Derivative(0, 0, v), 1e-6, "at %g", v)
	}
}

func TestActivatorLookup(t *testing.T) {
	for _, name := range []string{"softplus", "relu", "identity"} {
		act, ok := ActivatorLookup[name]
		require.True(t, ok, name)
		assert.Equal(t, name, act.String())
	}
	_, ok := ActivatorLookup["gelu"]
	assert.False(t, ok)
}
