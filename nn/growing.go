package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// GrowingConcatNet is a densely connected feed-forward network for flat
// feature vectors: every middle layer consumes the concatenation of all
// previous layers' outputs, the way DenseNet blocks consume prior feature
// maps. The first layer splits each input feature into a +/- pair
// (ModeSplitsInputs), the middle layers carry that encoding with
// ModeLooksLinear weights, and the readout starts at zero (ModeZero), so a
// fresh network outputs exactly zero for every input while its hidden
// Jacobian stays near the identity on the encoded features instead of
// collapsing or exploding.
//
// Each middle layer's output width equals its input width, so the
// accumulated feature width doubles per middle layer: stage i emits
// inputSize * 2^(i+1) features. Memory therefore grows quadratically with
// depth; a linear-memory variant is a known possible extension, not
// implemented here.
type GrowingConcatNet struct {
	InputSize  int
	NumLayers  int
	OutputSize int

	First   *Linear
	Middles []*Linear
	Last    *Linear

	act Activator

	preacts []*mat.Dense
	acts    []*mat.Dense
}

// NewGrowingConcatNet constructs the network with numLayers middle layers
// and the softplus activation, using the structured initializations: splits
// for the first layer, looks-linear for the middles, zero for the readout.
func NewGrowingConcatNet(inputSize, numLayers, outputSize int) (*GrowingConcatNet, error) {
	return buildGrowingConcatNet(inputSize, numLayers, outputSize,
		ModeSplitsInputs, ModeLooksLinear, ModeZero)
}

// NewGrowingConcatNetBaseline builds the same wiring with every layer drawn
// from the default randomized initialization. It is the comparison point for
// the structured construction: same widths, no identity carry, nonzero
// output from the start.
func NewGrowingConcatNetBaseline(inputSize, numLayers, outputSize int) (*GrowingConcatNet, error) {
	return buildGrowingConcatNet(inputSize, numLayers, outputSize,
		ModeDefault, ModeDefault, ModeDefault)
}

func buildGrowingConcatNet(inputSize, numLayers, outputSize int, firstMode, middleMode, lastMode Mode) (*GrowingConcatNet, error) {
	if numLayers < 0 {
		return nil, &ShapeMismatchError{
			Op:         "growing_concat",
			OutputSize: outputSize,
			InputSize:  inputSize,
			Detail:     "number of middle layers must be non-negative",
		}
	}

	first, err := NewLinear("first", inputSize, 2*inputSize, firstMode)
	if err != nil {
		return nil, err
	}

	width := 2 * inputSize
	middles := make([]*Linear, 0, numLayers)
	for i := 0; i < numLayers; i++ {
		m, err := NewLinear(fmt.Sprintf("middle.%d", i), width, width, middleMode)
		if err != nil {
			return nil, err
		}
		middles = append(middles, m)
		// the new stage's output joins the accumulation, doubling the
		// concatenated width the next layer sees
		width *= 2
	}

	last, err := NewLinear("last", width, outputSize, lastMode)
	if err != nil {
		return nil, err
	}

	return &GrowingConcatNet{
		InputSize:  inputSize,
		NumLayers:  numLayers,
		OutputSize: outputSize,
		First:      first,
		Middles:    middles,
		Last:       last,
		act:        Softplus{},
	}, nil
}

// SetActivation swaps the elementwise nonlinearity. Intended for
// diagnostics; the designed activation is Softplus.
func (g *GrowingConcatNet) SetActivation(a Activator) {
	if a != nil {
		g.act = a
	}
}

// Activation returns the current elementwise nonlinearity.
func (g *GrowingConcatNet) Activation() Activator {
	return g.act
}

// FeatureWidth returns the total concatenated width the readout consumes.
func (g *GrowingConcatNet) FeatureWidth() int {
	return g.Last.InSize()
}

// StageWidths lists the output width of each accumulation stage, the first
// layer followed by the middle layers.
func (g *GrowingConcatNet) StageWidths() []int {
	widths := make([]int, 0, 1+len(g.Middles))
	widths = append(widths, g.First.OutSize())
	for _, m := range g.Middles {
		widths = append(widths, m.OutSize())
	}
	return widths
}

// Forward runs a batch through the network: activation of the first layer,
// then each middle layer applied to the concatenation of every stage so far,
// then the readout over the full accumulation. Stage activations are cached
// for Backward.
func (g *GrowingConcatNet) Forward(x *mat.Dense) (*mat.Dense, error) {
	g.preacts = g.preacts[:0]
	g.acts = g.acts[:0]

	z, err := g.First.Forward(x)
	if err != nil {
		return nil, err
	}
	g.preacts = append(g.preacts, z)
	g.acts = append(g.acts, activate(g.act, z))

	for _, m := range g.Middles {
		c := hconcat(g.acts)
		z, err = m.Forward(c)
		if err != nil {
			return nil, err
		}
		g.preacts = append(g.preacts, z)
		g.acts = append(g.acts, activate(g.act, z))
	}

	return g.Last.Forward(hconcat(g.acts))
}

// Backward propagates dLoss/dOutput for the batch of the most recent
// Forward, accumulating parameter gradients, and returns dLoss/dInput.
// Gradient flow mirrors the forward concatenations: the readout and every
// middle layer scatter their input gradient back across all earlier stages.
func (g *GrowingConcatNet) Backward(gradOut *mat.Dense) (*mat.Dense, error) {
	if len(g.acts) == 0 {
		return nil, fmt.Errorf("growing_concat: backward called before forward")
	}

	dConcat, err := g.Last.Backward(gradOut)
	if err != nil {
		return nil, err
	}

	dActs := make([]*mat.Dense, len(g.acts))
	for s, a := range g.acts {
		n, c := a.Dims()
		dActs[s] = mat.NewDense(n, c, nil)
	}
	splitAdd(dConcat, dActs)

	for i := len(g.Middles) - 1; i >= 0; i-- {
		stage := i + 1
		dz := deactivate(g.act, dActs[stage], g.preacts[stage])
		dc, err := g.Middles[i].Backward(dz)
		if err != nil {
			return nil, err
		}
		splitAdd(dc, dActs[:stage])
	}

	dz := deactivate(g.act, dActs[0], g.preacts[0])
	return g.First.Backward(dz)
}

// Features runs the hidden stages for a batch and returns the concatenated
// stage outputs the readout consumes, one row per sample. This is the
// representation a client keeps local when only the readout is outsourced.
func (g *GrowingConcatNet) Features(x *mat.Dense) (*mat.Dense, error) {
	if _, err := g.Forward(x); err != nil {
		return nil, err
	}
	return hconcat(g.acts), nil
}

// PairDecode collapses a +/- encoded feature block back to its source
// values: output column k is column 2k minus column 2k+1.
func PairDecode(features *mat.Dense) (*mat.Dense, error) {
	n, w := features.Dims()
	if w%2 != 0 {
		return nil, &ShapeMismatchError{
			Op:         "pair_decode",
			OutputSize: n,
			InputSize:  w,
			Detail:     "feature width must be even",
		}
	}
	out := mat.NewDense(n, w/2, nil)
	for i := 0; i < n; i++ {
		for k := 0; k < w/2; k++ {
			out.Set(i, k, features.At(i, 2*k)-features.At(i, 2*k+1))
		}
	}
	return out, nil
}

// Params lists every parameter in construction order: first layer, middle
// layers, readout.
func (g *GrowingConcatNet) Params() []*Param {
	params := make([]*Param, 0, 2*(len(g.Middles)+2))
	params = append(params, g.First.Params()...)
	for _, m := range g.Middles {
		params = append(params, m.Params()...)
	}
	return append(params, g.Last.Params()...)
}

func activate(act Activator, z *mat.Dense) *mat.Dense {
	n, c := z.Dims()
	a := mat.NewDense(n, c, nil)
	a.Apply(act.Activate, z)
	return a
}

// deactivate forms dLoss/dPreactivation from dLoss/dActivation and the
// cached preactivation values.
func deactivate(act Activator, dA, z *mat.Dense) *mat.Dense {
	n, c := dA.Dims()
	dz := mat.NewDense(n, c, nil)
	dz.Apply(func(i, j int, v float64) float64 {
		return v * act.Derivative(i, j, z.At(i, j))
	}, dA)
	return dz
}

// hconcat joins stage outputs along the feature axis.
func hconcat(parts []*mat.Dense) *mat.Dense {
	n, _ := parts[0].Dims()
	total := 0
	for _, p := range parts {
		_, c := p.Dims()
		total += c
	}
	out := mat.NewDense(n, total, nil)
	off := 0
	for _, p := range parts {
		_, c := p.Dims()
		out.Slice(0, n, off, off+c).(*mat.Dense).Copy(p)
		off += c
	}
	return out
}

// splitAdd adds column segments of src into the destination stages, segment
// widths taken from each destination.
func splitAdd(src *mat.Dense, dst []*mat.Dense) {
	off := 0
	for _, d := range dst {
		n, c := d.Dims()
		d.Add(d, src.Slice(0, n, off, off+c))
		off += c
	}
}
