//go:build !exclude_he
// +build !exclude_he

package private

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/nn"
)

// Key generation at ring degree 2^14 is slow, so every test shares one
// context sized for the widest readout exercised here.
var (
	ctxOnce sync.Once
	heCtx   *HeContext
	ctxErr  error
)

func testContext(t *testing.T) *HeContext {
	t.Helper()
	ctxOnce.Do(func() {
		heCtx, ctxErr = NewHeContext(24, 3)
	})
	require.NoError(t, ctxErr)
	return heCtx
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ctx := testContext(t)

	rng := rand.New(rand.NewSource(11))
	values := make([]float64, 24)
	for i := range values {
		values[i] = rng.NormFloat64()
	}

	ct, err := ctx.EncryptVector(values)
	require.NoError(t, err)

	got, err := ctx.DecryptSlots(ct, len(values))
	require.NoError(t, err)
	for i := range values {
		assert.InDelta(t, values[i], got[i], 1e-6, "slot %d", i)
	}

	// Slots past the encoded vector decrypt to zero.
	tail, err := ctx.DecryptSlots(ct, 40)
	require.NoError(t, err)
	for i := 24; i < 40; i++ {
		assert.InDelta(t, 0, tail[i], 1e-6, "slot %d", i)
	}
}

func TestEncryptedReadoutMatchesPlain(t *testing.T) {
	ctx := testContext(t)

	rng := rand.New(rand.NewSource(23))
	const width, outputs = 24, 3

	weight := mat.NewDense(outputs, width, nil)
	for i := 0; i < outputs; i++ {
		for j := 0; j < width; j++ {
			weight.Set(i, j, rng.NormFloat64())
		}
	}
	bias := mat.NewDense(1, outputs, []float64{0.5, -1.25, 2})

	features := make([]float64, width)
	for i := range features {
		features[i] = rng.NormFloat64()
	}

	readout, err := NewEncryptedReadout(weight, bias, ctx.ServerView())
	require.NoError(t, err)
	assert.Equal(t, width, readout.Width())
	assert.Equal(t, outputs, readout.Outputs())

	ct, err := ctx.EncryptVector(features)
	require.NoError(t, err)

	scored, err := readout.Score(ct)
	require.NoError(t, err)

	got, err := ctx.DecryptSlots(scored, outputs)
	require.NoError(t, err)

	for j := 0; j < outputs; j++ {
		want := bias.At(0, j)
		for i := 0; i < width; i++ {
			want += weight.At(j, i) * features[i]
		}
		assert.InDelta(t, want, got[j], 1e-2, "output %d", j)
	}
}

func TestEncryptedReadoutSingleOutput(t *testing.T) {
	ctx := testContext(t)

	rng := rand.New(rand.NewSource(31))
	const width = 24

	weight := mat.NewDense(1, width, nil)
	for j := 0; j < width; j++ {
		weight.Set(0, j, rng.NormFloat64())
	}
	bias := mat.NewDense(1, 1, []float64{-0.75})

	features := make([]float64, width)
	for i := range features {
		features[i] = rng.NormFloat64()
	}

	readout, err := NewEncryptedReadout(weight, bias, ctx.ServerView())
	require.NoError(t, err)

	ct, err := ctx.EncryptVector(features)
	require.NoError(t, err)
	scored, err := readout.Score(ct)
	require.NoError(t, err)
	got, err := ctx.DecryptSlots(scored, 1)
	require.NoError(t, err)

	want := bias.At(0, 0)
	for i := 0; i < width; i++ {
		want += weight.At(0, i) * features[i]
	}
	assert.InDelta(t, want, got[0], 1e-2)
}

func TestEncryptedReadoutMatchesNetwork(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network scoring test in short mode")
	}
	ctx := testContext(t)

	net, err := nn.NewGrowingConcatNet(2, 1, 2)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(41))
	for _, p := range net.Params() {
		raw := p.Value.RawMatrix().Data
		for i := range raw {
			raw[i] = rng.NormFloat64() * 0.5
		}
	}

	x := mat.NewDense(1, 2, []float64{0.3, -1.1})
	want, err := net.Forward(x)
	require.NoError(t, err)
	features, err := net.Features(x)
	require.NoError(t, err)

	readout, err := NewEncryptedReadout(net.Last.W.Value, net.Last.B.Value, ctx.ServerView())
	require.NoError(t, err)

	ct, err := ctx.EncryptVector(features.RawRowView(0))
	require.NoError(t, err)
	scored, err := readout.Score(ct)
	require.NoError(t, err)
	got, err := ctx.DecryptSlots(scored, 2)
	require.NoError(t, err)

	for j := 0; j < 2; j++ {
		assert.InDelta(t, want.At(0, j), got[j], 1e-2, "output %d", j)
	}
}

func TestNewEncryptedReadoutValidation(t *testing.T) {
	ctx := testContext(t)
	srv := ctx.ServerView()

	weight := mat.NewDense(2, 8, nil)

	_, err := NewEncryptedReadout(weight, mat.NewDense(1, 3, nil), srv)
	assert.Error(t, err, "bias width must match outputs")

	_, err = NewEncryptedReadout(mat.NewDense(4, 2, nil), mat.NewDense(1, 4, nil), srv)
	assert.Error(t, err, "outputs cannot exceed folded slots")
}

func BenchmarkEncryptedScore(b *testing.B) {
	ctxOnce.Do(func() {
		heCtx, ctxErr = NewHeContext(24, 3)
	})
	if ctxErr != nil {
		b.Fatal(ctxErr)
	}

	rng := rand.New(rand.NewSource(5))
	weight := mat.NewDense(3, 24, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 24; j++ {
			weight.Set(i, j, rng.NormFloat64())
		}
	}
	readout, err := NewEncryptedReadout(weight, mat.NewDense(1, 3, nil), heCtx.ServerView())
	if err != nil {
		b.Fatal(err)
	}

	features := make([]float64, 24)
	for i := range features {
		features[i] = rng.NormFloat64()
	}
	ct, err := heCtx.EncryptVector(features)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := readout.Score(ct); err != nil {
			b.Fatal(err)
		}
	}
}

func TestSetupBytesRebuildServer(t *testing.T) {
	ctx := testContext(t)

	paramsBytes, evalKeyBytes, err := ctx.SetupBytes()
	require.NoError(t, err)
	require.NotEmpty(t, paramsBytes)
	require.NotEmpty(t, evalKeyBytes)

	srv, err := NewServerContext(paramsBytes, evalKeyBytes)
	require.NoError(t, err)
	assert.Equal(t, ctx.Params.MaxSlots(), srv.Params.MaxSlots())

	// A readout built on the rebuilt context scores correctly.
	weight := mat.NewDense(1, 4, []float64{1, 2, 3, 4})
	bias := mat.NewDense(1, 1, []float64{0.5})
	readout, err := NewEncryptedReadout(weight, bias, srv)
	require.NoError(t, err)

	ct, err := ctx.EncryptVector([]float64{1, 1, 1, 1})
	require.NoError(t, err)
	scored, err := readout.Score(ct)
	require.NoError(t, err)
	got, err := ctx.DecryptSlots(scored, 1)
	require.NoError(t, err)
	assert.InDelta(t, 10.5, got[0], 1e-2)
}
