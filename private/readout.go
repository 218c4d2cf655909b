package private

import (
	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/hefloat"
	"gonum.org/v1/gonum/mat"
)

// EncryptedReadout scores encrypted feature vectors against a plaintext
// linear readout. Each scoring call multiplies the ciphertext slot-wise with
// one weight row, folds the slots by rotate-and-add so the inner product
// lands in slot 0, then masks every output into its own slot and adds the
// bias. The result decrypts to the same values the plaintext readout
// produces, up to encoding noise.
type EncryptedReadout struct {
	weightRows [][]float64
	bias       []float64
	width      int
	padded     int
	outputs    int

	srv *ServerContext
}

// NewEncryptedReadout wraps a readout weight matrix of shape (outputs,
// featureWidth) and its (1, outputs) bias row.
func NewEncryptedReadout(weight, bias *mat.Dense, srv *ServerContext) (*EncryptedReadout, error) {
	outputs, width := weight.Dims()
	br, bc := bias.Dims()
	if br != 1 || bc != outputs {
		return nil, errors.Errorf("bias shape (%d, %d) does not match %d outputs", br, bc, outputs)
	}
	padded := nextPow2(width)
	if padded > srv.Params.MaxSlots() {
		return nil, errors.Errorf("feature width %d exceeds %d slots", width, srv.Params.MaxSlots())
	}
	if outputs > padded {
		return nil, errors.Errorf("%d outputs do not fit the %d folded slots", outputs, padded)
	}

	rows := make([][]float64, outputs)
	for j := 0; j < outputs; j++ {
		rows[j] = append([]float64{}, weight.RawRowView(j)...)
	}
	return &EncryptedReadout{
		weightRows: rows,
		bias:       append([]float64{}, bias.RawRowView(0)...),
		width:      width,
		padded:     padded,
		outputs:    outputs,
		srv:        srv,
	}, nil
}

// Width returns the feature width one scoring input must carry.
func (r *EncryptedReadout) Width() int { return r.width }

// Outputs returns the number of score slots a result holds.
func (r *EncryptedReadout) Outputs() int { return r.outputs }

// Score evaluates the readout on one encrypted feature vector. Slots past
// the feature width must be zero, which EncryptVector guarantees.
func (r *EncryptedReadout) Score(ct *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	levels := EstimateCost(r.width, r.outputs).LevelsNeeded
	if ct.Level() < levels {
		return nil, errors.Errorf("ciphertext at level %d, scoring needs %d", ct.Level(), levels)
	}

	eval := r.srv.Evaluator
	enc := r.srv.Encoder
	params := r.srv.Params

	var acc *rlwe.Ciphertext
	for j := 0; j < r.outputs; j++ {
		rowPt := hefloat.NewPlaintext(params, ct.Level())
		if err := enc.Encode(r.weightRows[j], rowPt); err != nil {
			return nil, errors.Wrapf(err, "encode weight row %d", j)
		}
		prod, err := eval.MulNew(ct, rowPt)
		if err != nil {
			return nil, errors.Wrapf(err, "weight multiply %d", j)
		}
		if err := eval.Rescale(prod, prod); err != nil {
			return nil, errors.Wrapf(err, "rescale row %d", j)
		}

		for step := 1; step < r.padded; step *= 2 {
			rot, err := eval.RotateNew(prod, step)
			if err != nil {
				return nil, errors.Wrapf(err, "fold rotation %d", step)
			}
			if err := eval.Add(prod, rot, prod); err != nil {
				return nil, errors.Wrapf(err, "fold add %d", step)
			}
		}

		// A single output already sits in slot 0 and the stray partial
		// sums in the other slots are never decoded. Several outputs
		// must each be masked into their own slot before accumulating.
		if r.outputs > 1 {
			if j > 0 {
				if prod, err = eval.RotateNew(prod, -j); err != nil {
					return nil, errors.Wrapf(err, "place output %d", j)
				}
			}
			mask := make([]float64, j+1)
			mask[j] = 1
			maskPt := hefloat.NewPlaintext(params, prod.Level())
			if err := enc.Encode(mask, maskPt); err != nil {
				return nil, errors.Wrapf(err, "encode mask %d", j)
			}
			if prod, err = eval.MulNew(prod, maskPt); err != nil {
				return nil, errors.Wrapf(err, "mask output %d", j)
			}
			if err := eval.Rescale(prod, prod); err != nil {
				return nil, errors.Wrapf(err, "rescale mask %d", j)
			}
		}

		if acc == nil {
			acc = prod
		} else if err := eval.Add(acc, prod, acc); err != nil {
			return nil, errors.Wrapf(err, "accumulate output %d", j)
		}
	}

	biasPt := hefloat.NewPlaintext(params, acc.Level())
	biasPt.Scale = acc.Scale
	if err := enc.Encode(r.bias, biasPt); err != nil {
		return nil, errors.Wrap(err, "encode bias")
	}
	if err := eval.Add(acc, biasPt, acc); err != nil {
		return nil, errors.Wrap(err, "add bias")
	}
	return acc, nil
}
