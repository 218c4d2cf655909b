// Package private evaluates the readout of a trained network under CKKS
// homomorphic encryption. The client runs the hidden stages locally, encrypts
// the concatenated stage features, and ships only ciphertexts; the scoring
// side holds the readout weights in plaintext and never sees the features.
package private

import (
	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/hefloat"
)

// NewParameters builds the CKKS parameter set used throughout: ring degree
// 2^14 with a 45-bit base modulus, nine 34-bit scaling moduli and a 40-bit
// default scale.
func NewParameters() (hefloat.Parameters, error) {
	return hefloat.NewParametersFromLiteral(hefloat.ParametersLiteral{
		LogN: 14,
		Q: []uint64{0x200000008001, 0x400018001, // 45 + 9 x 34
			0x3fffd0001, 0x400060001,
			0x400068001, 0x3fff90001,
			0x400080001, 0x4000a8001,
			0x400108001, 0x3ffeb8001},
		P:               []uint64{0x7fffffd8001, 0x7fffffc8001}, // 43, 43
		LogDefaultScale: 40,
	})
}

// HeContext is the client-side crypto state: it owns the secret key and can
// encrypt feature vectors and decrypt scores. The evaluation keys it carries
// cover exactly the rotations encrypted scoring needs for the given feature
// width and output count.
type HeContext struct {
	Params    hefloat.Parameters
	Encoder   *hefloat.Encoder
	Encryptor *rlwe.Encryptor
	Decryptor *rlwe.Decryptor
	Evaluator *hefloat.Evaluator

	EvalKeys *rlwe.MemEvaluationKeySet
}

// NewHeContext generates a fresh key set sized for scoring featureWidth-wide
// vectors against outputs readout rows.
func NewHeContext(featureWidth, outputs int) (*HeContext, error) {
	params, err := NewParameters()
	if err != nil {
		return nil, errors.Wrap(err, "ckks parameters")
	}
	if featureWidth <= 0 || outputs <= 0 {
		return nil, errors.Errorf("feature width %d and outputs %d must be positive", featureWidth, outputs)
	}
	if nextPow2(featureWidth) > params.MaxSlots() {
		return nil, errors.Errorf("feature width %d exceeds %d slots", featureWidth, params.MaxSlots())
	}

	kgen := hefloat.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()
	rlk := kgen.GenRelinearizationKeyNew(sk)
	galEls := galoisElements(params, featureWidth, outputs)
	evk := rlwe.NewMemEvaluationKeySet(rlk, kgen.GenGaloisKeysNew(galEls, sk)...)

	return &HeContext{
		Params:    params,
		Encoder:   hefloat.NewEncoder(params),
		Encryptor: hefloat.NewEncryptor(params, pk),
		Decryptor: hefloat.NewDecryptor(params, sk),
		Evaluator: hefloat.NewEvaluator(params, evk),
		EvalKeys:  evk,
	}, nil
}

// galoisElements lists the rotations scoring performs: the power-of-two
// steps of the slot folding plus the negative shifts that place each output
// into its own slot.
func galoisElements(params hefloat.Parameters, featureWidth, outputs int) []uint64 {
	var els []uint64
	for step := 1; step < nextPow2(featureWidth); step *= 2 {
		els = append(els, params.GaloisElement(step))
	}
	for j := 1; j < outputs; j++ {
		els = append(els, params.GaloisElement(-j))
	}
	return els
}

// EncryptVector encrypts a feature vector at the maximum level, one value
// per slot, remaining slots zero.
func (h *HeContext) EncryptVector(values []float64) (*rlwe.Ciphertext, error) {
	if len(values) > h.Params.MaxSlots() {
		return nil, errors.Errorf("vector of %d values exceeds %d slots", len(values), h.Params.MaxSlots())
	}
	pt := hefloat.NewPlaintext(h.Params, h.Params.MaxLevel())
	if err := h.Encoder.Encode(values, pt); err != nil {
		return nil, errors.Wrap(err, "encode vector")
	}
	ct, err := h.Encryptor.EncryptNew(pt)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt vector")
	}
	return ct, nil
}

// DecryptSlots decrypts a ciphertext and returns its first n slots.
func (h *HeContext) DecryptSlots(ct *rlwe.Ciphertext, n int) ([]float64, error) {
	if n <= 0 || n > h.Params.MaxSlots() {
		return nil, errors.Errorf("slot count %d out of range", n)
	}
	pt := h.Decryptor.DecryptNew(ct)
	values := make([]float64, h.Params.MaxSlots())
	if err := h.Encoder.Decode(pt, values); err != nil {
		return nil, errors.Wrap(err, "decode slots")
	}
	return values[:n], nil
}

// SetupBytes serializes the parameters and evaluation keys for a remote
// scoring peer. The secret key never leaves the context.
func (h *HeContext) SetupBytes() (paramsBytes, evalKeyBytes []byte, err error) {
	paramsBytes, err = h.Params.MarshalBinary()
	if err != nil {
		return nil, nil, errors.Wrap(err, "marshal parameters")
	}
	evalKeyBytes, err = h.EvalKeys.MarshalBinary()
	if err != nil {
		return nil, nil, errors.Wrap(err, "marshal evaluation keys")
	}
	return paramsBytes, evalKeyBytes, nil
}

// ServerContext is the scoring-side crypto state: parameters, encoder and an
// evaluator keyed with the client's public evaluation keys. It cannot
// decrypt anything.
type ServerContext struct {
	Params    hefloat.Parameters
	Encoder   *hefloat.Encoder
	Evaluator *hefloat.Evaluator
}

// NewServerContext rebuilds a scoring context from the setup bytes a client
// sent over the wire.
func NewServerContext(paramsBytes, evalKeyBytes []byte) (*ServerContext, error) {
	var params hefloat.Parameters
	if err := params.UnmarshalBinary(paramsBytes); err != nil {
		return nil, errors.Wrap(err, "unmarshal parameters")
	}
	evk := &rlwe.MemEvaluationKeySet{}
	if err := evk.UnmarshalBinary(evalKeyBytes); err != nil {
		return nil, errors.Wrap(err, "unmarshal evaluation keys")
	}
	return &ServerContext{
		Params:    params,
		Encoder:   hefloat.NewEncoder(params),
		Evaluator: hefloat.NewEvaluator(params, evk),
	}, nil
}

// ServerView exposes the scoring-side view of a local context, for running
// client and scorer in one process.
func (h *HeContext) ServerView() *ServerContext {
	return &ServerContext{
		Params:    h.Params,
		Encoder:   h.Encoder,
		Evaluator: h.Evaluator,
	}
}

// nextPow2 returns the smallest power of two at or above n.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
