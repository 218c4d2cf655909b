package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Mode selects the weight pattern Build produces for a linear layer.
type Mode string

const (
	// ModeDefault draws weights from the stack's standard randomized
	// policy, uniform fan-in scaling U(-1/sqrt(in), +1/sqrt(in)).
	ModeDefault Mode = "default"
	// ModeZero returns the all-zero matrix, making the layer's
	// contribution a no-op until training moves it.
	ModeZero Mode = "zero"
	// ModeSplitsInputs duplicates each input feature into a +/- pair:
	// row 2i carries +1 at column i, row 2i+1 carries -1. Requires
	// output size = 2 * input size. A rectifier family activation on top
	// of this pattern keeps the original value recoverable, since
	// activation(v) - activation(-v) = v.
	ModeSplitsInputs Mode = "splits_inputs"
	// ModeLooksLinear tiles 2x2 blocks [[1,-1],[-1,1]] down the diagonal,
	// carrying the paired +/- encoding through a hidden layer so the
	// initial function is the identity on the encoded features. Requires
	// a square, even size.
	ModeLooksLinear Mode = "looks_linear"
)

// ParseMode validates a mode name from a flag or config string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDefault, ModeZero, ModeSplitsInputs, ModeLooksLinear:
		return Mode(s), nil
	}
	return "", &UnsupportedModeError{Mode: Mode(s)}
}

// Build produces the weight matrix (outputSize x inputSize) and zero bias row
// (1 x outputSize) for a linear layer under the given mode. The three
// deterministic modes are pure functions of the sizes; ModeDefault draws from
// the package-level uniform source. Shape preconditions fail with
// *ShapeMismatchError and unknown modes with *UnsupportedModeError.
func Build(outputSize, inputSize int, mode Mode) (*mat.Dense, *mat.Dense, error) {
	if outputSize <= 0 || inputSize <= 0 {
		return nil, nil, &ShapeMismatchError{
			Op:         string(mode),
			OutputSize: outputSize,
			InputSize:  inputSize,
			Detail:     "sizes must be positive",
		}
	}

	var w *mat.Dense
	switch mode {
	case ModeDefault:
		w = mat.NewDense(outputSize, inputSize, uniformArray(outputSize*inputSize, float64(inputSize)))
	case ModeZero:
		w = mat.NewDense(outputSize, inputSize, nil)
	case ModeSplitsInputs:
		if outputSize != 2*inputSize {
			return nil, nil, &ShapeMismatchError{
				Op:         string(mode),
				OutputSize: outputSize,
				InputSize:  inputSize,
				Detail:     "output size must be twice the input size",
			}
		}
		w = mat.NewDense(outputSize, inputSize, nil)
		for i := 0; i < inputSize; i++ {
			w.Set(2*i, i, 1)
			w.Set(2*i+1, i, -1)
		}
	case ModeLooksLinear:
		if outputSize != inputSize {
			return nil, nil, &ShapeMismatchError{
				Op:         string(mode),
				OutputSize: outputSize,
				InputSize:  inputSize,
				Detail:     "matrix must be square",
			}
		}
		if outputSize%2 != 0 {
			return nil, nil, &ShapeMismatchError{
				Op:         string(mode),
				OutputSize: outputSize,
				InputSize:  inputSize,
				Detail:     "size must be even to pair +/- columns",
			}
		}
		w = mat.NewDense(outputSize, inputSize, nil)
		for k := 0; k < outputSize/2; k++ {
			w.Set(2*k, 2*k, 1)
			w.Set(2*k, 2*k+1, -1)
			w.Set(2*k+1, 2*k, -1)
			w.Set(2*k+1, 2*k+1, 1)
		}
	default:
		return nil, nil, &UnsupportedModeError{Mode: mode}
	}

	return w, mat.NewDense(1, outputSize, nil), nil
}

func uniformArray(size int, fanIn float64) []float64 {
	dist := distuv.Uniform{
		Min: -1 / math.Sqrt(fanIn),
		Max: 1 / math.Sqrt(fanIn),
	}

	data := make([]float64, size)
	for i := range data {
		data[i] = dist.Rand()
	}
	return data
}
