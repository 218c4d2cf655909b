package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Loss maps a batch of predictions and targets to a scalar, and produces the
// gradient of that scalar with respect to the predictions.
type Loss interface {
	Forward(pred, target *mat.Dense) (float64, error)
	Backward(pred, target *mat.Dense) (*mat.Dense, error)
	fmt.Stringer
}

// MSELoss is the mean squared error over all entries of the batch.
type MSELoss struct{}

func (MSELoss) Forward(pred, target *mat.Dense) (float64, error) {
	if err := sameShape("mse", pred, target); err != nil {
		return 0, err
	}
	n, k := pred.Dims()
	sum := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			d := pred.At(i, j) - target.At(i, j)
			sum += d * d
		}
	}
	return sum / float64(n*k), nil
}

func (MSELoss) Backward(pred, target *mat.Dense) (*mat.Dense, error) {
	if err := sameShape("mse", pred, target); err != nil {
		return nil, err
	}
	n, k := pred.Dims()
	grad := mat.NewDense(n, k, nil)
	grad.Sub(pred, target)
	grad.Scale(2/float64(n*k), grad)
	return grad, nil
}

func (MSELoss) String() string {
	return "mse"
}

// CrossEntropyLoss is softmax cross entropy against one-hot target rows,
// averaged over the batch.
type CrossEntropyLoss struct{}

func (CrossEntropyLoss) Forward(pred, target *mat.Dense) (float64, error) {
	if err := sameShape("cross_entropy", pred, target); err != nil {
		return 0, err
	}
	n, k := pred.Dims()
	sum := 0.0
	for i := 0; i < n; i++ {
		row := pred.RawRowView(i)
		maxLogit := row[0]
		for _, v := range row {
			if v > maxLogit {
				maxLogit = v
			}
		}
		expSum := 0.0
		for _, v := range row {
			expSum += math.Exp(v - maxLogit)
		}
		logSum := maxLogit + math.Log(expSum)
		for j := 0; j < k; j++ {
			sum -= target.At(i, j) * (row[j] - logSum)
		}
	}
	return sum / float64(n), nil
}

// Backward is (softmax(pred) - target) / n.
func (CrossEntropyLoss) Backward(pred, target *mat.Dense) (*mat.Dense, error) {
	if err := sameShape("cross_entropy", pred, target); err != nil {
		return nil, err
	}
	n, _ := pred.Dims()
	grad := Softmax(pred)
	grad.Sub(grad, target)
	grad.Scale(1/float64(n), grad)
	return grad, nil
}

func (CrossEntropyLoss) String() string {
	return "cross_entropy"
}

// Softmax applies the softmax function to each row, shifting by the row
// maximum for stability.
func Softmax(logits *mat.Dense) *mat.Dense {
	n, k := logits.Dims()
	out := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		row := logits.RawRowView(i)
		maxLogit := row[0]
		for _, v := range row {
			if v > maxLogit {
				maxLogit = v
			}
		}
		expSum := 0.0
		exps := out.RawRowView(i)
		for j, v := range row {
			e := math.Exp(v - maxLogit)
			exps[j] = e
			expSum += e
		}
		for j := range exps {
			exps[j] /= expSum
		}
	}
	return out
}

func sameShape(op string, a, b *mat.Dense) error {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return &ShapeMismatchError{
			Op:         op,
			OutputSize: ar,
			InputSize:  ac,
			Detail:     fmt.Sprintf("targets are (%d, %d), want (%d, %d)", br, bc, ar, ac),
		}
	}
	return nil
}
