// Package optim implements the gradient-descent optimizers used to train the
// growing networks. Optimizers own their per-parameter state; parameters are
// identified by pointer, so one optimizer serves one model.
package optim

import (
	"fmt"

	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/nn"
)

// Optimizer applies one update to the parameters from their accumulated
// gradients. Callers zero the gradients between steps.
type Optimizer interface {
	Step(params []*nn.Param)
	fmt.Stringer
}

// Lookup builds an optimizer by flag name.
func Lookup(name string, lr float64) (Optimizer, error) {
	switch name {
	case "sgd":
		return NewSGD(lr, 0), nil
	case "momentum":
		return NewSGD(lr, 0.9), nil
	case "adam":
		return NewAdam(lr), nil
	}
	return nil, fmt.Errorf("unknown optimizer %q (want sgd, momentum, or adam)", name)
}
