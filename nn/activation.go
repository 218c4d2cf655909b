package nn

import (
	"fmt"
	"math"
)

// Activator applies an elementwise nonlinearity. The (i, j) indices make the
// methods usable directly with mat.Dense.Apply.
type Activator interface {
	Activate(i, j int, v float64) float64
	// Derivative evaluates the slope of the activation at the
	// preactivation value v.
	Derivative(i, j int, v float64) float64
	fmt.Stringer
}

var ActivatorLookup = map[string]Activator{
	"softplus": Softplus{},
	"relu":     ReLU{},
	"identity": Identity{},
}

// Softplus is log(1+exp(v)), the smooth rectifier the growing network uses.
// Its derivative is the logistic sigmoid, so for any v the slopes at v and -v
// sum to exactly 1, which keeps the paired +/- feature encoding decodable.
type Softplus struct{}

func (s Softplus) Activate(i, j int, v float64) float64 {
	if v > 30 {
		// exp(v) overflows long before float64 does; softplus(v) ~ v here
		return v
	}
	return math.Log1p(math.Exp(v))
}

func (s Softplus) Derivative(i, j int, v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}

func (s Softplus) String() string {
	return "softplus"
}

// ReLU is the exact rectifier, max(0, v). The paired decode
// relu(v) - relu(-v) = v holds exactly, so it serves as the reference
// activation in reconstruction checks.
type ReLU struct{}

func (r ReLU) Activate(i, j int, v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func (r ReLU) Derivative(i, j int, v float64) float64 {
	if v > 0 {
		return 1
	}
	return 0
}

func (r ReLU) String() string {
	return "relu"
}

// Identity passes values through unchanged. Diagnostics only.
type Identity struct{}

func (id Identity) Activate(i, j int, v float64) float64 {
	return v
}

func (id Identity) Derivative(i, j int, v float64) float64 {
	return 1
}

func (id Identity) String() string {
	return "identity"
}
