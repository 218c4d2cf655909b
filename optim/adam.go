package optim

import (
	"fmt"
	"math"

	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/nn"
)

// Adam keeps bias-corrected first and second moment estimates per parameter
// and scales each coordinate's step by them. That same scaling applies to
// any penalty gradients added by nn.RegularizedLoss, so the effective
// regularization under Adam is not the plain L1/L2 objective; see the
// caveat on nn.RegularizedLoss.
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	step int
	m    map[*nn.Param][]float64
	v    map[*nn.Param][]float64
}

func NewAdam(lr float64) *Adam {
	return &Adam{
		LR:    lr,
		Beta1: 0.9,
		Beta2: 0.999,
		Eps:   1e-8,
		m:     make(map[*nn.Param][]float64),
		v:     make(map[*nn.Param][]float64),
	}
}

func (a *Adam) Step(params []*nn.Param) {
	a.step++
	c1 := 1 - math.Pow(a.Beta1, float64(a.step))
	c2 := 1 - math.Pow(a.Beta2, float64(a.step))

	for _, p := range params {
		w := p.Value.RawMatrix().Data
		g := p.Grad.RawMatrix().Data

		m, ok := a.m[p]
		if !ok {
			m = make([]float64, len(g))
			a.m[p] = m
			a.v[p] = make([]float64, len(g))
		}
		v := a.v[p]

		for i, gi := range g {
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*gi
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*gi*gi
			mHat := m[i] / c1
			vHat := v[i] / c2
			w[i] -= a.LR * mHat / (math.Sqrt(vHat) + a.Eps)
		}
	}
}

func (a *Adam) String() string {
	return fmt.Sprintf("adam(lr=%g)", a.LR)
}
