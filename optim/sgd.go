package optim

import (
	"fmt"

	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/nn"
	"gonum.org/v1/gonum/floats"
)

// SGD is plain stochastic gradient descent with optional momentum. This is
// the optimizer the L1/L2 penalties in nn.RegularizedLoss are written for.
type SGD struct {
	LR       float64
	Momentum float64

	velocity map[*nn.Param][]float64
}

func NewSGD(lr, momentum float64) *SGD {
	return &SGD{
		LR:       lr,
		Momentum: momentum,
		velocity: make(map[*nn.Param][]float64),
	}
}

func (s *SGD) Step(params []*nn.Param) {
	for _, p := range params {
		w := p.Value.RawMatrix().Data
		g := p.Grad.RawMatrix().Data

		if s.Momentum == 0 {
			floats.AddScaled(w, -s.LR, g)
			continue
		}

		v, ok := s.velocity[p]
		if !ok {
			v = make([]float64, len(g))
			s.velocity[p] = v
		}
		floats.Scale(s.Momentum, v)
		floats.Add(v, g)
		floats.AddScaled(w, -s.LR, v)
	}
}

func (s *SGD) String() string {
	if s.Momentum == 0 {
		return fmt.Sprintf("sgd(lr=%g)", s.LR)
	}
	return fmt.Sprintf("sgd(lr=%g, momentum=%g)", s.LR, s.Momentum)
}
