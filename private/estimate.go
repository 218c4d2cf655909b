package private

import "fmt"

// CostEstimate breaks down the homomorphic work of one scoring call, for
// sizing parameters and reporting before any ciphertext is touched.
type CostEstimate struct {
	FeatureWidth    int
	PaddedWidth     int
	Outputs         int
	Multiplications int
	Rotations       int
	LevelsNeeded    int
}

// EstimateCost derives the operation counts for a readout of the given
// shape. Every output row costs one plaintext multiply and a log2 fold; with
// more than one output each row also pays a placement rotation (past the
// first) and a mask multiply, which is where the second level goes.
func EstimateCost(featureWidth, outputs int) CostEstimate {
	padded := nextPow2(featureWidth)
	foldSteps := 0
	for step := 1; step < padded; step *= 2 {
		foldSteps++
	}

	c := CostEstimate{
		FeatureWidth:    featureWidth,
		PaddedWidth:     padded,
		Outputs:         outputs,
		Multiplications: outputs,
		Rotations:       outputs * foldSteps,
		LevelsNeeded:    1,
	}
	if outputs > 1 {
		c.Multiplications += outputs
		c.Rotations += outputs - 1
		c.LevelsNeeded = 2
	}
	return c
}

func (c CostEstimate) String() string {
	return fmt.Sprintf("%d-wide readout (padded %d) x %d outputs: %d multiplications, %d rotations, %d levels",
		c.FeatureWidth, c.PaddedWidth, c.Outputs, c.Multiplications, c.Rotations, c.LevelsNeeded)
}
