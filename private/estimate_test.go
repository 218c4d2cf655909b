package private

import "testing"

func TestEstimateCostSingleOutput(t *testing.T) {
	c := EstimateCost(24, 1)
	if c.PaddedWidth != 32 {
		t.Errorf("PaddedWidth = %d, want 32", c.PaddedWidth)
	}
	if c.Multiplications != 1 {
		t.Errorf("Multiplications = %d, want 1", c.Multiplications)
	}
	if c.Rotations != 5 {
		t.Errorf("Rotations = %d, want 5", c.Rotations)
	}
	if c.LevelsNeeded != 1 {
		t.Errorf("LevelsNeeded = %d, want 1", c.LevelsNeeded)
	}
}

func TestEstimateCostMultiOutput(t *testing.T) {
	c := EstimateCost(24, 3)
	if c.Multiplications != 6 {
		t.Errorf("Multiplications = %d, want 6", c.Multiplications)
	}
	// three 5-step folds plus two placement rotations
	if c.Rotations != 17 {
		t.Errorf("Rotations = %d, want 17", c.Rotations)
	}
	if c.LevelsNeeded != 2 {
		t.Errorf("LevelsNeeded = %d, want 2", c.LevelsNeeded)
	}
}

func TestEstimateCostPowerOfTwoWidth(t *testing.T) {
	c := EstimateCost(8, 2)
	if c.PaddedWidth != 8 {
		t.Errorf("PaddedWidth = %d, want 8", c.PaddedWidth)
	}
	if c.Rotations != 2*3+1 {
		t.Errorf("Rotations = %d, want 7", c.Rotations)
	}
}
