//go:build debug
// +build debug

package private

import (
	"math"
	"testing"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
)

// DebugCompare compares a ciphertext result with a shadow plaintext vector
// and reports any divergence beyond the specified tolerance
func (h *HeContext) DebugCompare(ct *rlwe.Ciphertext, shadow []float64, label string, tolerance float64, t *testing.T) {
	if t == nil {
		return // Skip if no testing context provided
	}

	decoded, err := h.DecryptSlots(ct, len(shadow))
	if err != nil {
		t.Errorf("%s: decrypt failed: %v", label, err)
		return
	}

	maxDiff := 0.0
	maxDiffIdx := -1

	for i := range shadow {
		diff := math.Abs(decoded[i] - shadow[i])

		if diff > maxDiff {
			maxDiff = diff
			maxDiffIdx = i
		}

		if diff > tolerance {
			t.Errorf("%s: Divergence at index %d: HE=%f, Shadow=%f, Diff=%f",
				label, i, decoded[i], shadow[i], diff)
		}
	}

	if maxDiff <= tolerance {
		t.Logf("%s: ✓ Max difference: %f at index %d", label, maxDiff, maxDiffIdx)
	} else {
		t.Logf("%s: ✗ Max difference: %f at index %d (exceeds tolerance %f)",
			label, maxDiff, maxDiffIdx, tolerance)
	}

	for i := range shadow {
		if math.Abs(decoded[i]) > 100.0 || math.Abs(shadow[i]) > 100.0 {
			t.Logf("WARNING: Potential numerical instability detected at %s index %d: HE=%f, Shadow=%f",
				label, i, decoded[i], shadow[i])
		}
	}
}
