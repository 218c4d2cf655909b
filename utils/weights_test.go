package utils

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/nn"
)

func TestParamToWeightData(t *testing.T) {
	p := &nn.Param{
		Name:  "test.weight",
		Value: mat.NewDense(2, 3, []float64{0, 0.5, 1, 1.5, 2, 2.5}),
	}

	wd := ParamToWeightData(p)

	if wd.Name != "test.weight" {
		t.Errorf("Name = %s, want test.weight", wd.Name)
	}
	if len(wd.Shape) != 2 || wd.Shape[0] != 2 || wd.Shape[1] != 3 {
		t.Errorf("Shape = %v, want [2, 3]", wd.Shape)
	}
	if len(wd.Data) != 6 {
		t.Errorf("Data length = %d, want 6", len(wd.Data))
	}
	for i, v := range wd.Data {
		expected := float64(i) * 0.5
		if v != expected {
			t.Errorf("Data[%d] = %f, want %f", i, v, expected)
		}
	}

	// The snapshot must be a copy, not a view of the live matrix.
	p.Value.Set(0, 0, 99)
	if wd.Data[0] != 0 {
		t.Errorf("Data[0] = %f after mutating the source, want 0", wd.Data[0])
	}
}

func TestWeightDataToDense(t *testing.T) {
	wd := &WeightData{
		Name:  "test",
		Shape: []int{3, 4},
		Data:  make([]float64, 12),
	}
	for i := range wd.Data {
		wd.Data[i] = float64(i)
	}

	m, err := WeightDataToDense(wd)
	if err != nil {
		t.Fatalf("WeightDataToDense failed: %v", err)
	}

	r, c := m.Dims()
	if r != 3 || c != 4 {
		t.Errorf("Dims = (%d, %d), want (3, 4)", r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != float64(i*c+j) {
				t.Errorf("At(%d, %d) = %f, want %f", i, j, m.At(i, j), float64(i*c+j))
			}
		}
	}
}

func TestWeightDataToDenseBadShape(t *testing.T) {
	cases := []*WeightData{
		{Name: "cube", Shape: []int{2, 2, 2}, Data: make([]float64, 8)},
		{Name: "short", Shape: []int{2, 3}, Data: make([]float64, 5)},
	}
	for _, wd := range cases {
		if _, err := WeightDataToDense(wd); err == nil {
			t.Errorf("expected error for weight %q", wd.Name)
		}
	}
}

func TestSaveLoadRestoreRoundTrip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "weights_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	weightsFile := filepath.Join(tmpDir, "test_weights.json")

	net, err := nn.NewGrowingConcatNet(3, 2, 1)
	if err != nil {
		t.Fatalf("NewGrowingConcatNet failed: %v", err)
	}
	rng := rand.New(rand.NewSource(7))
	for _, p := range net.Params() {
		raw := p.Value.RawMatrix().Data
		for i := range raw {
			raw[i] = rng.NormFloat64()
		}
	}

	if err := SaveWeights(weightsFile, CollectWeights(net)); err != nil {
		t.Fatalf("SaveWeights failed: %v", err)
	}

	loaded, err := LoadWeights(weightsFile)
	if err != nil {
		t.Fatalf("LoadWeights failed: %v", err)
	}
	if loaded.Version != WeightsVersion {
		t.Errorf("Version = %s, want %s", loaded.Version, WeightsVersion)
	}
	if loaded.InputSize != 3 || loaded.NumLayers != 2 || loaded.OutputSize != 1 {
		t.Errorf("architecture = %d/%d/%d, want 3/2/1",
			loaded.InputSize, loaded.NumLayers, loaded.OutputSize)
	}
	if loaded.Activation != "softplus" {
		t.Errorf("Activation = %s, want softplus", loaded.Activation)
	}
	if len(loaded.Params) != 8 {
		t.Errorf("Params count = %d, want 8", len(loaded.Params))
	}

	restored, err := RestoreNet(loaded)
	if err != nil {
		t.Fatalf("RestoreNet failed: %v", err)
	}

	x := mat.NewDense(4, 3, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
	}
	want, err := net.Forward(x)
	if err != nil {
		t.Fatalf("Forward on original failed: %v", err)
	}
	got, err := restored.Forward(x)
	if err != nil {
		t.Fatalf("Forward on restored failed: %v", err)
	}
	if !mat.Equal(want, got) {
		t.Errorf("restored network disagrees with original:\nwant %v\ngot %v",
			mat.Formatted(want), mat.Formatted(got))
	}
}

func TestRestoreNetRejectsBadInput(t *testing.T) {
	net, err := nn.NewGrowingConcatNet(2, 1, 1)
	if err != nil {
		t.Fatalf("NewGrowingConcatNet failed: %v", err)
	}

	unknown := CollectWeights(net)
	unknown.Params[0].Name = "mystery.weight"
	if _, err := RestoreNet(unknown); err == nil {
		t.Error("expected error for unknown parameter name")
	}

	badShape := CollectWeights(net)
	badShape.Params[0].Shape = []int{1, 2}
	badShape.Params[0].Data = []float64{1, 2}
	if _, err := RestoreNet(badShape); err == nil {
		t.Error("expected error for mismatched shape")
	}

	missing := CollectWeights(net)
	missing.Params = missing.Params[:len(missing.Params)-1]
	if _, err := RestoreNet(missing); err == nil {
		t.Error("expected error for missing parameter")
	}

	badAct := CollectWeights(net)
	badAct.Activation = "swish"
	if _, err := RestoreNet(badAct); err == nil {
		t.Error("expected error for unknown activation")
	}
}

func TestLoadWeightsNotFound(t *testing.T) {
	_, err := LoadWeights("/nonexistent/path/weights.json")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadWeightsInvalidJSON(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "weights_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	badFile := filepath.Join(tmpDir, "bad.json")
	err = os.WriteFile(badFile, []byte("not valid json"), 0644)
	if err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err = LoadWeights(badFile)
	if err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestLoadWeightsVersionMismatch(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "weights_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	oldFile := filepath.Join(tmpDir, "old.json")
	err = os.WriteFile(oldFile, []byte(`{"version": "0.9", "params": []}`), 0644)
	if err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err = LoadWeights(oldFile)
	if err == nil {
		t.Error("Expected error for version mismatch")
	}
}
