package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/nn"
)

// WeightsVersion is written into every saved weights file.
const WeightsVersion = "1.0"

// WeightData represents serializable weight data for one parameter
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// ModelWeights represents a trained network: the architecture triple needed
// to rebuild it plus every parameter in construction order
type ModelWeights struct {
	Version    string        `json:"version"`
	InputSize  int           `json:"input_size"`
	NumLayers  int           `json:"num_layers"`
	OutputSize int           `json:"output_size"`
	Activation string        `json:"activation"`
	Params     []*WeightData `json:"params"`
}

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	if weights.Version != WeightsVersion {
		return nil, fmt.Errorf("unsupported weights version %q, want %q", weights.Version, WeightsVersion)
	}
	return &weights, nil
}

// ParamToWeightData converts a parameter to serializable weight data
func ParamToWeightData(p *nn.Param) *WeightData {
	r, c := p.Value.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, p.Value.RawRowView(i)...)
	}
	return &WeightData{
		Name:  p.Name,
		Shape: []int{r, c},
		Data:  data,
	}
}

// WeightDataToDense converts weight data back to a matrix
func WeightDataToDense(wd *WeightData) (*mat.Dense, error) {
	if len(wd.Shape) != 2 {
		return nil, fmt.Errorf("weight %q: shape %v is not a matrix", wd.Name, wd.Shape)
	}
	r, c := wd.Shape[0], wd.Shape[1]
	if len(wd.Data) != r*c {
		return nil, fmt.Errorf("weight %q: %d values for shape [%d %d]", wd.Name, len(wd.Data), r, c)
	}
	return mat.NewDense(r, c, append([]float64{}, wd.Data...)), nil
}

// CollectWeights snapshots a network into a saveable form.
func CollectWeights(net *nn.GrowingConcatNet) *ModelWeights {
	params := net.Params()
	weights := &ModelWeights{
		Version:    WeightsVersion,
		InputSize:  net.InputSize,
		NumLayers:  net.NumLayers,
		OutputSize: net.OutputSize,
		Activation: net.Activation().String(),
		Params:     make([]*WeightData, 0, len(params)),
	}
	for _, p := range params {
		weights.Params = append(weights.Params, ParamToWeightData(p))
	}
	return weights
}

// RestoreNet rebuilds a network from saved weights: the architecture triple
// constructs the layers, then every stored parameter is matched by name and
// copied over the structured initialization.
func RestoreNet(weights *ModelWeights) (*nn.GrowingConcatNet, error) {
	net, err := nn.NewGrowingConcatNet(weights.InputSize, weights.NumLayers, weights.OutputSize)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild network: %w", err)
	}
	if weights.Activation != "" {
		act, ok := nn.ActivatorLookup[weights.Activation]
		if !ok {
			return nil, fmt.Errorf("unknown activation %q in weights file", weights.Activation)
		}
		net.SetActivation(act)
	}

	byName := make(map[string]*nn.Param)
	for _, p := range net.Params() {
		byName[p.Name] = p
	}
	seen := make(map[string]bool)
	for _, wd := range weights.Params {
		p, ok := byName[wd.Name]
		if !ok {
			return nil, fmt.Errorf("weight %q does not exist in a %d/%d/%d network",
				wd.Name, weights.InputSize, weights.NumLayers, weights.OutputSize)
		}
		value, err := WeightDataToDense(wd)
		if err != nil {
			return nil, err
		}
		pr, pc := p.Value.Dims()
		vr, vc := value.Dims()
		if pr != vr || pc != vc {
			return nil, fmt.Errorf("weight %q: stored shape [%d %d], network expects [%d %d]",
				wd.Name, vr, vc, pr, pc)
		}
		p.Value.Copy(value)
		seen[wd.Name] = true
	}
	for name := range byName {
		if !seen[name] {
			return nil, fmt.Errorf("weights file is missing parameter %q", name)
		}
	}
	return net, nil
}
