package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Config holds training configuration
type Config struct {
	InputSize    int
	NumLayers    int
	OutputSize   int
	Epochs       int
	BatchSize    int
	LearningRate float64
	Optimizer    string
	L1           float64
	L2           float64
	Seed         int64
}

// ParseArchitecture parses an "input layers output" triple, e.g. "3 2 1"
func ParseArchitecture(archStr string) (inputSize, numLayers, outputSize int, err error) {
	parts := strings.Fields(archStr)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("architecture %q: want three numbers (input, middle layers, output)", archStr)
	}
	vals := make([]int, 3)
	for i, s := range parts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("architecture %q: %w", archStr, err)
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], nil
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if config.InputSize <= 0 {
		return fmt.Errorf("input size must be positive")
	}

	if config.NumLayers < 0 {
		return fmt.Errorf("number of middle layers must be non-negative")
	}

	if config.OutputSize <= 0 {
		return fmt.Errorf("output size must be positive")
	}

	if config.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive")
	}

	if config.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	if config.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive")
	}

	switch config.Optimizer {
	case "sgd", "momentum", "adam":
	default:
		return fmt.Errorf("optimizer must be 'sgd', 'momentum' or 'adam'")
	}

	if config.L1 < 0 || config.L2 < 0 {
		return fmt.Errorf("regularization strengths must be non-negative")
	}

	return nil
}
