// isospectrum: Measures singular-value spectra of a network's feature map
//
// Usage:
//
//	isospectrum --arch="3 2 1" --probes=5 --probe=data
//	isospectrum --arch="3 2 1" --init=default
//	isospectrum --weights=weights.json --decode
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/isometry"
	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/nn"
	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/utils"
)

var (
	arch        = flag.String("arch", "3 2 1", "Architecture: input, middle layers, output")
	weightsFile = flag.String("weights", "", "Weights JSON file (fresh net when empty)")
	initScheme  = flag.String("init", "designed", "Fresh-net initialization: designed, default")
	probes      = flag.Int("probes", 1, "Number of probe points")
	probeKind   = flag.String("probe", "origin", "Probe location: origin, data")
	decode      = flag.Bool("decode", false, "Measure the pair-decoded feature map instead of the raw one")
	activation  = flag.String("activation", "", "Override activation: softplus, relu, identity")
	seed        = flag.Int64("seed", 42, "Random seed for data probes")
	verbose     = flag.Bool("verbose", true, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	net, err := loadNet()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *activation != "" {
		act, ok := nn.ActivatorLookup[*activation]
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown activation %q\n", *activation)
			os.Exit(1)
		}
		net.SetActivation(act)
	}

	f := net.Features
	mapName := "feature map"
	if *decode {
		f = func(x *mat.Dense) (*mat.Dense, error) {
			features, err := net.Features(x)
			if err != nil {
				return nil, err
			}
			return nn.PairDecode(features)
		}
		mapName = "pair-decoded feature map"
	}

	fmt.Printf("Network %d/%d/%d, activation %s, %s: %d -> %d\n",
		net.InputSize, net.NumLayers, net.OutputSize, net.Activation(), mapName,
		net.InputSize, outWidth(net, *decode))

	rng := rand.New(rand.NewSource(*seed))
	var all []float64
	for p := 0; p < *probes; p++ {
		x := make([]float64, net.InputSize)
		if *probeKind == "data" {
			for i := range x {
				x[i] = rng.NormFloat64()
			}
		}

		spec, err := isometry.Measure(f, x)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error at probe %d: %v\n", p, err)
			os.Exit(1)
		}
		fmt.Printf("Probe %d: %s\n", p, spec)
		if *verbose {
			fmt.Printf("  singular values: %s\n", formatValues(spec.Values))
		}
		all = append(all, spec.Values...)
	}

	if *probes > 1 {
		fmt.Printf("All probes: %s\n", isometry.Summarize(all))
	}
}

func loadNet() (*nn.GrowingConcatNet, error) {
	if *weightsFile != "" {
		weights, err := utils.LoadWeights(*weightsFile)
		if err != nil {
			return nil, err
		}
		return utils.RestoreNet(weights)
	}
	inputSize, numLayers, outputSize, err := utils.ParseArchitecture(*arch)
	if err != nil {
		return nil, err
	}
	switch *initScheme {
	case "designed":
		return nn.NewGrowingConcatNet(inputSize, numLayers, outputSize)
	case "default":
		return nn.NewGrowingConcatNetBaseline(inputSize, numLayers, outputSize)
	}
	return nil, fmt.Errorf("unknown init scheme %q (want designed or default)", *initScheme)
}

func outWidth(net *nn.GrowingConcatNet, decoded bool) int {
	if decoded {
		return net.FeatureWidth() / 2
	}
	return net.FeatureWidth()
}

func formatValues(values []float64) string {
	s := "["
	for i, v := range values {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%.4f", v)
	}
	return s + "]"
}
