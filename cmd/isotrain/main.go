// isotrain: Standalone trainer for growing-concatenation networks
//
// Usage:
//
//	isotrain --arch="3 2 1" --task=regression --epochs=30 --lr=0.01 --output=weights.json
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/datasets"
	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/isometry"
	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/nn"
	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/optim"
	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/utils"
)

var (
	arch         = flag.String("arch", "3 2 1", "Architecture: input, middle layers, output")
	task         = flag.String("task", "regression", "Task: regression, blobs")
	samples      = flag.Int("samples", 256, "Number of synthetic samples")
	epochs       = flag.Int("epochs", 30, "Number of training epochs")
	batchSize    = flag.Int("batch", 32, "Batch size")
	learningRate = flag.Float64("lr", 0.01, "Learning rate")
	optimizer    = flag.String("optimizer", "sgd", "Optimizer: sgd, momentum, adam")
	initScheme   = flag.String("init", "designed", "Initialization: designed (structured), default (randomized baseline)")
	l1           = flag.Float64("l1", 0, "L1 penalty strength")
	l2           = flag.Float64("l2", 0, "L2 penalty strength")
	noise        = flag.Float64("noise", 0.1, "Regression label noise")
	margin       = flag.Float64("margin", 4, "Blob separation margin")
	holdout      = flag.Float64("holdout", 0.2, "Held-out fraction")
	standardize  = flag.Bool("standardize", true, "Standardize features to zero mean, unit variance")
	spectrum     = flag.Bool("spectrum", false, "Print the feature-map spectrum before and after training")
	seed         = flag.Int64("seed", 42, "Random seed")
	verbose      = flag.Bool("verbose", true, "Verbose output")
	outputFile   = flag.String("output", "", "Output weights file (JSON)")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	inputSize, numLayers, outputSize, err := utils.ParseArchitecture(*arch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	config := &utils.Config{
		InputSize:    inputSize,
		NumLayers:    numLayers,
		OutputSize:   outputSize,
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		LearningRate: *learningRate,
		Optimizer:    *optimizer,
		L1:           *l1,
		L2:           *l2,
		Seed:         *seed,
	}
	if err := utils.ValidateConfig(config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║              Growing-Concat Network Trainer                  ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Architecture:  %d/%d/%d\n", inputSize, numLayers, outputSize)
	fmt.Printf("  Task:          %s\n", *task)
	fmt.Printf("  Samples:       %d\n", *samples)
	fmt.Printf("  Epochs:        %d\n", *epochs)
	fmt.Printf("  Batch size:    %d\n", *batchSize)
	fmt.Printf("  Learning Rate: %.4f\n", *learningRate)
	fmt.Printf("  Optimizer:     %s\n", *optimizer)
	fmt.Printf("  Init scheme:   %s\n", *initScheme)
	fmt.Printf("  Penalties:     l1=%g l2=%g\n", *l1, *l2)
	fmt.Println()

	stats := &utils.TimingStats{}
	totalStart := time.Now()

	// Synthetic data
	fmt.Printf("Generating %d synthetic samples...\n", *samples)
	start := time.Now()
	data, base, err := makeData(*task, *samples, inputSize, outputSize, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	train, test, err := datasets.Split(data, 1-*holdout, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *standardize {
		trainStats := datasets.Standardize(train.X)
		if err := trainStats.Apply(test.X); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	stats.DataGenTime = time.Since(start)
	fmt.Printf("Train/test split: %d/%d\n", train.Len(), test.Len())

	// Model
	start = time.Now()
	net, err := buildNet(inputSize, numLayers, outputSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opt, err := optim.Lookup(*optimizer, *learningRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	loss := nn.NewRegularizedLoss(base, *l1, *l2)
	params := net.Params()
	stats.ModelInitTime = time.Since(start)
	fmt.Printf("Model: stage widths %v, readout consumes %d features\n",
		net.StageWidths(), net.FeatureWidth())
	fmt.Printf("Loss: %s | Optimizer: %s\n", loss, opt)

	if *spectrum {
		printSpectrum(net, inputSize, "at init", stats)
	}

	// Training loop
	fmt.Println("\nStarting training...")
	steps := 0
	for epoch := 0; epoch < *epochs; epoch++ {
		epochStart := time.Now()
		batches, err := datasets.Batches(train, *batchSize, *seed+int64(epoch))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		epochLoss := 0.0
		for _, b := range batches {
			lossVal, err := trainStep(net, loss, opt, params, b, stats)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error at epoch %d: %v\n", epoch+1, err)
				os.Exit(1)
			}
			epochLoss += lossVal * float64(b.Len())
			steps++
		}

		fmt.Printf("Epoch %d/%d | Loss: %.6f | Time: %.2fs\n",
			epoch+1, *epochs, epochLoss/float64(train.Len()), time.Since(epochStart).Seconds())
	}

	// Held-out evaluation
	pred, err := net.Forward(test.X)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	testLoss, err := loss.Compute(pred, test.Y, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nHeld-out loss: %.6f\n", testLoss)
	if *task == "blobs" {
		fmt.Printf("Held-out accuracy: %.1f%%\n", accuracy(pred, test.Y)*100)
	}

	if *spectrum {
		printSpectrum(net, inputSize, "after training", stats)
	}

	stats.TotalTime = time.Since(totalStart)
	fmt.Printf("\nTraining complete! Total time: %.2fs\n", stats.TotalTime.Seconds())
	utils.PrintTimingStats(stats, steps)

	if *outputFile != "" {
		fmt.Printf("\nSaving weights to %s...\n", *outputFile)
		if err := utils.SaveWeights(*outputFile, utils.CollectWeights(net)); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Done!")
	}
}

func buildNet(inputSize, numLayers, outputSize int) (*nn.GrowingConcatNet, error) {
	switch *initScheme {
	case "designed":
		return nn.NewGrowingConcatNet(inputSize, numLayers, outputSize)
	case "default":
		return nn.NewGrowingConcatNetBaseline(inputSize, numLayers, outputSize)
	}
	return nil, fmt.Errorf("unknown init scheme %q (want designed or default)", *initScheme)
}

// makeData builds the synthetic dataset and the base loss that fits it.
func makeData(task string, n, inputSize, outputSize int, seed int64) (*datasets.Dataset, nn.Loss, error) {
	switch task {
	case "regression":
		if outputSize != 1 {
			return nil, nil, fmt.Errorf("regression targets are one-dimensional, architecture says %d", outputSize)
		}
		d, err := datasets.Regression(n, inputSize, *noise, seed)
		return d, nn.MSELoss{}, err
	case "blobs":
		if outputSize != 2 {
			return nil, nil, fmt.Errorf("blob labels are one-hot pairs, architecture says %d", outputSize)
		}
		d, err := datasets.TwoBlobs(n, inputSize, *margin, seed)
		return d, nn.CrossEntropyLoss{}, err
	}
	return nil, nil, fmt.Errorf("unknown task %q (want regression or blobs)", task)
}

func trainStep(net *nn.GrowingConcatNet, loss *nn.RegularizedLoss, opt optim.Optimizer,
	params []*nn.Param, b *datasets.Dataset, stats *utils.TimingStats) (float64, error) {

	nn.ZeroGrad(params)

	start := time.Now()
	pred, err := net.Forward(b.X)
	stats.ForwardPassTime += time.Since(start)
	if err != nil {
		return 0, err
	}

	start = time.Now()
	lossVal, err := loss.Compute(pred, b.Y, params)
	stats.LossComputationTime += time.Since(start)
	if err != nil {
		return 0, err
	}

	start = time.Now()
	grad, err := loss.Backward(pred, b.Y)
	if err != nil {
		return 0, err
	}
	if _, err := net.Backward(grad); err != nil {
		return 0, err
	}
	loss.PenaltyGrad(params)
	stats.BackwardPassTime += time.Since(start)

	start = time.Now()
	opt.Step(params)
	stats.UpdateTime += time.Since(start)

	return lossVal, nil
}

func printSpectrum(net *nn.GrowingConcatNet, inputSize int, label string, stats *utils.TimingStats) {
	start := time.Now()
	spec, err := isometry.Measure(net.Features, make([]float64, inputSize))
	stats.SpectrumTime += time.Since(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Spectrum error: %v\n", err)
		return
	}
	fmt.Printf("Feature-map spectrum %s: %s\n", label, spec)
}

func accuracy(pred, target *mat.Dense) float64 {
	n, _ := pred.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if argmax(pred.RawRowView(i)) == argmax(target.RawRowView(i)) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}
