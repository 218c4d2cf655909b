// isoscore: Scores inputs with a trained network, optionally under encryption
//
// Modes:
//
//	local      run the whole network in plaintext
//	encrypted  score the readout under CKKS in-process and compare to plaintext
//	remote     ship encrypted features to an isoserve instance
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"gonum.org/v1/gonum/mat"

	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/nn"
	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/private"
	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/utils"
)

var (
	weightsFile = flag.String("weights", "", "Weights JSON file (required)")
	mode        = flag.String("mode", "local", "Scoring mode: local, encrypted, remote")
	addr        = flag.String("addr", "localhost:7700", "isoserve address for remote mode")
	samples     = flag.Int("samples", 4, "Random samples when no input file is given")
	inputFile   = flag.String("input", "", "Input JSON file: array of feature rows")
	seed        = flag.Int64("seed", 42, "Random seed")
	verbose     = flag.Bool("verbose", true, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║               Growing-Concat Network Scorer                  ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")

	if *weightsFile == "" {
		fmt.Fprintln(os.Stderr, "a weights file is required")
		os.Exit(1)
	}
	weights, err := utils.LoadWeights(*weightsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading weights: %v\n", err)
		os.Exit(1)
	}
	model, err := utils.RestoreNet(weights)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error restoring network: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Network %d/%d/%d, %d-wide features\n",
		model.InputSize, model.NumLayers, model.OutputSize, model.FeatureWidth())

	x, err := loadInputs(model.InputSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	n, _ := x.Dims()
	fmt.Printf("Scoring %d samples in %s mode\n\n", n, *mode)

	plain, err := model.Forward(x)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch *mode {
	case "local":
		for i := 0; i < n; i++ {
			fmt.Printf("Sample %d: %s\n", i, formatRow(plain.RawRowView(i)))
		}
	case "encrypted":
		if err := scoreEncrypted(model, x, plain); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "remote":
		if err := scoreRemote(model, x, plain); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", *mode)
		os.Exit(1)
	}
}

// scoreEncrypted runs client and scorer in one process: encrypt each feature
// row, evaluate the readout homomorphically, and compare against plaintext.
func scoreEncrypted(model *nn.GrowingConcatNet, x, plain *mat.Dense) error {
	stats := &utils.TimingStats{}
	totalStart := time.Now()

	fmt.Println("Initializing HE context...")
	start := time.Now()
	ctx, err := private.NewHeContext(model.FeatureWidth(), model.OutputSize)
	if err != nil {
		return err
	}
	stats.HEInitTime = time.Since(start)
	fmt.Printf("HE context ready: %s\n\n", private.EstimateCost(model.FeatureWidth(), model.OutputSize))

	readout, err := private.NewEncryptedReadout(model.Last.W.Value, model.Last.B.Value, ctx.ServerView())
	if err != nil {
		return err
	}
	features, err := model.Features(x)
	if err != nil {
		return err
	}

	n, _ := x.Dims()
	maxDiff := 0.0
	for i := 0; i < n; i++ {
		start = time.Now()
		ct, err := ctx.EncryptVector(features.RawRowView(i))
		stats.EncryptionTime += time.Since(start)
		if err != nil {
			return err
		}

		start = time.Now()
		scored, err := readout.Score(ct)
		stats.ScoringTime += time.Since(start)
		if err != nil {
			return err
		}

		start = time.Now()
		got, err := ctx.DecryptSlots(scored, model.OutputSize)
		stats.DecryptionTime += time.Since(start)
		if err != nil {
			return err
		}

		for j, v := range got {
			if d := math.Abs(v - plain.At(i, j)); d > maxDiff {
				maxDiff = d
			}
		}
		fmt.Printf("Sample %d: encrypted %s | plaintext %s\n",
			i, formatRow(got), formatRow(plain.RawRowView(i)))
	}

	fmt.Printf("\nMax |encrypted - plaintext|: %.6f\n", maxDiff)
	stats.TotalTime = time.Since(totalStart)
	utils.PrintTimingStats(stats, n)
	return nil
}

// scoreRemote ships encrypted features to an isoserve instance. Only
// ciphertexts and public evaluation keys cross the wire.
func scoreRemote(model *nn.GrowingConcatNet, x, plain *mat.Dense) error {
	stats := &utils.TimingStats{}
	totalStart := time.Now()

	start := time.Now()
	ctx, err := private.NewHeContext(model.FeatureWidth(), model.OutputSize)
	if err != nil {
		return err
	}
	stats.HEInitTime = time.Since(start)

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	protocol := private.NewProtocol(conn, conn)

	paramsBytes, evalKeyBytes, err := ctx.SetupBytes()
	if err != nil {
		return err
	}
	if err := protocol.SendSetup(paramsBytes, evalKeyBytes); err != nil {
		return err
	}
	if err := protocol.ReceiveReady(); err != nil {
		return err
	}
	fmt.Printf("Connected to %s, setup %d key bytes\n\n", *addr, len(evalKeyBytes))

	features, err := model.Features(x)
	if err != nil {
		return err
	}

	n, _ := x.Dims()
	maxDiff := 0.0
	for i := 0; i < n; i++ {
		start = time.Now()
		ct, err := ctx.EncryptVector(features.RawRowView(i))
		stats.EncryptionTime += time.Since(start)
		if err != nil {
			return err
		}
		ctBytes, err := ct.MarshalBinary()
		if err != nil {
			return err
		}

		start = time.Now()
		if err := protocol.SendScore(i, ctBytes, ct.Level()); err != nil {
			return err
		}
		resp, err := protocol.ReceiveResult()
		stats.ScoringTime += time.Since(start)
		if err != nil {
			return err
		}

		scored := new(rlwe.Ciphertext)
		if err := scored.UnmarshalBinary(resp.Ciphertext); err != nil {
			return err
		}
		start = time.Now()
		got, err := ctx.DecryptSlots(scored, model.OutputSize)
		stats.DecryptionTime += time.Since(start)
		if err != nil {
			return err
		}

		for j, v := range got {
			if d := math.Abs(v - plain.At(i, j)); d > maxDiff {
				maxDiff = d
			}
		}
		fmt.Printf("Sample %d: remote %s | local %s (%d ct bytes up, %d down)\n",
			i, formatRow(got), formatRow(plain.RawRowView(i)), len(ctBytes), len(resp.Ciphertext))
	}

	if err := protocol.SendDone(); err != nil {
		return err
	}
	fmt.Printf("\nMax |remote - local|: %.6f\n", maxDiff)
	stats.TotalTime = time.Since(totalStart)
	utils.PrintTimingStats(stats, n)
	return nil
}

// loadInputs reads feature rows from the input file, or draws random ones.
func loadInputs(inputSize int) (*mat.Dense, error) {
	if *inputFile != "" {
		data, err := os.ReadFile(*inputFile)
		if err != nil {
			return nil, err
		}
		var rows [][]float64
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("parse %s: %w", *inputFile, err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("%s holds no rows", *inputFile)
		}
		x := mat.NewDense(len(rows), inputSize, nil)
		for i, row := range rows {
			if len(row) != inputSize {
				return nil, fmt.Errorf("row %d has %d features, network wants %d", i, len(row), inputSize)
			}
			x.SetRow(i, row)
		}
		return x, nil
	}

	rng := rand.New(rand.NewSource(*seed))
	x := mat.NewDense(*samples, inputSize, nil)
	for i := 0; i < *samples; i++ {
		for j := 0; j < inputSize; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
	}
	return x, nil
}

func formatRow(row []float64) string {
	s := "["
	for i, v := range row {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%.4f", v)
	}
	return s + "]"
}
