package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether timing statistics are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// TimingStats holds timing information for different operations
type TimingStats struct {
	TotalTime           time.Duration
	DataGenTime         time.Duration
	ModelInitTime       time.Duration
	ForwardPassTime     time.Duration
	BackwardPassTime    time.Duration
	UpdateTime          time.Duration
	LossComputationTime time.Duration
	SpectrumTime        time.Duration
	HEInitTime          time.Duration
	EncryptionTime      time.Duration
	ScoringTime         time.Duration
	DecryptionTime      time.Duration
}

// PrintTimingStats prints detailed timing statistics.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats, steps int) {
	if !Verbose {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total time: %v\n", stats.TotalTime)
	if steps > 0 {
		fmt.Fprintf(Output, "Average time per step: %v\n", stats.TotalTime/time.Duration(steps))
		fmt.Fprintf(Output, "Steps completed: %d\n", steps)
	}
	fmt.Fprintln(Output, "\nBreakdown by operation:")
	printPhase(stats, "Data generation", stats.DataGenTime)
	printPhase(stats, "Model initialization", stats.ModelInitTime)
	printPhase(stats, "Forward pass", stats.ForwardPassTime)
	printPhase(stats, "Backward pass", stats.BackwardPassTime)
	printPhase(stats, "Weight updates", stats.UpdateTime)
	printPhase(stats, "Loss computation", stats.LossComputationTime)
	printPhase(stats, "Spectrum analysis", stats.SpectrumTime)
	printPhase(stats, "HE initialization", stats.HEInitTime)
	printPhase(stats, "Encryption", stats.EncryptionTime)
	printPhase(stats, "Encrypted scoring", stats.ScoringTime)
	printPhase(stats, "Decryption", stats.DecryptionTime)
	if steps > 0 && stats.ForwardPassTime > 0 {
		fmt.Fprintln(Output, "\nPerformance metrics:")
		fmt.Fprintf(Output, "  Average forward pass time: %v\n", stats.ForwardPassTime/time.Duration(steps))
		fmt.Fprintf(Output, "  Average backward pass time: %v\n", stats.BackwardPassTime/time.Duration(steps))
	}
}

// printPhase skips phases that never ran so training runs do not list the
// encryption rows and scoring runs do not list the training rows.
func printPhase(stats *TimingStats, label string, d time.Duration) {
	if d == 0 {
		return
	}
	fmt.Fprintf(Output, "  %s: %v (%.1f%%)\n", label, d, float64(d)/float64(stats.TotalTime)*100)
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
