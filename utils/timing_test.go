package utils

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestDurationUS(t *testing.T) {
	d := 1234*time.Microsecond + 567*time.Nanosecond
	got := DurationUS(d)
	if math.Abs(got-1234.567) > 0.001 {
		t.Fatalf("want 1234.567µs, got %.3f", got)
	}
}

func TestPrintTimingStatsRespectsVerbose(t *testing.T) {
	stats := &TimingStats{
		TotalTime:       100 * time.Millisecond,
		ForwardPassTime: 60 * time.Millisecond,
	}

	var buf strings.Builder
	oldOutput, oldVerbose := Output, Verbose
	Output = &buf
	defer func() {
		Output = oldOutput
		Verbose = oldVerbose
	}()

	Verbose = false
	PrintTimingStats(stats, 10)
	if buf.Len() != 0 {
		t.Errorf("expected no output with Verbose off, got %q", buf.String())
	}

	Verbose = true
	PrintTimingStats(stats, 10)
	out := buf.String()
	if !strings.Contains(out, "TIMING STATISTICS") {
		t.Errorf("missing header in %q", out)
	}
	if !strings.Contains(out, "Forward pass") {
		t.Errorf("missing forward pass row in %q", out)
	}
	if strings.Contains(out, "Encryption") {
		t.Errorf("zero-duration phase should be skipped, got %q", out)
	}
}
