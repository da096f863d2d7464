package stats

import (
	"math"
	"testing"
	"time"
)

func secs(vals ...float64) []time.Duration {
	out := make([]time.Duration, len(vals))
	for i, v := range vals {
		out[i] = time.Duration(v * float64(time.Second))
	}
	return out
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil)
	if got != (Summary{}) {
		t.Fatalf("Summarize(nil) = %+v, want zero summary", got)
	}
}

func TestSummarize(t *testing.T) {
	deltas := secs(1.0, 2.0, 3.0, 4.0)
	got := Summarize(deltas)

	if got.Count != 4 {
		t.Fatalf("count = %d, want 4", got.Count)
	}
	if math.Abs(got.Mean.Seconds()-2.5) > 1e-9 {
		t.Fatalf("mean = %v, want 2.5s", got.Mean)
	}
	// Population stddev of 1,2,3,4 is sqrt(1.25).
	want := math.Sqrt(1.25)
	if math.Abs(got.Stddev.Seconds()-want) > 1e-9 {
		t.Fatalf("stddev = %v, want %.6fs", got.Stddev, want)
	}
	if got.Min != secs(1.0)[0] || got.Max != secs(4.0)[0] {
		t.Fatalf("min/max = %v/%v, want 1s/4s", got.Min, got.Max)
	}
}

func TestSummarizeSingle(t *testing.T) {
	got := Summarize(secs(1.5))
	if got.Count != 1 || got.Stddev != 0 {
		t.Fatalf("single delta summary = %+v, want count 1, stddev 0", got)
	}
	if got.Mean != got.Min || got.Min != got.Max {
		t.Fatalf("single delta: mean/min/max differ: %+v", got)
	}
}

func TestBinCount(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 1},
		{1, 4},
		{8, 8},
		{27, 12},
		{100, 19}, // ceil(4 * 100^(1/3)) = ceil(18.566)
	}
	for _, tt := range tests {
		if got := BinCount(tt.n); got != tt.want {
			t.Errorf("BinCount(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestHistogram(t *testing.T) {
	deltas := secs(1.0, 1.1, 1.2, 1.9, 2.0)
	bins := Histogram(deltas, 2)

	if len(bins) != 2 {
		t.Fatalf("got %d bins, want 2", len(bins))
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != len(deltas) {
		t.Fatalf("bin counts sum to %d, want %d", total, len(deltas))
	}
	if bins[0].Count != 3 || bins[1].Count != 2 {
		t.Fatalf("bin counts = %d,%d, want 3,2", bins[0].Count, bins[1].Count)
	}
	if bins[0].Low != deltas[0] || bins[1].High != deltas[4] {
		t.Fatalf("bin range [%v, %v], want [1s, 2s]", bins[0].Low, bins[1].High)
	}
}

func TestHistogramIdenticalValues(t *testing.T) {
	deltas := secs(2.0, 2.0, 2.0)
	bins := Histogram(deltas, 5)
	if len(bins) != 1 {
		t.Fatalf("got %d bins for identical values, want 1", len(bins))
	}
	if bins[0].Count != 3 {
		t.Fatalf("bin count = %d, want 3", bins[0].Count)
	}
}

func TestHistogramEmpty(t *testing.T) {
	if bins := Histogram(nil, 4); bins != nil {
		t.Fatalf("Histogram(nil) = %v, want nil", bins)
	}
}
