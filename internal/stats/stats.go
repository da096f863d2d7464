// Package stats computes descriptive statistics and histograms over
// inter-trigger delta times.
package stats

import (
	"math"
	"time"
)

// Summary holds descriptive statistics over a set of delta times.
type Summary struct {
	Count  int           `json:"count"`
	Mean   time.Duration `json:"mean"`
	Stddev time.Duration `json:"stddev"`
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
}

// Summarize computes count, mean, population standard deviation, min and
// max. An empty input yields a zero Summary.
func Summarize(deltas []time.Duration) Summary {
	if len(deltas) == 0 {
		return Summary{}
	}

	var sum float64
	min, max := deltas[0], deltas[0]
	for _, d := range deltas {
		sum += d.Seconds()
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	mean := sum / float64(len(deltas))

	var sq float64
	for _, d := range deltas {
		diff := d.Seconds() - mean
		sq += diff * diff
	}
	stddev := math.Sqrt(sq / float64(len(deltas)))

	return Summary{
		Count:  len(deltas),
		Mean:   time.Duration(mean * float64(time.Second)),
		Stddev: time.Duration(stddev * float64(time.Second)),
		Min:    min,
		Max:    max,
	}
}

// BinCount returns the number of histogram bins for n recorded deltas:
// ceil(4 * n^(1/3)), never less than 1.
func BinCount(n int) int {
	if n <= 0 {
		return 1
	}
	bins := int(math.Ceil(4 * math.Cbrt(float64(n))))
	if bins < 1 {
		bins = 1
	}
	return bins
}

// Bin is one histogram bin: the half-open interval [Low, High) and the
// number of deltas falling in it. The last bin is closed on both ends.
type Bin struct {
	Low   time.Duration
	High  time.Duration
	Count int
}

// Histogram distributes deltas over equal-width bins spanning
// [min, max]. With identical values all deltas land in a single bin.
func Histogram(deltas []time.Duration, bins int) []Bin {
	if len(deltas) == 0 || bins < 1 {
		return nil
	}

	min, max := deltas[0], deltas[0]
	for _, d := range deltas {
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}

	if min == max {
		return []Bin{{Low: min, High: max, Count: len(deltas)}}
	}

	width := float64(max-min) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Low = min + time.Duration(float64(i)*width)
		out[i].High = min + time.Duration(float64(i+1)*width)
	}
	out[bins-1].High = max

	for _, d := range deltas {
		i := int(float64(d-min) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}
