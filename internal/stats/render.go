package stats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

const barWidth = 50

// RenderHistogram writes a terminal histogram of the deltas: one line per
// bin with its interval, a bar scaled to the fullest bin, and the count.
// The title carries mean and stddev. binCount <= 0 falls back to the bin
// law over the passed deltas.
func RenderHistogram(w io.Writer, deltas []time.Duration, binCount int) {
	if binCount <= 0 {
		binCount = BinCount(len(deltas))
	}
	summary := Summarize(deltas)
	bins := Histogram(deltas, binCount)

	title := color.New(color.Bold)
	title.Fprintf(w, "Delta time - mean: %.3fs - stdev: %.3fs\n",
		summary.Mean.Seconds(), summary.Stddev.Seconds())

	if len(bins) == 0 {
		fmt.Fprintln(w, "  (no deltas recorded)")
		return
	}

	most := 0
	for _, b := range bins {
		if b.Count > most {
			most = b.Count
		}
	}

	bar := color.New(color.FgCyan)
	for _, b := range bins {
		n := 0
		if most > 0 {
			n = b.Count * barWidth / most
		}
		fmt.Fprintf(w, "  %8.3fs - %8.3fs  ", b.Low.Seconds(), b.High.Seconds())
		bar.Fprint(w, strings.Repeat("█", n))
		fmt.Fprintf(w, " %d\n", b.Count)
	}
}

// RenderSummary writes the descriptive statistics block printed after a run.
func RenderSummary(w io.Writer, summary Summary) {
	label := color.New(color.FgGreen)
	label.Fprint(w, "Mean deltaTime:  ")
	fmt.Fprintf(w, "%.3fs\n", summary.Mean.Seconds())
	label.Fprint(w, "Stdev deltaTime: ")
	fmt.Fprintf(w, "%.3fs\n", summary.Stddev.Seconds())
	label.Fprint(w, "Max deltaTime:   ")
	fmt.Fprintf(w, "%.3fs\n", summary.Max.Seconds())
	label.Fprint(w, "Min deltaTime:   ")
	fmt.Fprintf(w, "%.3fs\n", summary.Min.Seconds())
}
