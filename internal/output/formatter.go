// Package output renders the human-readable summary block of a measurement
// run for the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/wesleyorama2/dutlat/internal/stats"
)

// Formatter renders run reports in text format
type Formatter struct {
	NoColor bool
	scheme  *ColorScheme
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(noColor bool) *Formatter {
	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}
	return &Formatter{
		NoColor: noColor,
		scheme:  scheme,
	}
}

// NewAutoFormatter creates a formatter whose colors are enabled only when
// the writer is a terminal.
func NewAutoFormatter(w io.Writer) *Formatter {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}
	return NewFormatter(noColor)
}

// FormatSummary formats a finalized run report as the human-readable
// summary block: sample counts, loss percentages, and the latency
// distribution in device-clock units.
func (f *Formatter) FormatSummary(r *stats.Report) string {
	var buf strings.Builder

	buf.WriteString(f.scheme.Title.Sprint("▶ LATENCY SUMMARY") + "\n")

	f.line(&buf, "Hits", fmt.Sprintf("%d", r.Hits))
	f.line(&buf, "Misses", fmt.Sprintf("%d (%d cold)", r.Misses, r.ColdMisses))
	f.line(&buf, "Invalid timestamps", fmt.Sprintf("%d", r.InvalidTimestampHits))
	f.line(&buf, "Overwrites", fmt.Sprintf("%d", r.Overwrites))
	f.line(&buf, "Pre / Post records", fmt.Sprintf("%d / %d", r.PreCount, r.PostCount))
	f.line(&buf, "Total received", fmt.Sprintf("%d", r.TotalReceived))

	loss := f.scheme.Good
	if r.LossPct > 1.0 {
		loss = f.scheme.Warn
	}
	if r.LossPct > 10.0 {
		loss = f.scheme.Bad
	}
	buf.WriteString(fmt.Sprintf("  %s: %s\n", f.scheme.Label.Sprint("Loss"),
		loss.Sprintf("%.4f%% (%.4f%% incl. invalid)", r.LossPct, r.TotalLossPct)))

	buf.WriteString(f.scheme.Title.Sprint("▶ DISTRIBUTION") + "\n")
	f.line(&buf, "Mean", fmt.Sprintf("%.2f", r.Mean))
	f.line(&buf, "Variance", fmt.Sprintf("%.2f", r.Variance))
	f.line(&buf, "Min / Max", fmt.Sprintf("%d / %d", r.Percentiles.Min, r.Percentiles.Max))
	f.line(&buf, "p50 / p90 / p99", fmt.Sprintf("%d / %d / %d",
		r.Percentiles.P50, r.Percentiles.P90, r.Percentiles.P99))

	return buf.String()
}

func (f *Formatter) line(buf *strings.Builder, label, value string) {
	buf.WriteString(fmt.Sprintf("  %s: %s\n", f.scheme.Label.Sprint(label), f.scheme.Value.Sprint(value)))
}
