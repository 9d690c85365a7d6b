// Batch report rendering (spec §6 CLI surface): the text summary skewbatch
// prints after a two-pass bootstrap analysis, adapted from the original's
// printboth/column-wrapped banner logic in skew.c.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"dxcluster/band"
	"dxcluster/bootstrap"
)

// SortOrder selects how BatchReport orders the skimmer table.
type SortOrder int

const (
	// SortByCall orders rows alphabetically by callsign.
	SortByCall SortOrder = iota
	// SortByBest orders rows by ascending absolute consolidated deviation.
	SortByBest
	// SortByWorst orders rows by descending absolute consolidated deviation.
	SortByWorst
)

// BatchOptions configures one report render.
type BatchOptions struct {
	Sort      SortOrder
	Web       bool   // forweb: leaner layout, no banner, trailing timestamp
	Target    string // non-empty: narrow spot-rate line to this callsign
	MinSpots  int    // minspots: qualification threshold echoed in the criteria footer
	MaxApart  int    // maxapart seconds, echoed in the criteria footer
	MinSNR    int
	MaxErrKHz float64
	Mode      string
	Quiet     bool // suppress the stderr copy; printboth's "quiet"
}

// WriteBatchReport renders report to stdout/stderr the way the original's
// printboth does: unconditionally to stderr unless quiet, and to stdout only
// when stdout is not a terminal (i.e. piped or redirected). isatty.IsTerminal
// decides which path stdout takes (spec §6, DOMAIN STACK go-isatty wiring).
func WriteBatchReport(stdout, stderr io.Writer, stdoutFD uintptr, report *bootstrap.Report, opts BatchOptions) {
	text := RenderBatchReport(report, opts)
	if !opts.Quiet {
		io.WriteString(stderr, text)
	}
	if !isatty.IsTerminal(stdoutFD) && !isatty.IsCygwinTerminal(stdoutFD) {
		io.WriteString(stdout, text)
	}
}

// RenderBatchReport builds the full report text: optional banner, table,
// spot-rate line, and qualification-criteria footer.
func RenderBatchReport(report *bootstrap.Report, opts BatchOptions) string {
	var b strings.Builder

	if !opts.Web {
		fmt.Fprintf(&b, "Skimmer accuracy analysis based on RBN offline data.\n\n")
	}

	rows := sortedSkimmers(report.Skimmers, opts.Sort)

	if !opts.Web {
		writeReferenceBanner(&b, rows)
	}

	writeTable(&b, rows)

	fmt.Fprintf(&b, "\n")
	writeSpotRateLine(&b, report, opts)

	writeCriteria(&b, report, rows, opts)

	if opts.Web {
		fmt.Fprintf(&b, "\nLast updated %s UTC\n", time.Now().UTC().Format("2006-01-02 15:04:05"))
	}

	return b.String()
}

func sortedSkimmers(in []bootstrap.SkimmerSummary, order SortOrder) []bootstrap.SkimmerSummary {
	out := make([]bootstrap.SkimmerSummary, len(in))
	copy(out, in)
	switch order {
	case SortByBest:
		sort.Slice(out, func(i, j int) bool {
			return math.Abs(out[i].AvdevPPM) < math.Abs(out[j].AvdevPPM)
		})
	case SortByWorst:
		sort.Slice(out, func(i, j int) bool {
			return math.Abs(out[i].AvdevPPM) > math.Abs(out[j].AvdevPPM)
		})
	default:
		sort.Slice(out, func(i, j int) bool { return out[i].Call < out[j].Call })
	}
	return out
}

// writeReferenceBanner lists reference skimmers wrapped at column 60,
// mirroring skew.c's "Reference skimmers: a, b, ... and z." loop.
func writeReferenceBanner(b *strings.Builder, rows []bootstrap.SkimmerSummary) {
	var refs []string
	for _, s := range rows {
		if s.Reference {
			refs = append(refs, s.Call)
		}
	}
	prefix := "Reference skimmers: "
	b.WriteString(prefix)
	if len(refs) == 0 {
		b.WriteString("none.\n\n")
		return
	}
	column := len(prefix)
	for i, call := range refs {
		var piece string
		if i == len(refs)-1 {
			piece = fmt.Sprintf("and %s", call)
		} else {
			piece = fmt.Sprintf("%s, ", call)
		}
		b.WriteString(piece)
		column += len(piece)
		if column > 60 && i < len(refs)-1 {
			b.WriteString("\n")
			column = 5
		}
	}
	b.WriteString(".\n\n")
}

// writeTable prints the fixed-width per-band deviation(quality) grid.
func writeTable(b *strings.Builder, rows []bootstrap.SkimmerSummary) {
	fmt.Fprintf(b, "%-10s %7s", "skimmer", "avdev")
	for i := 0; i < band.Count; i++ {
		fmt.Fprintf(b, " %9s", band.Name(i))
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "%s\n", strings.Repeat("-", 10+8+band.Count*10))

	for _, s := range rows {
		name := s.Call
		if s.Reference {
			name += "*"
		}
		fmt.Fprintf(b, "%-10s %+7.2f", name, s.AvdevPPM)
		for i := 0; i < band.Count; i++ {
			bs := s.Bands[i]
			if bs.Count == 0 {
				fmt.Fprintf(b, " %9s", "-")
				continue
			}
			fmt.Fprintf(b, " %+6.2f(%d)", bs.AvdevPPM, bs.Quality)
		}
		b.WriteString("\n")
	}
}

// writeSpotRateLine reports spots/hour for a single targeted skimmer, or
// spots/minute across the whole run, mirroring skew.c's two branches.
func writeSpotRateLine(b *strings.Builder, report *bootstrap.Report, opts BatchOptions) {
	if opts.Target != "" {
		for _, s := range report.Skimmers {
			if s.Call != opts.Target {
				continue
			}
			var first, last int64
			var count int
			for i := range s.Bands {
				bs := s.Bands[i]
				if bs.Count == 0 {
					continue
				}
				count += bs.Count
				if first == 0 || bs.First < first {
					first = bs.First
				}
				if bs.Last > last {
					last = bs.Last
				}
			}
			span := float64(last - first)
			rate := 0.0
			if span > 0 {
				rate = 3600.0 * float64(count) / span
			}
			fmt.Fprintf(b, "%d spots/hour from %s\n", int(rate), opts.Target)
			return
		}
		fmt.Fprintf(b, "skimmer %s not found in data set\n", opts.Target)
		return
	}

	span := float64(report.LastSpot - report.FirstSpot)
	rate := 0.0
	if span > 0 {
		rate = 60.0 * float64(report.TotalSpots) / span
	}
	fmt.Fprintf(b, "%d RBN spots, %.1f spots/minute, %d skimmers, mode %s\n",
		report.TotalSpots, rate, len(report.Skimmers), opts.Mode)
}

// writeCriteria echoes the qualification criteria footer (skew.c's closing
// sprintf/printboth block).
func writeCriteria(b *strings.Builder, report *bootstrap.Report, rows []bootstrap.SkimmerSummary, opts BatchOptions) {
	qualified := 0
	for _, s := range rows {
		if s.TotalCount >= opts.MinSpots {
			qualified++
		}
	}

	used := report.UsedSpots
	if opts.Target != "" && used <= opts.MinSpots {
		used = 0
	}

	fmt.Fprintf(b, "\n%d spots from %d skimmers qualified for analysis by meeting\nthe following criteria:\n",
		used, qualified)
	if opts.Target != "" {
		fmt.Fprintf(b, " * Spotted by the selected skimmer.\n")
	}
	fmt.Fprintf(b, " * Mode of spot is %s.\n", opts.Mode)
	fmt.Fprintf(b, " * Also spotted by a reference skimmer within %ds.\n", opts.MaxApart)
	fmt.Fprintf(b, " * SNR is %ddB or higher.\n", opts.MinSNR)
	fmt.Fprintf(b, " * Frequency deviation from reference skimmer is %.1fkHz or less.\n", opts.MaxErrKHz)
	fmt.Fprintf(b, " * At least %d spots from same skimmer in data set.\n", opts.MinSpots)
}
