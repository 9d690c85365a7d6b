package bootstrap

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// tier is one accuracy bracket the regenerated reference file groups
// skimmers into (spec §4.8 step 2).
type tier struct {
	label string
	max   float64
}

var tiers = []tier{
	{"< 0.1 ppm", 0.1},
	{"< 0.2 ppm", 0.2},
	{"< 0.3 ppm", 0.3},
}

// WriteReferenceFile regenerates the reference file at path: every skimmer
// with TotalCount >= minRefSpots and |AvdevPPM| < 0.3 is written, grouped
// into tiers with comment headers, sorted by callsign within each tier. The
// write is atomic (temp file + rename), per spec §6's "regenerated
// atomically by the bootstrap analyzer".
func WriteReferenceFile(path string, summaries []SkimmerSummary, minRefSpots int) error {
	grouped := make([][]SkimmerSummary, len(tiers))
	for _, s := range summaries {
		if s.TotalCount < minRefSpots {
			continue
		}
		dev := math.Abs(s.AvdevPPM)
		for i, t := range tiers {
			if dev < t.max {
				grouped[i] = append(grouped[i], s)
				break
			}
		}
	}
	for i := range grouped {
		sort.Slice(grouped[i], func(a, b int) bool { return grouped[i][a].Call < grouped[i][b].Call })
	}

	buf := make([]byte, 0, 4096)
	for i, t := range tiers {
		if len(grouped[i]) == 0 {
			continue
		}
		buf = append(buf, fmt.Sprintf("# %s\n", t.label)...)
		for _, s := range grouped[i] {
			buf = append(buf, fmt.Sprintf("%s\n", s.Call)...)
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".reference-*")
	if err != nil {
		return fmt.Errorf("bootstrap: create temp reference file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("bootstrap: write temp reference file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("bootstrap: close temp reference file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("bootstrap: rename temp reference file: %w", err)
	}
	return nil
}
