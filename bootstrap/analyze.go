package bootstrap

import (
	"fmt"

	"dxcluster/reference"
)

// Report is the final batch-analysis result: pass-2 skimmer summaries plus
// the run-level counters the original's console report prints.
type Report struct {
	Skimmers   []SkimmerSummary
	TotalSpots int
	UsedSpots  int
	RefSpots   int
	FirstSpot  int64
	LastSpot   int64
}

// Analyze runs the full two-pass bootstrap (spec §4.8): pass 1 replays
// records against the anchor registry and accumulates per-skimmer/per-band
// ratios; any skimmer meeting minRefSpots/accuracy is written to
// referenceOutPath; pass 2 replays the same records against the freshly
// written reference file and its result is returned.
func Analyze(records []Record, anchors *reference.Registry, cfg Config, referenceOutPath string) (*Report, error) {
	pass1 := RunPass(records, anchors, cfg)
	summaries1 := Summarize(pass1)

	if err := WriteReferenceFile(referenceOutPath, summaries1, cfg.MinRefSpots); err != nil {
		return nil, fmt.Errorf("bootstrap: regenerate reference file: %w", err)
	}

	refs2, err := reference.NewRegistry(referenceOutPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load regenerated reference file: %w", err)
	}

	pass2 := RunPass(records, refs2, cfg)
	summaries2 := Summarize(pass2)

	return &Report{
		Skimmers:   summaries2,
		TotalSpots: pass2.TotalSpots,
		UsedSpots:  pass2.UsedSpots,
		RefSpots:   pass2.RefSpots,
		FirstSpot:  pass2.FirstSpot,
		LastSpot:   pass2.LastSpot,
	}, nil
}
