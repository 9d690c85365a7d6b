package bootstrap

import (
	"dxcluster/band"
	"dxcluster/correlate"
	"dxcluster/reference"
	"dxcluster/snapshot"
	"dxcluster/window"
)

// bandAccum is the batch-mode accumulator for one skimmer's one band: a
// running sum of observed/reference frequency ratios, not an IIR state
// (spec §4.8 step 1, spec.md §9's "two deviation representations" note).
type bandAccum struct {
	Count int
	AccAdj float64
	First  int64
	Last   int64
}

// SkimmerAccum is one skimmer's accumulated batch-mode state.
type SkimmerAccum struct {
	Call      string
	Reference bool
	Bands     [band.Count]bandAccum
}

// Pass holds the accumulated state of one full archive replay plus summary
// counters mirroring the original's console report fields.
type Pass struct {
	Skimmers   map[string]*SkimmerAccum
	TotalSpots int
	UsedSpots  int
	RefSpots   int
	FirstSpot  int64
	LastSpot   int64
}

// Config bundles the tunables a pass needs (spec §4.8, §6 CLI overrides
// -n/-m/-x).
type Config struct {
	WindowCapacity int
	Admission      window.AdmissionPolicy
	Tolerances     correlate.Tolerances
	MinRefSpots    int // MINREFSPOTS: minimum count to qualify for the regenerated reference file
}

// RunPass replays records once against refs, accumulating accadj/count per
// spec §4.8 step 1. It reuses the same window+correlation-engine machinery
// the streaming path uses; only the fold step (sum-of-ratios instead of
// IIR) differs, per spec.md §9's note that the two representations are
// kept separate.
func RunPass(records []Record, refs *reference.Registry, cfg Config) *Pass {
	win := window.NewRing(cfg.WindowCapacity)
	corr := correlate.New(cfg.Tolerances)
	p := &Pass{Skimmers: make(map[string]*SkimmerAccum)}

	for _, rec := range records {
		cand := window.Candidate{
			De:       rec.De,
			Dx:       rec.Dx,
			TimeMS:   rec.Time.Unix() * 1000,
			Snr:      rec.Snr,
			Freq:     rec.Freq,
			Mode:     rec.Mode,
			SpotType: window.SpotTypeCQ, // batch archive carries no spot_type column; admission never filters on it here
		}

		if p.TotalSpots == 0 {
			p.FirstSpot = rec.Time.Unix()
			p.LastSpot = rec.Time.Unix()
		} else {
			t := rec.Time.Unix()
			if t < p.FirstSpot {
				p.FirstSpot = t
			}
			if t > p.LastSpot {
				p.LastSpot = t
			}
		}
		p.TotalSpots++

		s, ok := admit(cfg.Admission, cand)
		if !ok {
			continue
		}
		s.Reference = refs.Contains(s.De)
		if s.Reference {
			p.RefSpots++
			tuples := corr.Correlate(win, s)
			for _, tup := range tuples {
				p.UsedSpots++
				p.fold(tup)
			}
		}
		win.Insert(s)
	}
	return p
}

// admit mirrors window.AdmissionPolicy.Admit but skips the spot_type
// predicate: the archive format has no spot_type column (spec §4.8's
// column list omits it), so every parsed row is CQ/DX-eligible by
// construction.
func admit(p window.AdmissionPolicy, c window.Candidate) (window.Spot, bool) {
	if c.Snr < p.MinSNR || c.Freq < p.MinFreq || c.Mode != p.Mode {
		return window.Spot{}, false
	}
	return window.Spot{De: c.De, Dx: c.Dx, Time: c.TimeMS / 1000, Snr: c.Snr, Freq: c.Freq}, true
}

func (p *Pass) fold(tup correlate.Tuple) {
	s, ok := p.Skimmers[tup.Candidate]
	if !ok {
		s = &SkimmerAccum{Call: tup.Candidate, Reference: tup.Reference}
		p.Skimmers[tup.Candidate] = s
	}
	bs := &s.Bands[tup.Band]
	ratio := 1 + tup.DeltaPPM/1e6
	bs.AccAdj += ratio
	bs.Count++
	if bs.First == 0 || tup.Time < bs.First {
		bs.First = tup.Time
	}
	if tup.Time > bs.Last {
		bs.Last = tup.Time
	}
}

// BandSummary is one band's batch-computed deviation.
type BandSummary struct {
	Count    int
	AvdevPPM float64
	Quality  int
	First    int64
	Last     int64
}

// SkimmerSummary is the final, per-skimmer batch report row.
type SkimmerSummary struct {
	Call      string
	Reference bool
	TotalCount int
	AvdevPPM  float64
	Bands     [band.Count]BandSummary
}

// Summarize converts a Pass's raw accumulators into the final per-band and
// consolidated ppm figures (spec §4.8 step 1's closing formulas).
func Summarize(p *Pass) []SkimmerSummary {
	out := make([]SkimmerSummary, 0, len(p.Skimmers))
	for _, s := range p.Skimmers {
		sum := SkimmerSummary{Call: s.Call, Reference: s.Reference}
		for i := range s.Bands {
			bs := s.Bands[i]
			if bs.Count == 0 {
				continue
			}
			sum.Bands[i] = BandSummary{
				Count:    bs.Count,
				AvdevPPM: 1e6 * (bs.AccAdj/float64(bs.Count) - 1),
				Quality:  snapshot.Quality(bs.Count),
				First:    bs.First,
				Last:     bs.Last,
			}
			sum.TotalCount += bs.Count
		}
		sum.AvdevPPM = consolidate(s)
		out = append(out, sum)
	}
	return out
}

// consolidate sums accadj/count over every band above
// skimmerConsolidationMinBand that has data, falling back to all bands with
// data when none of those has any, mirroring skimmer.consolidate's "prefer
// upper bands" rule but over summed ratios instead of an IIR average
// (spec §4.8 step 1).
func consolidate(s *SkimmerAccum) float64 {
	var upperAdj float64
	var upperCount int
	for i := band.Count - 1; i > skimmerConsolidationMinBand; i-- {
		if s.Bands[i].Count == 0 {
			continue
		}
		upperAdj += s.Bands[i].AccAdj
		upperCount += s.Bands[i].Count
	}
	if upperCount > 0 {
		return 1e6 * (upperAdj/float64(upperCount) - 1)
	}

	var allAdj float64
	var allCount int
	for i := range s.Bands {
		if s.Bands[i].Count == 0 {
			continue
		}
		allAdj += s.Bands[i].AccAdj
		allCount += s.Bands[i].Count
	}
	if allCount == 0 {
		return 0
	}
	return 1e6 * (allAdj/float64(allCount) - 1)
}

// skimmerConsolidationMinBand matches skimmer.ConsolidationMinBand: bands
// with index > 4 (20m and up) are preferred for the consolidated figure.
const skimmerConsolidationMinBand = 4
