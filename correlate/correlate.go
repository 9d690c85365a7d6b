// Package correlate implements the co-reception correlation engine: on
// arrival of a spot from a reference skimmer, it scans the spot window for
// unanalyzed matches and emits deviation tuples (spec.md §4.4).
package correlate

import (
	"math"

	"dxcluster/band"
	"dxcluster/window"
)

// Tolerances bundles the predicate thresholds from spec §4.4.
type Tolerances struct {
	MaxErrKHz float64 // absolute frequency tolerance
	MaxErrPPM float64 // relative frequency tolerance
	MaxApart  int64   // seconds
}

// Tuple is one emitted correlation: candidate skimmer De, the band derived
// from the reference spot's frequency, the ppm deviation, and the
// candidate's spot timestamp.
type Tuple struct {
	Candidate string
	Band      int
	DeltaPPM  float64
	Time      int64
	Reference bool // the candidate window slot's own reference status
}

// Engine runs the six-predicate match against a spot window.
type Engine struct {
	tol Tolerances
}

// New builds a correlation engine with the given tolerances.
func New(tol Tolerances) *Engine {
	return &Engine{tol: tol}
}

// Correlate scans win for every slot matching ref under all six predicates
// of spec §4.4, flips each match's Analyzed flag, and returns the emitted
// tuples. ref must be a spot captured from a reference skimmer.
func (e *Engine) Correlate(win *window.Ring, ref window.Spot) []Tuple {
	bandIdx, ok := band.Index(ref.Freq)
	if !ok {
		// Unknown band for the reference frequency: skip correlation
		// entirely, per spec §4.4.
		return nil
	}

	var tuples []Tuple
	var matched []int
	win.Scan(func(idx int, p window.Spot) {
		if !e.matches(p, ref) {
			return
		}
		delta := 1e6 * (p.Freq - ref.Freq) / ref.Freq
		matched = append(matched, idx)
		tuples = append(tuples, Tuple{
			Candidate: p.De,
			Band:      bandIdx,
			DeltaPPM:  delta,
			Time:      p.Time,
			Reference: p.Reference,
		})
	})
	for _, idx := range matched {
		win.MarkAnalyzed(idx)
	}
	return tuples
}

// matches evaluates the six predicates of spec §4.4 against one window
// slot p given the triggering reference spot ref. It intentionally does
// not mutate p or win; Correlate applies MarkAnalyzed only for slots that
// pass every predicate.
func (e *Engine) matches(p, ref window.Spot) bool {
	if p.Analyzed {
		return false
	}
	if p.Dx != ref.Dx {
		return false
	}
	if math.Abs(p.Freq-ref.Freq) > e.tol.MaxErrKHz {
		return false
	}
	ppm := math.Abs(1e6 * (p.Freq - ref.Freq) / ref.Freq)
	if ppm >= e.tol.MaxErrPPM {
		return false
	}
	if p.De == ref.De {
		return false
	}
	if abs64(p.Time-ref.Time) > e.tol.MaxApart {
		return false
	}
	return true
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
