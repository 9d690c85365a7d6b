// Package skimmer maintains the per-callsign, per-band running deviation
// table that the correlation engine feeds (spec.md §4.5).
package skimmer

import (
	"math"
	"sync"

	"dxcluster/band"
)

// ConsolidationMinBand is the band index above which (exclusive of lower
// indices) the consolidated skimmer average prefers to draw from: bands
// 0..4 are 160m..30m, band index 5 (20m) is the first "upper" band.
const ConsolidationMinBand = 4

// TC is the streaming IIR filter's base time constant (spec §4.5).
const TC = 50.0

// BaseFreqKHz is the normalization frequency for the filter coefficient.
const BaseFreqKHz = 14000.0

// CoefficientFunc computes the IIR filter coefficient alpha for a
// correlation observed at refFreqKHz. The default is the sqrt form spec.md
// §9 prefers; the legacy linear form is kept as an alternate strategy.
type CoefficientFunc func(refFreqKHz float64) float64

// SqrtCoefficient is the preferred streaming coefficient:
// alpha = sqrt(freq/14000) / TC.
func SqrtCoefficient(refFreqKHz float64) float64 {
	return math.Sqrt(refFreqKHz/BaseFreqKHz) / TC
}

// LinearCoefficient is the earlier source's coefficient:
// alpha = freq / (TC * 14000).
func LinearCoefficient(refFreqKHz float64) float64 {
	return refFreqKHz / (TC * BaseFreqKHz)
}

// BandState is the running per-band deviation state for one skimmer.
type BandState struct {
	Count    int
	Active   bool
	AvdevPPM float64
	AccAdj   float64 // batch-mode only: accumulated observed/reference ratio
	Last     int64
	First    int64
	Quality  int // batch-mode only
}

// Skimmer is the consolidated per-callsign record.
type Skimmer struct {
	Call      string
	Reference bool
	Active    bool
	Last      int64
	AvdevPPM  float64
	Bands     [band.Count]BandState
}

// Table is the keyed store of skimmers, with the overflow-clear policy of
// spec §4.5.
type Table struct {
	mu          sync.Mutex
	skimmers    map[string]*Skimmer
	maxSkimmers int
	coefficient CoefficientFunc
}

// NewTable builds an empty table. maxSkimmers<=0 falls back to the spec
// default (500); coeff<=nil falls back to SqrtCoefficient.
func NewTable(maxSkimmers int, coeff CoefficientFunc) *Table {
	if maxSkimmers <= 0 {
		maxSkimmers = 500
	}
	if coeff == nil {
		coeff = SqrtCoefficient
	}
	return &Table{
		skimmers:    make(map[string]*Skimmer, maxSkimmers),
		maxSkimmers: maxSkimmers,
		coefficient: coeff,
	}
}

// Count returns the number of skimmers currently tracked.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.skimmers)
}

// Get returns a copy of the named skimmer's state, if present.
func (t *Table) Get(call string) (Skimmer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.skimmers[call]
	if !ok {
		return Skimmer{}, false
	}
	return *s, true
}

// Snapshot returns a copy of every tracked skimmer, keyed by callsign.
func (t *Table) Snapshot() map[string]Skimmer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Skimmer, len(t.skimmers))
	for call, s := range t.skimmers {
		out[call] = *s
	}
	return out
}

// Apply folds one correlation tuple (call, bandIdx, deltaPPM, observed at t,
// derived from a reference spot at refFreqKHz) into the table, per spec
// §4.5 steps 1-5.
func (t *Table) Apply(call string, bandIdx int, deltaPPM float64, at int64, refFreqKHz float64, isReference bool) {
	if bandIdx < 0 || bandIdx >= band.Count {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.skimmers[call]
	if !ok {
		if len(t.skimmers) >= t.maxSkimmers {
			t.skimmers = make(map[string]*Skimmer, t.maxSkimmers)
		}
		s = &Skimmer{Call: call, Reference: isReference}
		t.skimmers[call] = s
	}

	alpha := t.coefficient(refFreqKHz)
	bs := &s.Bands[bandIdx]
	bs.AvdevPPM = (1-alpha)*bs.AvdevPPM + alpha*deltaPPM
	bs.Count++
	bs.Last = at
	if bs.First == 0 || at < bs.First {
		bs.First = at
	}
	bs.Active = true

	s.Last = at
	s.Active = true
	s.AvdevPPM = consolidate(s)
}

// consolidate computes the skimmer-level average deviation: the mean of
// active bands with index > ConsolidationMinBand, falling back to the
// mean over all active bands if none qualify (spec §4.5 step 5). It is
// only ever called immediately after at least one band became active, so
// the "all active bands" fallback can never divide by zero.
func consolidate(s *Skimmer) float64 {
	var upperSum float64
	var upperCount int
	var allSum float64
	var allCount int

	for i := range s.Bands {
		if !s.Bands[i].Active {
			continue
		}
		allSum += s.Bands[i].AvdevPPM
		allCount++
		if i > ConsolidationMinBand {
			upperSum += s.Bands[i].AvdevPPM
			upperCount++
		}
	}

	if upperCount > 0 {
		return upperSum / float64(upperCount)
	}
	if allCount == 0 {
		// Structurally unreachable: Apply always activates a band before
		// calling consolidate.
		panic("skimmer: consolidate called with no active bands")
	}
	return allSum / float64(allCount)
}

// Sweep applies the activity monitor's idle demotion (spec §4.6) across
// every skimmer: any band idle for at least inactiveAfter seconds is
// deactivated, and the skimmer's own Active flag recomputed as the OR of
// its bands.
func (t *Table) Sweep(now int64, inactiveAfter int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.skimmers {
		active := false
		for i := range s.Bands {
			bs := &s.Bands[i]
			if bs.Active && now-bs.Last >= inactiveAfter {
				bs.Active = false
			}
			active = active || bs.Active
		}
		s.Active = active
	}
}

// Reset clears the entire table, the same clear Apply performs inline on
// overflow (spec §4.5 overflow policy).
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.skimmers = make(map[string]*Skimmer, t.maxSkimmers)
}
