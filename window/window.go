// Package window holds the bounded ring buffer of recently accepted spots
// the correlation engine scans against each incoming reference spot.
package window

import "sync"

// Spot is a single co-reception event: receiver De heard transmitter Dx on
// Freq (kHz) at Time with signal report Snr. Reference records whether De
// was a reference skimmer at the moment this spot was captured; Analyzed
// records whether this slot has already contributed to a correlation.
type Spot struct {
	De        string
	Dx        string
	Time      int64 // epoch seconds
	Snr       int
	Freq      float64 // kHz
	Reference bool
	Analyzed  bool
}

// DefaultCapacity is SPOTSWINDOW from spec.md §6.
const DefaultCapacity = 1000

// Ring is a fixed-capacity circular buffer of Spot. An unwritten slot is
// observable only as Analyzed=true, so Scan never matches it.
type Ring struct {
	mu       sync.Mutex
	slots    []Spot
	writeIdx int
}

// NewRing allocates a ring of the given capacity, with every slot
// pre-marked analyzed so a scan before the first Insert finds nothing.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	slots := make([]Spot, capacity)
	for i := range slots {
		slots[i].Analyzed = true
	}
	return &Ring{slots: slots}
}

// Cap returns the ring's fixed capacity.
func (r *Ring) Cap() int {
	return len(r.slots)
}

// Insert writes s at the current write pointer and advances it modulo
// capacity, overwriting whatever spot previously lived there.
func (r *Ring) Insert(s Spot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[r.writeIdx] = s
	r.writeIdx = (r.writeIdx + 1) % len(r.slots)
}

// Scan calls visit for every slot in the ring, in unspecified but
// deterministic-for-this-implementation order (ascending index). visit
// receives the slot index so the caller can mark it analyzed via MarkAnalyzed
// once Scan has returned.
func (r *Ring) Scan(visit func(idx int, s Spot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.slots {
		visit(i, s)
	}
}

// MarkAnalyzed flips the Analyzed flag for the slot at idx; an out-of-range
// idx is ignored. It does not check whether an Insert has overwritten the
// slot since it was scanned. It takes the ring's lock, so it must not be
// called from inside a Scan visit.
func (r *Ring) MarkAnalyzed(idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 0 || idx >= len(r.slots) {
		return
	}
	r.slots[idx].Analyzed = true
}

// Reset marks every slot analyzed without clearing its payload, used by
// the counter-wrap guard (spec §4.7): skimmer averages and per-band counts
// survive, but the window no longer offers any of its current contents
// for future correlation.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		r.slots[i].Analyzed = true
	}
}

// AdmissionPolicy captures the predicates spec §4.3 uses to decide whether
// an incoming spot is even offered to Insert.
type AdmissionPolicy struct {
	MinSNR  int
	MinFreq float64 // kHz
	Mode    string  // e.g. "CW" or "RTTY"
}

// SpotType enumerates the upstream spot classifications the admission
// policy accepts.
type SpotType string

const (
	SpotTypeCQ SpotType = "CQ"
	SpotTypeDX SpotType = "DX"
)

// Candidate is the raw shape a spot takes before admission filtering.
type Candidate struct {
	De       string
	Dx       string
	TimeMS   int64 // upstream millisecond timestamp
	Snr      int
	Freq     float64
	Mode     string
	SpotType SpotType
}

// Admit applies the §4.3 admission policy and, if accepted, returns the
// window Spot ready for Insert (with Time derived by integer division of
// the millisecond timestamp, and Reference left for the caller to set).
func (p AdmissionPolicy) Admit(c Candidate) (Spot, bool) {
	if c.Snr < p.MinSNR {
		return Spot{}, false
	}
	if c.Freq < p.MinFreq {
		return Spot{}, false
	}
	if c.Mode != p.Mode {
		return Spot{}, false
	}
	if c.SpotType != SpotTypeCQ && c.SpotType != SpotTypeDX {
		return Spot{}, false
	}
	return Spot{
		De:   c.De,
		Dx:   c.Dx,
		Time: c.TimeMS / 1000,
		Snr:  c.Snr,
		Freq: c.Freq,
	}, true
}
