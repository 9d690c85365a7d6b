// Package engine wires the band classifier, reference registry, spot
// window, correlation engine, skimmer table, and activity monitor into
// the single-threaded event loop spec.md §2 and §5 describe.
package engine

import (
	"math"
	"sync/atomic"
	"time"

	"dxcluster/activity"
	"dxcluster/band"
	"dxcluster/correlate"
	"dxcluster/reference"
	"dxcluster/skimmer"
	"dxcluster/window"
)

// WrapGuardThreshold is the platform-safe maximum the total spot counter
// is allowed to reach before being reset (spec §4.7: "e.g. LONG_MAX/2").
// math.MaxInt64/2 is the Go analogue of the C long's half-range guard.
const WrapGuardThreshold = math.MaxInt64 / 2

// Config bundles the tunables spec.md §6 lists as configurable constants.
type Config struct {
	WindowCapacity   int
	MaxSkimmers      int
	Admission        window.AdmissionPolicy
	Tolerances       correlate.Tolerances
	InactiveAfterSec int64
	Coefficient      skimmer.CoefficientFunc
}

// Engine owns all mutable state for one streaming run (or one pass of a
// bootstrap batch run). It is not safe for concurrent use: the event loop
// that drives it is single-threaded and cooperative, per spec §5.
type Engine struct {
	cfg    Config
	Window *window.Ring
	Refs   *reference.Registry
	Corr   *correlate.Engine
	Table  *skimmer.Table
	Mon    *activity.Monitor

	totalSpots int64
}

// New builds an Engine from cfg and a reference registry the caller has
// already loaded (reference loading is config-fatal at startup, so it is
// the caller's responsibility, per spec §4.2).
func New(cfg Config, refs *reference.Registry) *Engine {
	win := window.NewRing(cfg.WindowCapacity)
	table := skimmer.NewTable(cfg.MaxSkimmers, cfg.Coefficient)
	return &Engine{
		cfg:    cfg,
		Window: win,
		Refs:   refs,
		Corr:   correlate.New(cfg.Tolerances),
		Table:  table,
		Mon:    activity.NewMonitor(table, cfg.InactiveAfterSec),
	}
}

// Ingest admits one candidate spot. If accepted, it is tagged with the
// candidate's reference status, inserted into the window, and — if the
// spot came from a reference skimmer — used to correlate against the
// window and fold any resulting tuples into the skimmer table.
//
// It returns whether the spot was admitted at all (the window-insertion
// decision), independent of whether any correlation was produced.
func (e *Engine) Ingest(c window.Candidate) bool {
	s, ok := e.cfg.Admission.Admit(c)
	if !ok {
		return false
	}
	s.Reference = e.Refs.Contains(s.De)

	if s.Reference {
		tuples := e.Corr.Correlate(e.Window, s)
		for _, tup := range tuples {
			e.Table.Apply(tup.Candidate, tup.Band, tup.DeltaPPM, tup.Time, s.Freq, tup.Reference)
		}
	}

	e.Window.Insert(s)
	e.bumpCounter()
	return true
}

// bumpCounter increments the total accepted-spot counter and applies the
// counter-wrap guard of spec §4.7: if the platform-safe maximum is
// reached, every counter is reset and every window slot marked analyzed,
// while skimmer averages and per-band counts are retained.
func (e *Engine) bumpCounter() {
	n := atomic.AddInt64(&e.totalSpots, 1)
	if n >= WrapGuardThreshold {
		atomic.StoreInt64(&e.totalSpots, 0)
		e.Window.Reset()
	}
}

// TotalSpots returns the number of spots accepted since the last counter
// reset (see bumpCounter).
func (e *Engine) TotalSpots() int64 {
	return atomic.LoadInt64(&e.totalSpots)
}

// Sweep runs the activity monitor's periodic pass (spec §4.6), intended
// to be invoked roughly every 15 seconds by the caller's wall-clock
// scheduler.
func (e *Engine) Sweep(nowUnix int64) {
	e.Mon.Sweep(nowUnix, e.TotalSpots())
}

// MaybeRefreshReferences checks sched against nowUnix and refreshes the
// reference registry if the daily trigger condition is met (spec §4.2).
func (e *Engine) MaybeRefreshReferences(sched *reference.Schedule, now int64) {
	if sched == nil {
		return
	}
	t := unixToTime(now)
	if sched.ShouldTrigger(t) {
		e.Refs.TryRefresh()
	}
}

// BandIndex exposes the band classifier for callers that need it outside
// the correlation path (e.g. reporting).
func BandIndex(freqKHz float64) (int, bool) {
	return band.Index(freqKHz)
}

func unixToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
