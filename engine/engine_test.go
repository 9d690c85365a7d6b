package engine

import (
	"os"
	"path/filepath"
	"testing"

	"dxcluster/correlate"
	"dxcluster/reference"
	"dxcluster/window"
)

func newTestEngine(t *testing.T, refs ...string) *Engine {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "reference")
	content := ""
	for _, r := range refs {
		content += r + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write reference file: %v", err)
	}
	reg, err := reference.NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	cfg := Config{
		WindowCapacity:   100,
		MaxSkimmers:      50,
		InactiveAfterSec: 300,
		Admission: window.AdmissionPolicy{
			MinSNR:  6,
			MinFreq: 1800,
			Mode:    "CW",
		},
		Tolerances: correlate.Tolerances{
			MaxErrKHz: 0.5,
			MaxErrPPM: 60,
			MaxApart:  30,
		},
	}
	return New(cfg, reg)
}

func TestIngestRejectsBelowAdmissionPolicy(t *testing.T) {
	e := newTestEngine(t, "REF1")
	ok := e.Ingest(window.Candidate{De: "X", Dx: "Y", Snr: 1, Freq: 14020, Mode: "CW", SpotType: window.SpotTypeCQ, TimeMS: 1000000})
	if ok {
		t.Fatalf("expected rejection below MinSNR")
	}
	if e.TotalSpots() != 0 {
		t.Fatalf("expected no counter increment on rejection")
	}
}

func TestIngestCorrelatesReferenceAgainstWindow(t *testing.T) {
	e := newTestEngine(t, "REF1")

	// Candidate (non-reference) spot first.
	ok := e.Ingest(window.Candidate{De: "X", Dx: "AA1A", Snr: 20, Freq: 14020.10, Mode: "CW", SpotType: window.SpotTypeCQ, TimeMS: 1000000})
	if !ok {
		t.Fatalf("expected candidate spot admitted")
	}

	// Reference spot now triggers correlation against the window.
	ok = e.Ingest(window.Candidate{De: "REF1", Dx: "AA1A", Snr: 20, Freq: 14020.00, Mode: "CW", SpotType: window.SpotTypeDX, TimeMS: 1005000})
	if !ok {
		t.Fatalf("expected reference spot admitted")
	}

	s, found := e.Table.Get("X")
	if !found {
		t.Fatalf("expected skimmer X to appear in the table after correlation")
	}
	if s.Bands[5].Count != 1 {
		t.Fatalf("expected 1 qualified spot on 20m, got %d", s.Bands[5].Count)
	}
	if s.Reference {
		t.Fatalf("expected X's table entry to carry X's own (non-reference) status, not REF1's")
	}
}

func TestIngestDoesNotCorrelateNonReferenceSpots(t *testing.T) {
	e := newTestEngine(t, "REF1")

	ok := e.Ingest(window.Candidate{De: "X", Dx: "AA1A", Snr: 20, Freq: 14020.10, Mode: "CW", SpotType: window.SpotTypeCQ, TimeMS: 1000000})
	if !ok {
		t.Fatalf("expected first spot admitted")
	}
	ok = e.Ingest(window.Candidate{De: "Y", Dx: "AA1A", Snr: 20, Freq: 14020.00, Mode: "CW", SpotType: window.SpotTypeDX, TimeMS: 1005000})
	if !ok {
		t.Fatalf("expected second spot admitted")
	}

	if e.Table.Count() != 0 {
		t.Fatalf("expected no table entries: neither De is a reference skimmer")
	}
}

func TestCounterWrapGuardResetsWindowNotSkimmerState(t *testing.T) {
	e := newTestEngine(t, "REF1")
	e.totalSpots = WrapGuardThreshold - 1

	e.Ingest(window.Candidate{De: "X", Dx: "Y", Snr: 20, Freq: 14020, Mode: "CW", SpotType: window.SpotTypeCQ, TimeMS: 1000000})

	if e.TotalSpots() != 0 {
		t.Fatalf("expected counter reset after crossing wrap guard threshold, got %d", e.TotalSpots())
	}
	count := 0
	e.Window.Scan(func(idx int, s window.Spot) {
		if !s.Analyzed {
			count++
		}
	})
	if count != 0 {
		t.Fatalf("expected every window slot marked analyzed after wrap guard reset")
	}
}

func TestSweepDemotesIdleSkimmer(t *testing.T) {
	e := newTestEngine(t, "REF1")
	e.Ingest(window.Candidate{De: "X", Dx: "AA1A", Snr: 20, Freq: 14020.10, Mode: "CW", SpotType: window.SpotTypeCQ, TimeMS: 1000000})
	e.Ingest(window.Candidate{De: "REF1", Dx: "AA1A", Snr: 20, Freq: 14020.00, Mode: "CW", SpotType: window.SpotTypeDX, TimeMS: 1005000})

	e.Sweep(1301)

	s, _ := e.Table.Get("X")
	if s.Active {
		t.Fatalf("expected skimmer X demoted after idle sweep")
	}
}

func TestMaybeRefreshReferencesNoopsWithNilSchedule(t *testing.T) {
	e := newTestEngine(t, "REF1")
	e.MaybeRefreshReferences(nil, 1000)
	if e.Refs.Count() != 1 {
		t.Fatalf("expected registry untouched by nil schedule")
	}
}
