package window

import "testing"

func TestNewRingSlotsPreAnalyzed(t *testing.T) {
	r := NewRing(4)
	count := 0
	r.Scan(func(idx int, s Spot) {
		if s.Analyzed {
			count++
		}
	})
	if count != 4 {
		t.Fatalf("expected all 4 fresh slots analyzed, got %d", count)
	}
}

func TestInsertOverwritesCircularly(t *testing.T) {
	r := NewRing(2)
	r.Insert(Spot{Dx: "A"})
	r.Insert(Spot{Dx: "B"})
	r.Insert(Spot{Dx: "C"}) // wraps, overwrites slot 0 (A)

	var seen []string
	r.Scan(func(idx int, s Spot) { seen = append(seen, s.Dx) })
	if seen[0] != "C" || seen[1] != "B" {
		t.Fatalf("expected wraparound overwrite, got %v", seen)
	}
}

func TestMarkAnalyzedFlipsOnlyTargetSlot(t *testing.T) {
	r := NewRing(3)
	r.Insert(Spot{Dx: "A", Analyzed: false})
	r.Insert(Spot{Dx: "B", Analyzed: false})
	r.MarkAnalyzed(0)

	var states []bool
	r.Scan(func(idx int, s Spot) { states = append(states, s.Analyzed) })
	if !states[0] {
		t.Fatalf("expected slot 0 analyzed")
	}
	if states[1] {
		t.Fatalf("expected slot 1 untouched")
	}
}

func TestResetMarksAllAnalyzedKeepingPayload(t *testing.T) {
	r := NewRing(2)
	r.Insert(Spot{Dx: "A", Analyzed: false})
	r.Reset()
	r.Scan(func(idx int, s Spot) {
		if !s.Analyzed {
			t.Fatalf("expected slot %d analyzed after reset", idx)
		}
		if idx == 0 && s.Dx != "A" {
			t.Fatalf("expected payload retained after reset, got %q", s.Dx)
		}
	})
}

func TestAdmissionPolicyAdmit(t *testing.T) {
	p := AdmissionPolicy{MinSNR: 6, MinFreq: 1800, Mode: "CW"}

	ok, admitted := p.Admit(Candidate{De: "X", Dx: "Y", TimeMS: 1000123, Snr: 10, Freq: 14020, Mode: "CW", SpotType: SpotTypeCQ})
	if !admitted {
		t.Fatalf("expected admission")
	}
	if ok.Time != 1000 {
		t.Fatalf("expected time truncated to seconds, got %d", ok.Time)
	}

	if _, admitted := p.Admit(Candidate{Snr: 3, Freq: 14020, Mode: "CW", SpotType: SpotTypeCQ}); admitted {
		t.Fatalf("expected rejection on low SNR")
	}
	if _, admitted := p.Admit(Candidate{Snr: 10, Freq: 1000, Mode: "CW", SpotType: SpotTypeCQ}); admitted {
		t.Fatalf("expected rejection on low frequency")
	}
	if _, admitted := p.Admit(Candidate{Snr: 10, Freq: 14020, Mode: "SSB", SpotType: SpotTypeCQ}); admitted {
		t.Fatalf("expected rejection on wrong mode")
	}
	if _, admitted := p.Admit(Candidate{Snr: 10, Freq: 14020, Mode: "CW", SpotType: "WWV"}); admitted {
		t.Fatalf("expected rejection on disallowed spot type")
	}
}
