package reference

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "reference")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestNewRegistryParsesCommentsAndTokens(t *testing.T) {
	path := writeFile(t, "# comment", "", "W3LPL  extra ignored", "k1ttt")
	reg, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if reg.Count() != 2 {
		t.Fatalf("expected 2 entries, got %d", reg.Count())
	}
	if !reg.Contains("w3lpl") {
		t.Fatalf("expected case-insensitive match for W3LPL")
	}
	if !reg.Contains("K1TTT") {
		t.Fatalf("expected K1TTT to be loaded")
	}
	if reg.Contains("NOPE") {
		t.Fatalf("did not expect NOPE in set")
	}
}

func TestNewRegistryMissingFileIsFatal(t *testing.T) {
	if _, err := NewRegistry(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRefreshReplacesSetAtomically(t *testing.T) {
	path := writeFile(t, "AAA")
	reg, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := os.WriteFile(path, []byte("BBB\nCCC\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := reg.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if reg.Contains("AAA") {
		t.Fatalf("expected old entry gone after refresh")
	}
	if !reg.Contains("BBB") || !reg.Contains("CCC") {
		t.Fatalf("expected new entries after refresh")
	}
}

func TestTryRefreshTolerantOfMissingFile(t *testing.T) {
	path := writeFile(t, "AAA")
	reg, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	reg.TryRefresh() // must not panic
	if !reg.Contains("AAA") {
		t.Fatalf("expected previous set retained after failed refresh")
	}
}

func TestOverflowStopsReadingAtCapacity(t *testing.T) {
	lines := make([]string, 0, MaxEntries+10)
	for i := 0; i < MaxEntries+10; i++ {
		lines = append(lines, "CALL"+string(rune('A'+i%26))+string(rune('0'+i%10)))
	}
	path := writeFile(t, lines...)
	reg, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if reg.Count() > MaxEntries {
		t.Fatalf("expected at most %d entries, got %d", MaxEntries, reg.Count())
	}
}

func TestScheduleTriggersOncePerDay(t *testing.T) {
	s := NewSchedule(0, 30)
	base := time.Date(2026, 7, 30, 0, 31, 0, 0, time.UTC)
	if !s.ShouldTrigger(base) {
		t.Fatalf("expected first tick past threshold to trigger")
	}
	if s.ShouldTrigger(base.Add(time.Minute)) {
		t.Fatalf("expected same-day retrigger to be suppressed")
	}
	nextDay := base.AddDate(0, 0, 1)
	if !s.ShouldTrigger(nextDay) {
		t.Fatalf("expected next day to trigger again")
	}
}

func TestScheduleDoesNotTriggerBeforeThreshold(t *testing.T) {
	s := NewSchedule(0, 30)
	early := time.Date(2026, 7, 30, 0, 15, 0, 0, time.UTC)
	if s.ShouldTrigger(early) {
		t.Fatalf("expected no trigger before minute threshold")
	}
	wrongHour := time.Date(2026, 7, 30, 5, 45, 0, 0, time.UTC)
	if s.ShouldTrigger(wrongHour) {
		t.Fatalf("expected no trigger outside configured hour")
	}
}
