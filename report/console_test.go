package report

import "testing"

func TestNewConsoleBuildsWithoutPanicking(t *testing.T) {
	c := NewConsole()
	if c.app == nil || c.table == nil || c.status == nil {
		t.Fatalf("expected fully constructed console, got %+v", c)
	}
}
