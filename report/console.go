// Package report implements the "-d" debug/terminal status display (spec
// §6 CLI surface): a live table of tracked skimmers and their per-band
// skew, refreshed on a timer. Adapted from the teacher's pane-based status
// console (ansi_console.go/console_layout.go) onto tview/tcell, the
// widget toolkit the teacher's go.mod already commits to.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"dxcluster/activity"
	"dxcluster/band"
	"dxcluster/skimmer"
)

// Console is a tview-backed terminal status display for one running engine.
type Console struct {
	app       *tview.Application
	table     *tview.Table
	status    *tview.TextView
	startedAt time.Time
}

// NewConsole builds a Console. Call Run to start the redraw loop; it blocks
// until the application exits (q or Ctrl-C).
func NewConsole() *Console {
	c := &Console{startedAt: time.Now()}

	c.table = tview.NewTable().SetFixed(1, 1).SetBorders(false)
	c.table.SetBorder(true).SetTitle(" skimmers ")

	c.status = tview.NewTextView().SetDynamicColors(true)
	c.status.SetBorder(true).SetTitle(" status ")

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(c.status, 3, 0, false).
		AddItem(c.table, 0, 1, true)

	c.app = tview.NewApplication().SetRoot(flex, true)
	c.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Rune() == 'q' {
			c.app.Stop()
			return nil
		}
		return ev
	})
	return c
}

// Run starts the periodic redraw loop against table/mon and blocks until
// the UI exits. It is intended to run on its own goroutine; all engine
// reads go through table.Snapshot()/mon.SpotsPerMinute(), which are safe
// for concurrent use independent of the single-threaded event loop.
func (c *Console) Run(table *skimmer.Table, mon *activity.Monitor, refresh time.Duration) error {
	if refresh <= 0 {
		refresh = time.Second
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.app.QueueUpdateDraw(func() { c.redraw(table, mon) })
			}
		}
	}()
	defer close(done)

	return c.app.Run()
}

// Stop requests the UI event loop exit.
func (c *Console) Stop() {
	c.app.Stop()
}

func (c *Console) redraw(table *skimmer.Table, mon *activity.Monitor) {
	snap := table.Snapshot()
	calls := make([]string, 0, len(snap))
	for call := range snap {
		calls = append(calls, call)
	}
	sort.Strings(calls)

	c.status.SetText(fmt.Sprintf(
		"uptime %s   skimmers %s   rate %.1f spots/min   (q to quit)",
		humanize.RelTime(c.startedAt, time.Now(), "", ""),
		humanize.Comma(int64(len(calls))),
		mon.SpotsPerMinute(),
	))

	c.table.Clear()
	c.table.SetCell(0, 0, tview.NewTableCell("skimmer").SetSelectable(false).SetTextColor(tcell.ColorYellow))
	for col := 0; col < band.Count; col++ {
		c.table.SetCell(0, col+1, tview.NewTableCell(band.Name(col)).SetSelectable(false).SetTextColor(tcell.ColorYellow))
	}

	for row, call := range calls {
		s := snap[call]
		name := call
		if s.Reference {
			name += " *"
		}
		c.table.SetCell(row+1, 0, tview.NewTableCell(name))
		for col := 0; col < band.Count; col++ {
			bs := s.Bands[col]
			cell := "-"
			if bs.Count > 0 {
				cell = fmt.Sprintf("%+.2f(%d)", bs.AvdevPPM, bs.Count)
			}
			c.table.SetCell(row+1, col+1, tview.NewTableCell(cell))
		}
	}
}
