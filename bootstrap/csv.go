// Package bootstrap implements the two-pass batch analyzer of spec.md
// §4.8: an anchor-seeded first pass elects additional reference skimmers by
// their own observed stability, and a second pass replays the same archive
// against the regenerated reference set to produce the final per-skimmer
// report.
package bootstrap

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// timeLayout is the historical-archive time format (spec §6: "%Y-%m-%d
// %H:%M:%S").
const timeLayout = "2006-01-02 15:04:05"

// archiveFieldCount is the 13-column schema spec §4.8 names: callsign,
// de_pfx, de_cont, freq, band, dx, dx_pfx, dx_cont, mode, db, date, speed,
// tx_mode. original_source/skew.c and skewday.c both compare the spot mode
// against the tx_mode column (index 12), not the mode column (index 8);
// followed here for fidelity to the original's (idiosyncratic but
// deliberate) column selection.
const archiveFieldCount = 13

// Record is one parsed archive row.
type Record struct {
	De   string
	Dx   string
	Freq float64
	Snr  int
	Time time.Time
	Mode string
}

// LoadArchive reads a historical CSV archive, returning every row that
// parses. Rows that don't parse are silently skipped, per spec §6.
func LoadArchive(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseArchive(f)
}

func parseArchive(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A line with unbalanced quoting or similar CSV-level defect is
			// silently skipped rather than aborting the whole archive.
			continue
		}
		rec, ok := parseRow(row)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(row []string) (Record, bool) {
	if len(row) != archiveFieldCount {
		return Record{}, false
	}
	de := strings.TrimSpace(row[0])
	freq, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return Record{}, false
	}
	dx := strings.TrimSpace(row[5])
	snr, err := strconv.Atoi(strings.TrimSpace(row[9]))
	if err != nil {
		return Record{}, false
	}
	t, err := time.Parse(timeLayout, strings.TrimSpace(row[10]))
	if err != nil {
		return Record{}, false
	}
	mode := strings.ToUpper(strings.TrimSpace(row[12]))

	if de == "" || dx == "" {
		return Record{}, false
	}
	return Record{De: de, Dx: dx, Freq: freq, Snr: snr, Time: t, Mode: mode}, true
}
