// Package snapshot builds the JSON daily-summary publication of spec.md
// §4.9, using the same drop-in jsoniter encoder skew/skew.go's WriteJSON
// relies on for the hot publish path.
package snapshot

import (
	"fmt"
	"math"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"dxcluster/band"
	"dxcluster/skimmer"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BandSummary is one band's (or the consolidated 24h) skew figure.
type BandSummary struct {
	Skew  float64 `json:"skew"`
	Qual  int     `json:"qual"`
	Count int     `json:"count"`
}

// Node is one skimmer's publication record.
type Node struct {
	Call    string                  `json:"node"`
	Ref     bool                    `json:"ref"`
	Time    int64                   `json:"time"`
	Skew24h BandSummary             `json:"24h_skew"`
	PerBand map[string]*BandSummary `json:"24h_per_band"`
}

// Quality implements spec §4.8's metric: min(9, floor(9*log10(count)/log10(2000))),
// undefined (reported as 0) for count<=0.
func Quality(count int) int {
	if count <= 0 {
		return 0
	}
	q := int(math.Floor(9 * math.Log10(float64(count)) / math.Log10(2000)))
	if q > 9 {
		return 9
	}
	if q < 0 {
		return 0
	}
	return q
}

// Build constructs one Node per active (qualified) skimmer in table, sorted
// by callsign for deterministic output.
func Build(table *skimmer.Table) []Node {
	snap := table.Snapshot()
	out := make([]Node, 0, len(snap))
	for call, s := range snap {
		if !s.Active {
			continue
		}
		totalCount := 0
		for i := range s.Bands {
			totalCount += s.Bands[i].Count
		}
		n := Node{
			Call: call,
			Ref:  s.Reference,
			Time: s.Last,
			Skew24h: BandSummary{
				Skew:  s.AvdevPPM,
				Qual:  Quality(totalCount),
				Count: totalCount,
			},
			PerBand: make(map[string]*BandSummary, band.Count),
		}
		for i := 0; i < band.Count; i++ {
			bs := s.Bands[i]
			if bs.Count == 0 {
				n.PerBand[band.Name(i)] = nil
				continue
			}
			n.PerBand[band.Name(i)] = &BandSummary{
				Skew:  bs.AvdevPPM,
				Qual:  Quality(bs.Count),
				Count: bs.Count,
			}
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Call < out[j].Call })
	return out
}

// Marshal encodes the table's current state into the JSON wire form spec
// §4.9 describes: a bare array of Node objects is emitted as the frame-2
// payload (frame 1 is the caller's publish topic, e.g. SKEW_TEST_24H).
func Marshal(table *skimmer.Table) ([]byte, error) {
	nodes := Build(table)
	data, err := json.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal: %w", err)
	}
	return data, nil
}
