// Package activity runs the periodic idle-demotion sweep and the smoothed
// spots-per-minute estimator described in spec.md §4.6.
package activity

import "dxcluster/skimmer"

// DefaultInactiveAfter is this implementation's choice among the spec's
// disagreeing source revisions (90s/180s/300s/900s): 300s, the streaming
// default. See SPEC_FULL.md's Open Questions section.
const DefaultInactiveAfter = 300

// RateFilterPeriods is the time constant, in sweep periods, of the
// spots-per-minute smoothing filter (spec §4.6: "time constant of 20
// periods").
const RateFilterPeriods = 20

// Monitor periodically demotes idle skimmer bands and tracks a smoothed
// spot-rate estimate.
type Monitor struct {
	table         *skimmer.Table
	inactiveAfter int64

	lastSweepCount int64
	lastSweepTime  int64
	spotsPerMinute float64
}

// NewMonitor builds a monitor over table with the given idle threshold in
// seconds (0 selects DefaultInactiveAfter).
func NewMonitor(table *skimmer.Table, inactiveAfterSeconds int64) *Monitor {
	if inactiveAfterSeconds <= 0 {
		inactiveAfterSeconds = DefaultInactiveAfter
	}
	return &Monitor{table: table, inactiveAfter: inactiveAfterSeconds}
}

// Sweep runs one activity-monitor pass at wall-clock time now, given the
// cumulative accepted-spot counter totalSpots since process start. It
// demotes idle bands/skimmers and updates the smoothed spots/minute
// estimate using the first-order filter:
// spm <- (19*spm + 60*deltaCount/deltaT) / 20.
func (m *Monitor) Sweep(now int64, totalSpots int64) {
	m.table.Sweep(now, m.inactiveAfter)

	if m.lastSweepTime != 0 {
		deltaT := now - m.lastSweepTime
		deltaCount := totalSpots - m.lastSweepCount
		if deltaT > 0 {
			instantaneous := 60.0 * float64(deltaCount) / float64(deltaT)
			m.spotsPerMinute = (float64(RateFilterPeriods-1)*m.spotsPerMinute + instantaneous) / float64(RateFilterPeriods)
		}
	}
	m.lastSweepTime = now
	m.lastSweepCount = totalSpots
}

// SpotsPerMinute returns the current smoothed estimate.
func (m *Monitor) SpotsPerMinute() float64 {
	return m.spotsPerMinute
}
