// Package reference maintains the set of skimmer callsigns treated as
// frequency truth, loaded from a plain-text file and refreshed on a daily
// schedule.
package reference

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// MaxEntries bounds how many callsigns a single file may contribute.
// Reading stops (with a logged warning) once the limit is reached, rather
// than failing the whole load.
const MaxEntries = 100

// Registry holds the current reference callsign set behind an atomically
// swapped pointer so refreshes never race with lookups from the event loop.
type Registry struct {
	path string
	set  atomic.Pointer[map[string]struct{}]

	lastRefresh atomic.Int64 // unix seconds of the last successful refresh
}

// NewRegistry loads the initial reference set from path. Failure to open
// the file here is configuration-fatal, per spec: callers should treat a
// non-nil error as a reason to abort startup.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.Refresh(); err != nil {
		return nil, err
	}
	return r, nil
}

// Refresh atomically replaces the in-memory set by re-reading path. On
// failure it returns the error and the previous set remains in effect;
// TryRefresh is the variant that logs the failure instead of returning it.
func (r *Registry) Refresh() error {
	set, err := loadFile(r.path)
	if err != nil {
		return err
	}
	r.set.Store(&set)
	r.lastRefresh.Store(time.Now().Unix())
	return nil
}

// TryRefresh behaves like Refresh but never returns an error to the
// caller; failures are logged only. Intended for the scheduled daily
// refresh path where a missing file should not interrupt the event loop.
func (r *Registry) TryRefresh() {
	if err := r.Refresh(); err != nil {
		log.Printf("reference: refresh failed, keeping previous set: %v", err)
	}
}

// Contains reports whether call is currently a reference callsign.
func (r *Registry) Contains(call string) bool {
	if r == nil {
		return false
	}
	p := r.set.Load()
	if p == nil {
		return false
	}
	_, ok := (*p)[normalize(call)]
	return ok
}

// Count returns the number of callsigns currently loaded.
func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	p := r.set.Load()
	if p == nil {
		return 0
	}
	return len(*p)
}

// Callsigns returns a snapshot of the current reference set, sorted is not
// guaranteed; callers that need deterministic order should sort themselves.
func (r *Registry) Callsigns() []string {
	if r == nil {
		return nil
	}
	p := r.set.Load()
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(*p))
	for call := range *p {
		out = append(out, call)
	}
	return out
}

func normalize(call string) string {
	return strings.ToUpper(strings.TrimSpace(call))
}

// loadFile parses a reference/anchor file: one callsign per line (first
// whitespace-delimited token), blank lines skipped, lines whose first
// non-whitespace character is '#' skipped as comments.
func loadFile(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reference: open %s: %w", path, err)
	}
	defer f.Close()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		token := strings.Fields(line)[0]
		call := normalize(token)
		if call == "" {
			continue
		}
		if len(set) >= MaxEntries {
			log.Printf("reference: overflow: more than %d reference skimmers in %s, stopping read", MaxEntries, path)
			break
		}
		set[call] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reference: read %s: %w", path, err)
	}
	return set, nil
}

// Schedule describes the daily UTC refresh trigger (spec §4.2): the engine
// calls ShouldTrigger(now) once per tick and refreshes when it first
// returns true since the last refresh.
type Schedule struct {
	Hour         int // 0-23
	MinuteAfter  int // refresh once minute exceeds this value
	lastTrigger  atomic.Int64
	triggeredDay atomic.Int64 // YYYYMMDD of the day a trigger already fired
}

// NewSchedule builds the daily refresh trigger with the given UTC hour and
// minute threshold (spec constants REFUPDHOUR, REFUPDMINUTE).
func NewSchedule(hour, minuteAfter int) *Schedule {
	return &Schedule{Hour: hour, MinuteAfter: minuteAfter}
}

// ShouldTrigger reports whether now is the first tick seen today whose
// hour matches Hour and whose minute exceeds MinuteAfter. It is stateful:
// calling it advances the "already triggered today" marker.
func (s *Schedule) ShouldTrigger(now time.Time) bool {
	if s == nil {
		return false
	}
	now = now.UTC()
	if now.Hour() != s.Hour || now.Minute() <= s.MinuteAfter {
		return false
	}
	today := int64(now.Year())*10000 + int64(now.Month())*100 + int64(now.Day())
	if s.triggeredDay.Load() == today {
		return false
	}
	s.triggeredDay.Store(today)
	return true
}
