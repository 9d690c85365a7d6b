// Package archive persists accepted spots to SQLite for later bootstrap
// replay, adapted from the teacher's archive.Writer (WAL pragmas, batched
// async inserts, retention cleanup) to the skew estimator's narrower spot
// shape.
package archive

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"dxcluster/config"
	"dxcluster/window"
)

// Store is a non-blocking, best-effort spot log: Enqueue never blocks the
// event loop, and a full queue drops the spot rather than applying
// backpressure.
type Store struct {
	cfg   config.ArchiveConfig
	db    *sql.DB
	queue chan window.Spot
	stop  chan struct{}
	done  chan struct{}
}

// Open creates (or reuses) the SQLite database at cfg.Path, applies WAL
// pragmas, and ensures the schema exists.
func Open(cfg config.ArchiveConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("archive: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", cfg.Path, err)
	}
	if _, err := db.Exec(`pragma journal_mode=WAL; pragma synchronous=NORMAL; pragma busy_timeout=5000;`); err != nil {
		return nil, fmt.Errorf("archive: pragmas: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &Store{
		cfg:   cfg,
		db:    db,
		queue: make(chan window.Spot, 10000),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}, nil
}

// Start launches the background insert and retention-cleanup loops.
func (s *Store) Start() {
	go s.insertLoop()
	go s.cleanupLoop()
}

// Stop signals both loops to exit, waits for the insert loop to drain its
// final batch, and closes the database.
func (s *Store) Stop() {
	close(s.stop)
	<-s.done
	_ = s.db.Close()
}

// Enqueue offers spot for archival; it is dropped silently if the queue is
// full, per the teacher's archive.Writer non-blocking contract.
func (s *Store) Enqueue(spot window.Spot) {
	select {
	case s.queue <- spot:
	default:
	}
}

func (s *Store) insertLoop() {
	defer close(s.done)
	const batchSize = 200
	batch := make([]window.Spot, 0, batchSize)
	timer := time.NewTimer(2 * time.Second)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case <-s.stop:
			flush()
			return
		case spot := <-s.queue:
			batch = append(batch, spot)
			if len(batch) >= batchSize {
				flush()
			}
		case <-timer.C:
			flush()
			timer.Reset(2 * time.Second)
		}
	}
}

func (s *Store) flush(batch []window.Spot) {
	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("archive: begin tx: %v", err)
		return
	}
	stmt, err := tx.Prepare(`insert into spots(ts, de, dx, freq, snr, reference) values(?,?,?,?,?,?)`)
	if err != nil {
		log.Printf("archive: prepare: %v", err)
		_ = tx.Rollback()
		return
	}
	for _, sp := range batch {
		if _, err := stmt.Exec(sp.Time, sp.De, sp.Dx, sp.Freq, sp.Snr, boolToInt(sp.Reference)); err != nil {
			log.Printf("archive: insert: %v", err)
		}
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		log.Printf("archive: commit: %v", err)
	}
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cleanupOnce()
		}
	}
}

func (s *Store) cleanupOnce() {
	cutoff := time.Now().UTC().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour).Unix()
	if _, err := s.db.Exec(`delete from spots where ts < ?`, cutoff); err != nil {
		log.Printf("archive: cleanup: %v", err)
	}
}

// Recent returns up to limit most-recently archived spots, oldest first, for
// bootstrap replay of a live-captured archive alongside the CSV format.
func (s *Store) Recent(limit int) ([]window.Spot, error) {
	rows, err := s.db.Query(`select ts, de, dx, freq, snr, reference from spots order by ts desc limit ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: query: %w", err)
	}
	defer rows.Close()

	var out []window.Spot
	for rows.Next() {
		var sp window.Spot
		var ref int
		if err := rows.Scan(&sp.Time, &sp.De, &sp.Dx, &sp.Freq, &sp.Snr, &ref); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		sp.Reference = ref != 0
		out = append(out, sp)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func ensureSchema(db *sql.DB) error {
	schema := `
	create table if not exists spots (
		id integer primary key autoincrement,
		ts integer,
		de text,
		dx text,
		freq real,
		snr integer,
		reference integer
	);
	create index if not exists idx_spots_ts on spots(ts);
	create index if not exists idx_spots_dx_ts on spots(dx, ts);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("archive: schema: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
