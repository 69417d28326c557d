package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/segmentio/ksuid"
	_ "modernc.org/sqlite"

	"demtiles/internal/downloads"
)

// RunJournal records download runs and their per-tile outcomes in SQLite.
type RunJournal struct {
	db *sql.DB
}

// RunRecord is one journaled run.
type RunRecord struct {
	ID         string                `json:"id"`
	Region     string                `json:"region"`
	Bounds     downloads.BoundingBox `json:"bounds"`
	Zoom       int                   `json:"zoom"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	Stats      downloads.RunStats    `json:"stats"`
}

// TileRecord is one journaled tile outcome.
type TileRecord struct {
	RunID   string `json:"run_id"`
	Z       int    `json:"z"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Outcome string `json:"outcome"`
	Bytes   int    `json:"bytes"`
	Error   string `json:"error,omitempty"`
}

// NewRunJournal opens (or creates) the journal database and applies pending
// migrations.
func NewRunJournal(dbPath string) (*RunJournal, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Ping makes sure the file is actually accessible and the DSN is valid
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	j := &RunJournal{db: db}

	if err := j.RunMigrations(); err != nil {
		return nil, fmt.Errorf("could not migrate journal: %w", err)
	}

	return j, nil
}

// StartRun inserts a new run row and returns its ID. KSUIDs sort
// chronologically, so listing by ID is listing by start time.
func (j *RunJournal) StartRun(region string, bbox downloads.BoundingBox, zoom int) (string, error) {
	id := ksuid.New().String()

	query := `INSERT INTO runs (id, region, north, south, east, west, zoom, started_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := j.db.Exec(query, id, region, bbox.North, bbox.South, bbox.East, bbox.West, zoom, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecordTile journals a single tile outcome for a run. Re-running the same
// tile within a run replaces the earlier row.
func (j *RunJournal) RecordTile(runID string, outcome downloads.TileOutcome) error {
	var errText string
	if outcome.Err != nil {
		errText = outcome.Err.Error()
	}

	query := `INSERT OR REPLACE INTO tiles (run_id, z, x, y, outcome, bytes, error)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := j.db.Exec(query,
		runID,
		outcome.Tile.Z,
		outcome.Tile.X,
		outcome.Tile.Y,
		outcome.Kind.String(),
		outcome.Bytes,
		errText,
	)
	return err
}

// FinishRun stores the final counters and the completion time.
func (j *RunJournal) FinishRun(runID string, stats downloads.RunStats) error {
	query := `UPDATE runs SET finished_at = ?, downloaded = ?, failed = ?, empty = ? WHERE id = ?`
	_, err := j.db.Exec(query, time.Now().UTC(), stats.Downloaded, stats.Failed, stats.Empty, runID)
	return err
}

// ListRuns returns all journaled runs, newest first.
func (j *RunJournal) ListRuns() ([]*RunRecord, error) {
	rows, err := j.db.Query(`SELECT id, region, north, south, east, west, zoom, started_at, finished_at, downloaded, failed, empty
                             FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a single run by ID.
func (j *RunJournal) GetRun(id string) (*RunRecord, error) {
	row := j.db.QueryRow(`SELECT id, region, north, south, east, west, zoom, started_at, finished_at, downloaded, failed, empty
                          FROM runs WHERE id = ? LIMIT 1`, id)
	return scanRun(row)
}

// ListTiles returns the journaled outcomes of one run.
func (j *RunJournal) ListTiles(runID string) ([]*TileRecord, error) {
	rows, err := j.db.Query(`SELECT run_id, z, x, y, outcome, bytes, error FROM tiles
                             WHERE run_id = ? ORDER BY x, y`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiles []*TileRecord
	for rows.Next() {
		t := &TileRecord{}
		if err := rows.Scan(&t.RunID, &t.Z, &t.X, &t.Y, &t.Outcome, &t.Bytes, &t.Error); err != nil {
			return nil, err
		}
		tiles = append(tiles, t)
	}
	return tiles, rows.Err()
}

func (j *RunJournal) Close() error {
	return j.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	r := &RunRecord{}
	var finished sql.NullTime
	err := row.Scan(&r.ID, &r.Region,
		&r.Bounds.North, &r.Bounds.South, &r.Bounds.East, &r.Bounds.West,
		&r.Zoom, &r.StartedAt, &finished,
		&r.Stats.Downloaded, &r.Stats.Failed, &r.Stats.Empty)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return r, nil
}
