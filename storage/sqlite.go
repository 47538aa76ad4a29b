package storage

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"auto_sniper/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_runs (
		id INTEGER PRIMARY KEY,
		search_id TEXT,
		platform TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		listings_found INTEGER,
		listings_merged INTEGER,
		listings_hidden INTEGER,
		listings_analyzed INTEGER,
		errors_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS run_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		search_id TEXT
	);

	CREATE TABLE IF NOT EXISTS filter_verdicts (
		id INTEGER PRIMARY KEY,
		run_id INTEGER NOT NULL,
		link TEXT,
		title TEXT,
		show_to_user BOOLEAN,
		score REAL,
		explanation TEXT,
		FOREIGN KEY (run_id) REFERENCES search_runs(id)
	);

	CREATE TABLE IF NOT EXISTS coords_cache (
		place TEXT PRIMARY KEY,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		resolved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_logs_run ON run_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON search_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_search ON search_runs(search_id);
	CREATE INDEX IF NOT EXISTS idx_verdicts_run ON filter_verdicts(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.SearchRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO search_runs (search_id, platform, started_at, status, listings_found,
			listings_merged, listings_hidden, listings_analyzed, errors_count)
		VALUES (?, ?, ?, ?, 0, 0, 0, 0, 0)`,
		run.SearchID, run.Platform, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.SearchRun) error {
	_, err := s.db.Exec(`
		UPDATE search_runs SET finished_at = ?, status = ?, listings_found = ?,
			listings_merged = ?, listings_hidden = ?, listings_analyzed = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.ListingsFound, run.ListingsMerged,
		run.ListingsHidden, run.ListingsAnalyzed, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) GetRun(id int64) (*models.SearchRun, error) {
	row := s.db.QueryRow(`
		SELECT id, search_id, platform, started_at, finished_at, status, listings_found,
			listings_merged, listings_hidden, listings_analyzed, errors_count
		FROM search_runs WHERE id = ?`, id)

	var r models.SearchRun
	var finished sql.NullTime
	err := row.Scan(&r.ID, &r.SearchID, &r.Platform, &r.StartedAt, &finished, &r.Status,
		&r.ListingsFound, &r.ListingsMerged, &r.ListingsHidden, &r.ListingsAnalyzed, &r.ErrorsCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return &r, nil
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, searchID string) error {
	_, err := s.db.Exec(`
		INSERT INTO run_logs (run_id, timestamp, level, message, search_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, searchID)
	return err
}

func (s *SQLiteStore) GetRunLogs(runID int64) ([]models.RunLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, search_id
		FROM run_logs WHERE run_id = ? ORDER BY timestamp, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.RunLog
	for rows.Next() {
		var l models.RunLog
		var rid sql.NullInt64
		if err := rows.Scan(&l.ID, &rid, &l.Timestamp, &l.Level, &l.Message, &l.SearchID); err != nil {
			return nil, err
		}
		if rid.Valid {
			l.RunID = &rid.Int64
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// SaveVerdicts records the pre-filter outcome of a run in one transaction.
func (s *SQLiteStore) SaveVerdicts(runID int64, verdicts []models.FilterVerdict) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO filter_verdicts (run_id, link, title, show_to_user, score, explanation)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range verdicts {
		if _, err := stmt.Exec(runID, v.Link, v.Title, v.ShowToUser, v.Score, v.Explanation); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetVerdicts(runID int64) ([]models.FilterVerdict, error) {
	rows, err := s.db.Query(`
		SELECT link, title, show_to_user, score, explanation
		FROM filter_verdicts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verdicts []models.FilterVerdict
	for rows.Next() {
		var v models.FilterVerdict
		if err := rows.Scan(&v.Link, &v.Title, &v.ShowToUser, &v.Score, &v.Explanation); err != nil {
			return nil, err
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}

// GetLastRunTime returns when the latest completed run on platform started.
// An empty platform matches every run.
func (s *SQLiteStore) GetLastRunTime(platform string) (time.Time, error) {
	var lastRun time.Time
	err := s.db.QueryRow(`
		SELECT started_at FROM search_runs WHERE (? = '' OR platform = ?) AND status = ?
		ORDER BY started_at DESC LIMIT 1`,
		platform, platform, models.RunStatusCompleted).Scan(&lastRun)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	return lastRun, err
}

// CoordsCache exposes the coords_cache table as a geocoding cache.
func (s *SQLiteStore) CoordsCache() *SQLiteCoordsCache {
	return &SQLiteCoordsCache{db: s.db}
}

// SQLiteCoordsCache persists resolved places next to the run log.
type SQLiteCoordsCache struct {
	db *sql.DB
}

func (c *SQLiteCoordsCache) Get(ctx context.Context, place string) (models.Coordinates, bool, error) {
	var coords models.Coordinates
	err := c.db.QueryRowContext(ctx, `
		SELECT lat, lon FROM coords_cache WHERE place = ?`, place).Scan(&coords.Lat, &coords.Lon)
	if err == sql.ErrNoRows {
		return models.Coordinates{}, false, nil
	}
	if err != nil {
		return models.Coordinates{}, false, err
	}
	return coords, true, nil
}

func (c *SQLiteCoordsCache) Set(ctx context.Context, place string, coords models.Coordinates) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO coords_cache (place, lat, lon, resolved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(place) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			resolved_at = excluded.resolved_at`,
		place, coords.Lat, coords.Lon, time.Now())
	return err
}

// Flush is a no-op; every Set is already durable.
func (c *SQLiteCoordsCache) Flush(context.Context) error {
	return nil
}
