package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// StartRun records a new running run and returns its id.
func (db *DB) StartRun(mode string, dev bool, recordID string) (string, error) {
	id := uuid.NewString()
	var rec *string
	if recordID != "" {
		rec = &recordID
	}
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, mode, dev, record_id, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, mode, dev, rec, StatusRunning, db.timestamp(),
	)
	if err != nil {
		return "", fmt.Errorf("starting run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run succeeded, or failed when out.Err is set.
func (db *DB) FinishRun(id string, out RunOutcome) error {
	status := StatusSucceeded
	var msg *string
	if out.Err != nil {
		status = StatusFailed
		s := out.Err.Error()
		msg = &s
	}
	result, err := db.conn.Exec(
		`UPDATE runs SET status = ?, error = ?, record_count = ?, image_count = ?, finished_at = ?
		WHERE id = ?`,
		status, msg, out.RecordCount, out.ImageCount, db.timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// ErrAmbiguousRun means a run id prefix matches more than one run.
var ErrAmbiguousRun = errors.New("run id prefix matches several runs")

// GetRun returns the run whose id is id or starts with it, or nil if none
// does.
func (db *DB) GetRun(id string) (*Run, error) {
	if id == "" {
		return nil, nil
	}
	runs, err := db.queryRuns(`WHERE substr(id, 1, ?) = ? LIMIT 2`, len(id), id)
	if err != nil {
		return nil, err
	}
	switch len(runs) {
	case 0:
		return nil, nil
	case 1:
		return &runs[0], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	return db.queryRuns(`ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
}

func (db *DB) queryRuns(clause string, args ...any) ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT id, mode, dev, record_id, status, error, record_count, image_count, started_at, finished_at
		FROM runs `+clause, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Mode, &r.Dev, &r.RecordID, &r.Status, &r.Error,
			&r.RecordCount, &r.ImageCount, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		if finished.Valid {
			t := parseTime(finished.String)
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStats returns aggregate history statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM runs", &s.TotalRuns},
		{"SELECT COUNT(*) FROM runs WHERE status = 'failed'", &s.FailedRuns},
		{"SELECT COUNT(*) FROM runs WHERE dev = 1", &s.DevRuns},
		{"SELECT COUNT(*) FROM reports", &s.TotalReports},
		{"SELECT COUNT(DISTINCT slug) FROM reports", &s.Clients},
		{"SELECT COALESCE(SUM(image_count), 0) FROM reports", &s.ImagesWritten},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	var last string
	err := db.conn.QueryRow("SELECT started_at FROM runs ORDER BY started_at DESC LIMIT 1").Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if last != "" {
		t := parseTime(last)
		s.LastRunAt = &t
	}

	return s, nil
}
