package database

import "fmt"

// InsertReport records a client bundle written by run r.RunID.
func (db *DB) InsertReport(r Report) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO reports (run_id, client, slug, path, audit_count, overall_average, image_count, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Client, r.Slug, r.Path, r.AuditCount, r.OverallAverage, r.ImageCount, db.timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("recording report for %s: %w", r.Client, err)
	}
	return result.LastInsertId()
}

// ReportsForRun returns the reports of one run in insertion order.
func (db *DB) ReportsForRun(runID string) ([]Report, error) {
	return db.queryReports(`WHERE run_id = ? ORDER BY id`, runID)
}

// RecentReports returns the latest report per client slug, newest first.
func (db *DB) RecentReports(limit int) ([]Report, error) {
	return db.queryReports(
		`WHERE id IN (SELECT MAX(id) FROM reports GROUP BY slug)
		ORDER BY generated_at DESC, id DESC LIMIT ?`, limit,
	)
}

func (db *DB) queryReports(clause string, args ...any) ([]Report, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, client, slug, path, audit_count, overall_average, image_count, generated_at
		FROM reports `+clause, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		var generated string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Client, &r.Slug, &r.Path,
			&r.AuditCount, &r.OverallAverage, &r.ImageCount, &generated); err != nil {
			return nil, err
		}
		r.GeneratedAt = parseTime(generated)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
