package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// getSchemaVersion reads PRAGMA user_version from the database.
func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// pendingMigrations returns the migrations newer than current, in order.
func pendingMigrations(current int) ([]Migration, error) {
	if latest := latestVersion(); current > latest {
		return nil, fmt.Errorf("history schema version %d is newer than this build supports (%d); upgrade auditreports", current, latest)
	}
	var pending []Migration
	for _, m := range migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// migrate applies every pending migration and stamps user_version after each.
func migrate(conn *sql.DB, logger *slog.Logger) error {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return err
	}
	pending, err := pendingMigrations(current)
	if err != nil || len(pending) == 0 {
		return err
	}

	logger.Info("upgrading run history", "from", current, "to", latestVersion())
	for _, m := range pending {
		if err := applyMigration(conn, m); err != nil {
			return err
		}
		logger.Debug("migration applied", "version", m.Version, "description", m.Description)
	}
	return nil
}

func applyMigration(conn *sql.DB, m Migration) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.Version, err)
	}
	if err := m.Up(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", m.Version, err)
	}

	// modernc sqlite ignores user_version inside a transaction; the DDL is
	// idempotent, so an interrupted stamp re-runs the step on next open.
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("migration %d: stamping version: %w", m.Version, err)
	}
	return nil
}
