package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

var _ VersionRepositoryInterface = (*VersionRepository)(nil)

// VersionRepository handles database operations for static dataset versions
type VersionRepository struct {
	db *DB
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(db *DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// CreateVersion inserts a new dataset version and returns its id
func (r *VersionRepository) CreateVersion(description string) (int, error) {
	var versionID int
	err := r.db.QueryRow(`
		INSERT INTO static_data_versions (description)
		VALUES ($1)
		RETURNING version_id
	`, description).Scan(&versionID)
	if err != nil {
		return 0, fmt.Errorf("failed to create version: %w", err)
	}

	slog.Info("Created static data version", "version_id", versionID, "description", description)
	return versionID, nil
}

// DeleteVersion removes a dataset version together with any rows loaded
// under it, children before parents. Used to discard a version whose static
// load failed before any folder committed.
func (r *VersionRepository) DeleteVersion(versionID int) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tables := []string{
		"trip_updates",
		"vehicle_positions",
		"stop_times",
		"trips",
		"shapes",
		"calendar_dates",
		"calendar",
		"routes",
		"stops",
		"feed_info",
		"agency",
	}
	for _, table := range tables {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE version_id = $1", table), versionID); err != nil {
			return fmt.Errorf("failed to delete %s rows: %w", table, err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM static_data_versions WHERE version_id = $1`, versionID); err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	slog.Info("Deleted static data version", "version_id", versionID)
	return nil
}

// CurrentVersion returns the most recent dataset version, with false when
// none exists yet
func (r *VersionRepository) CurrentVersion() (int, bool, error) {
	var versionID int
	err := r.db.QueryRow(`
		SELECT version_id FROM static_data_versions
		ORDER BY version_id DESC
		LIMIT 1
	`).Scan(&versionID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get current version: %w", err)
	}
	return versionID, true, nil
}
