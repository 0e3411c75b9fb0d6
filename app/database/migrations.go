package database

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Schema migrations ship inside the binary; there is nothing to deploy
// alongside it.
//
//go:embed migrations/*.sql
var schemaFS embed.FS

// RunMigrations brings the schema up to date from the embedded migration
// files and reports the resulting schema version and its dirty flag.
func RunMigrations(db *DB) (uint, bool, error) {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return 0, false, fmt.Errorf("failed to prepare migration driver: %w", err)
	}

	source, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("embedded", source, "postgres", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return 0, false, fmt.Errorf("failed to apply schema migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}

	return version, dirty, nil
}
