package testhelpers

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ApplyFixtureSchema migrates the canonical timeline fixture tables
// (unified_events, entity_resolution_map) up to the latest version and
// returns that version. Already-applied databases are left untouched.
func ApplyFixtureSchema(db *sql.DB, dir string) (uint, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return 0, fmt.Errorf("failed to attach fixture migrator: %w", err)
	}

	// Closing m would also close db, which belongs to the caller.
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("failed to load fixture migrations from %s: %w", dir, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply fixture migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to read fixture schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("fixture schema version %d is dirty", version)
	}
	return version, nil
}
