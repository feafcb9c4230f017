package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Dialects understood by the migration runner.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// CheckDBMigrationStatus verifies that the ledger schema is at the latest
// version shipped with this binary.
func CheckDBMigrationStatus(db *sql.DB, dialect string) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: closing it would close db, which the caller owns.

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("database has no schema version (needs migration)")
		}
		return fmt.Errorf("failed to get database version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", version)
	}

	latest, err := LatestVersion()
	if err != nil {
		return err
	}
	switch {
	case version < latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)", version, latest, latest-version)
	case version > latest:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)", version, latest)
	}
	return nil
}

// MigrateUp applies all pending migrations. Running it on an up-to-date
// database is a no-op.
func MigrateUp(db *sql.DB, dialect string) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Version returns the current schema version, 0 for an unmigrated database.
func Version(db *sql.DB, dialect string) (uint, bool, error) {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get database version: %w", err)
	}
	return version, dirty, nil
}

// LatestVersion returns the highest migration version embedded in the binary.
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()

	latest, err := lastVersion(src)
	if err != nil {
		return 0, fmt.Errorf("failed to determine latest version: %w", err)
	}
	return latest, nil
}

func newMigrate(db *sql.DB, dialect string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	var driver database.Driver
	switch dialect {
	case DialectSQLite:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case DialectPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		err = fmt.Errorf("unsupported dialect: %s", dialect)
	}
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func lastVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			// Next fails once there are no more migrations.
			return version, nil
		}
		version = next
	}
}
