package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the ledger schema at dsn up to the latest version.
// A database left dirty by a failed migration is reported, not repaired.
func RunMigrations(dsn string) error {
	return withMigrator(dsn, func(m *migrate.Migrate) error {
		if _, dirty, err := m.Version(); err == nil && dirty {
			return errors.New("ledger schema is dirty; fix the failed migration by hand")
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run migrations: %w", err)
		}
		version, _, err := m.Version()
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		slog.Debug("Ledger schema up to date", "version", version)
		return nil
	})
}

// SchemaVersion reports the applied migration version, 0 for an empty database.
func SchemaVersion(dsn string) (uint, error) {
	var version uint
	err := withMigrator(dsn, func(m *migrate.Migrate) error {
		v, _, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			return nil
		case err != nil:
			return err
		}
		version = v
		return nil
	})
	return version, err
}

// withMigrator runs fn on a migrator backed by its own connection, so closing
// the migrator never closes the repository pool.
func withMigrator(dsn string, fn func(*migrate.Migrate) error) error {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	return fn(m)
}
