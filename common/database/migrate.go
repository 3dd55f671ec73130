package database

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationResult reports the schema version after a migration run.
type MigrationResult struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Migrate applies every pending up migration found in dir of fsys to the
// PostgreSQL database at databaseURL. Running it against an up-to-date
// schema is a no-op.
func Migrate(fsys fs.FS, dir, databaseURL string) (MigrationResult, error) {
	var res MigrationResult

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return res, fmt.Errorf("open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return res, fmt.Errorf("initialize migrations: %w", err)
	}
	defer m.Close()

	switch err := m.Up(); {
	case err == nil:
		res.Changed = true
	case errors.Is(err, migrate.ErrNoChange):
	default:
		return res, fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return res, fmt.Errorf("read migration version: %w", err)
	}
	res.Version = version
	res.Dirty = dirty
	return res, nil
}
