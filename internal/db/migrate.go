package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies the embedded migrations for d up to the latest version.
// The migrate instance is not closed: closing it would close sqlDB too.
func RunMigrations(sqlDB *sql.DB, d Dialect) error {
	if sqlDB == nil {
		return errors.New("run migrations: DB is nil")
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(d))
	if err != nil {
		return fmt.Errorf("run migrations: open source: %w", err)
	}

	var driver database.Driver
	switch d {
	case MySQL:
		driver, err = migratemysql.WithInstance(sqlDB, &migratemysql.Config{})
	case SQLite:
		driver, err = migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	default:
		return fmt.Errorf("run migrations: unsupported dialect %q", d)
	}
	if err != nil {
		return fmt.Errorf("run migrations: create driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(d), driver)
	if err != nil {
		return fmt.Errorf("run migrations: create migrate: %w", err)
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("run migrations: up: %w", err)
	}

	slog.Info("migrations applied", "dialect", string(d))
	return nil
}
