// Package migrations manages the Postgres documents table used by the
// jsonb store backend. Migrations are embedded so deployments need no
// external files.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed postgres/*.sql
var migrationsFS embed.FS

// Run applies all pending migrations.
func Run(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "postgres")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	defer func() {
		if cerr := source.Close(); cerr != nil {
			slog.Warn("Error closing migration source", "error", cerr)
		}
	}()

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migration: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			slog.Warn("Error closing migration db connection", "error", cerr)
		}
	}()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database for migration: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: postgres.DefaultMigrationsTable,
	})
	if err != nil {
		return fmt.Errorf("could not create postgres driver instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("No database schema changes to apply")
	} else {
		slog.Info("Database migrations completed")
	}
	return nil
}
