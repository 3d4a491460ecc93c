package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/GregMSThompson/crm-dashboard/pkg/logger"
)

//go:embed postgres/*.sql
var MigrationsFS embed.FS

// Run applies the embedded schema migrations to the database at databaseURL.
func Run(ctx context.Context, databaseURL string) error {
	log := logger.FromContext(ctx)

	sourceInstance, err := iofs.New(MigrationsFS, "postgres")
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver: %w", err)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection for migration: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database for migration: %w", err)
	}

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("could not create pgx driver instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceInstance, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		log.Warn("error closing migration source", "error", srcErr)
	}
	if dbErr != nil {
		log.Warn("error closing migration database", "error", dbErr)
	}

	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("no database schema changes to apply")
	case err != nil:
		return fmt.Errorf("migration failed: %w", err)
	default:
		log.Info("database migrations applied")
	}
	return nil
}
