package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
)

// RunMigrations applies every .sql file under dir that is not yet recorded
// in schema_migrations, in lexical order, each in its own transaction.
// It returns how many were applied.
func (db *DB) RunMigrations(ctx context.Context, dir string) (int, error) {
	logger := slog.With("component", "migrations", "dir", dir)
	logger.Info("Starting database migrations")

	if err := db.createMigrationsTable(ctx); err != nil {
		logger.Error("Failed to create migrations table", "error", err)
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	fsys := os.DirFS(dir)
	migrations, err := migrationFiles(fsys)
	if err != nil {
		logger.Error("Failed to get migration files", "error", err)
		return 0, fmt.Errorf("failed to get migration files: %w", err)
	}

	logger.Info("Found migration files", "count", len(migrations))

	applied := 0
	for _, migration := range migrations {
		ran, err := db.runMigration(ctx, fsys, migration)
		if err != nil {
			logger.Error("Failed to run migration", "migration", migration, "error", err)
			return applied, fmt.Errorf("failed to run migration %s: %w", migration, err)
		}
		if ran {
			applied++
		}
	}

	logger.Info("All migrations completed successfully", "applied", applied)
	return applied, nil
}

func (db *DB) createMigrationsTable(ctx context.Context) error {
	logger := slog.With("component", "migrations", "operation", "create_table")
	logger.Debug("Creating schema_migrations table if not exists")

	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT NOW()
	)`

	_, err := db.ExecContext(ctx, query)
	if err != nil {
		logger.Error("Failed to create schema_migrations table", "error", err)
	}
	return err
}

func migrationFiles(fsys fs.FS) ([]string, error) {
	logger := slog.With("component", "migrations", "operation", "scan_files")

	var migrations []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Error accessing migration file", "path", p, "error", err)
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".sql") {
			migrations = append(migrations, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(migrations)
	logger.Debug("Migration files collected", "count", len(migrations), "files", migrations)
	return migrations, nil
}

// runMigration checks and applies one file in a single transaction that
// holds the schema_migrations lock.
func (db *DB) runMigration(ctx context.Context, fsys fs.FS, migrationFile string) (bool, error) {
	migrationName := path.Base(migrationFile)
	logger := slog.With(
		"component", "migrations",
		"operation", "run_migration",
		"migration", migrationName,
	)

	tx, err := db.BeginTxContext(ctx)
	if err != nil {
		logger.Error("Failed to begin transaction", "error", err)
		return false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "LOCK TABLE schema_migrations IN EXCLUSIVE MODE"); err != nil {
		logger.Error("Failed to lock schema_migrations", "error", err)
		return false, err
	}

	var exists bool
	err = tx.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", migrationName)
	if err != nil {
		logger.Error("Failed to check migration status", "error", err)
		return false, err
	}
	if exists {
		logger.Debug("Migration already applied, skipping")
		return false, nil
	}

	content, err := fs.ReadFile(fsys, migrationFile)
	if err != nil {
		logger.Error("Failed to read migration file", "error", err)
		return false, err
	}

	logger.Info("Running migration", "size_bytes", len(content))

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		logger.Error("Failed to execute migration SQL", "error", err)
		return false, err
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", migrationName); err != nil {
		logger.Error("Failed to record migration", "error", err)
		return false, err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit migration transaction", "error", err)
		return false, err
	}

	logger.Info("Migration completed successfully")
	return true, nil
}
