package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"surveystat/domain/core"
	"surveystat/internal"
)

//go:embed *.sql
var migrationFS embed.FS

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

// Migrator applies the embedded schema migrations
type Migrator struct {
	db     *sql.DB
	files  fs.FS
	logger *internal.Logger
}

// NewMigrator creates a migrator over the embedded SQL files
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db, files: migrationFS, logger: internal.DefaultLogger.With("migrate")}
}

// MigrationFile is one versioned SQL file
type MigrationFile struct {
	Version string
	Name    string
}

// MigrationStatus reports whether a migration has been applied. Modified is set when
// the embedded file no longer matches the checksum recorded at apply time.
type MigrationStatus struct {
	Version  string
	Name     string
	Applied  bool
	Modified bool
}

// Up executes all pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := m.findMigrationFiles()
	if err != nil {
		return fmt.Errorf("failed to find migration files: %w", err)
	}

	for _, file := range files {
		if checksum, ok := applied[file.Version]; ok {
			if modified, err := m.modified(file, checksum); err != nil {
				return err
			} else if modified {
				m.logger.Warn("Migration %s changed after it was applied", file.Name)
			}
			continue
		}
		if err := m.applyMigration(ctx, file); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Version, err)
		}
		m.logger.Info("Applied migration: %s", file.Name)
	}
	return nil
}

// Down forgets the last applied migration. Schema changes are not reverted.
func (m *Migrator) Down(ctx context.Context) error {
	var version string
	err := m.db.QueryRowContext(ctx, `
		SELECT version FROM schema_migrations
		ORDER BY applied_at DESC, version DESC LIMIT 1`).Scan(&version)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("no migrations to rollback")
		}
		return fmt.Errorf("failed to get last migration: %w", err)
	}

	m.logger.Warn("Rolling back migration record %s (schema left in place)", version)
	if _, err := m.db.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", version); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}
	return nil
}

// Status lists every known migration and whether it has been applied
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to ensure migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	files, err := m.findMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find migration files: %w", err)
	}

	out := make([]MigrationStatus, len(files))
	for i, f := range files {
		checksum, ok := applied[f.Version]
		out[i] = MigrationStatus{Version: f.Version, Name: f.Name, Applied: ok}
		if ok {
			if out[i].Modified, err = m.modified(f, checksum); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// getAppliedMigrations maps applied versions to their recorded checksums
func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

func (m *Migrator) modified(file MigrationFile, recorded string) (bool, error) {
	data, err := fs.ReadFile(m.files, file.Name)
	if err != nil {
		return false, fmt.Errorf("failed to read migration file: %w", err)
	}
	return calculateChecksum(data) != recorded, nil
}

func calculateChecksum(data []byte) string {
	return core.NewHash(data).String()
}

// findMigrationFiles lists files named like 001_description.sql in version order
func (m *Migrator) findMigrationFiles() ([]MigrationFile, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, err
	}

	var files []MigrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(e.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}
		files = append(files, MigrationFile{Version: parts[0], Name: e.Name()})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})
	return files, nil
}

func (m *Migrator) applyMigration(ctx context.Context, file MigrationFile) error {
	sqlBytes, err := fs.ReadFile(m.files, file.Name)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)",
		file.Version, calculateChecksum(sqlBytes)); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
