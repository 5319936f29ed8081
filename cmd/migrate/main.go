package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"surveystat/adapters/db/postgres/migrations"
	"surveystat/adapters/filestore"
	"surveystat/adapters/postgres"
	"surveystat/internal"
	"surveystat/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: migrate <database_url> <archive_dir>")
		os.Exit(2)
	}
	databaseURL := os.Args[1]
	archiveDir := os.Args[2]

	logger := internal.NewDefaultLogger().With("migrate")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := migrate(ctx, databaseURL, archiveDir, logger); err != nil {
		logger.Error("Migration failed: %v", err)
		os.Exit(1)
	}
}

func migrate(ctx context.Context, databaseURL, archiveDir string, logger *internal.Logger) error {
	logger.Info("Starting migration from %s", archiveDir)

	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := migrations.NewMigrator(db.DB).Up(ctx); err != nil {
		return err
	}

	src, err := filestore.NewReportRepository(archiveDir)
	if err != nil {
		return err
	}
	migrated, skipped, err := copyRuns(ctx, src, postgres.NewReportRepository(db), logger)
	if err != nil {
		return err
	}
	logger.Info("Migration complete: %d migrated, %d skipped", migrated, skipped)
	return nil
}

// copyRuns copies every archived run, markdown included. Runs that fail to load or
// save are skipped and logged.
func copyRuns(ctx context.Context, src, dst ports.ReportRepository, logger *internal.Logger) (int, int, error) {
	runs, err := src.List(ctx, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list archived runs: %w", err)
	}
	logger.Info("Found %d archived runs", len(runs))

	migrated, skipped := 0, 0
	for _, listed := range runs {
		if err := ctx.Err(); err != nil {
			return migrated, skipped, err
		}
		rn, err := src.Get(ctx, listed.ID)
		if err != nil {
			logger.Warn("Failed to load run %s: %v", listed.ID, err)
			skipped++
			continue
		}
		if err := dst.Save(ctx, rn); err != nil {
			logger.Warn("Failed to save run %s: %v", rn.ID, err)
			skipped++
			continue
		}
		migrated++
		logger.Debug("Migrated run %s (%s)", rn.ID, rn.Dataset)
	}
	return migrated, skipped, nil
}
