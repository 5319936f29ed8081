package container

import (
	"context"
	"fmt"
	"path/filepath"

	"surveystat/adapters/datafile"
	"surveystat/adapters/db/postgres/migrations"
	"surveystat/adapters/filestore"
	"surveystat/adapters/postgres"
	"surveystat/app"
	"surveystat/internal"
	"surveystat/internal/config"
	"surveystat/internal/errors"
	"surveystat/internal/metrics"
	"surveystat/internal/report"
	"surveystat/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ArchiveDir is the file-store location under the output directory
const ArchiveDir = "archive"

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	Loader       ports.DatasetLoader
	Reports      ports.ReportRepository
	Capabilities report.Capabilities
	Charts       report.ChartRenderer
	Metrics      *metrics.Metrics

	ReportService *app.ReportService
}

// New creates a container. Chart capabilities are detected once here.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	caps := report.DetectCapabilities()
	if !caps.Charts {
		logger.Warn("Charts disabled: %s", caps.Reason)
	}

	return &Container{
		Config:       cfg,
		Logger:       logger,
		Loader:       datafile.Loader{Logger: logger},
		Capabilities: caps,
		Charts:       report.NewChartRenderer(caps, cfg.Charts),
		Metrics:      metrics.New(),
	}, nil
}

// InitStore opens the configured archive and builds the report service
func (c *Container) InitStore(ctx context.Context) error {
	switch c.Config.Store.Backend {
	case config.StorePostgres:
		if err := c.initPostgres(ctx); err != nil {
			return err
		}
	case config.StoreFile, "":
		repo, err := filestore.NewReportRepository(filepath.Join(c.Config.Paths.Output, ArchiveDir))
		if err != nil {
			return errors.IOError("failed to open report archive", err)
		}
		c.Reports = repo
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown report store %q", c.Config.Store.Backend))
	}

	svc, err := app.NewReportService(c.Config, c.Loader, c.Reports, c.Charts, c.Logger)
	if err != nil {
		return err
	}
	svc.SetMetrics(c.Metrics)
	c.ReportService = svc
	return nil
}

func (c *Container) initPostgres(ctx context.Context) error {
	if c.Config.Store.DatabaseURL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required for the postgres report store")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Store.DatabaseURL)
	if err != nil {
		return errors.DatabaseError("failed to connect to database", err)
	}
	if err := migrations.NewMigrator(db.DB).Up(ctx); err != nil {
		db.Close()
		return errors.DatabaseError("failed to run migrations", err)
	}

	c.DB = db
	c.Reports = postgres.NewReportRepository(db)
	c.Logger.Info("Report archive: postgres")
	return nil
}

// Ping checks that the archive is reachable
func (c *Container) Ping(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.PingContext(ctx)
	}
	if c.Reports == nil {
		return fmt.Errorf("report archive not initialised")
	}
	_, err := c.Reports.List(ctx, 1)
	return err
}

// Close releases the database connection if one was opened
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
