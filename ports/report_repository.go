package ports

import (
	"context"

	"surveystat/domain/core"
	"surveystat/domain/run"
)

// ReportRepository archives generated reports
type ReportRepository interface {
	// Save inserts or replaces a run, markdown included
	Save(ctx context.Context, r *run.Run) error
	// Get returns a run with its markdown; unknown IDs yield core.ErrReportNotFound
	Get(ctx context.Context, id core.ReportID) (*run.Run, error)
	// List returns the newest runs first without markdown. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*run.Run, error)
}
