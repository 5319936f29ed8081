package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"surveystat/domain/core"
	"surveystat/domain/run"
	"surveystat/ports"

	"github.com/jmoiron/sqlx"
)

// reportRepository implements ports.ReportRepository on the analysis_reports table
type reportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sqlx.DB) ports.ReportRepository {
	return &reportRepository{db: db}
}

type reportRow struct {
	ID          string    `db:"id"`
	Dataset     string    `db:"dataset"`
	SourcePath  string    `db:"source_path"`
	ReportPath  string    `db:"report_path"`
	RowCount    int       `db:"row_count"`
	ColumnCount int       `db:"column_count"`
	Fingerprint string    `db:"fingerprint"`
	Summary     []byte    `db:"summary"`
	Markdown    string    `db:"markdown"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row reportRow) toRun() (*run.Run, error) {
	r := &run.Run{
		ID:          core.ReportID(row.ID),
		Dataset:     row.Dataset,
		SourcePath:  row.SourcePath,
		ReportPath:  row.ReportPath,
		Rows:        row.RowCount,
		Columns:     row.ColumnCount,
		Fingerprint: row.Fingerprint,
		Markdown:    row.Markdown,
		CreatedAt:   row.CreatedAt,
	}
	if len(row.Summary) > 0 {
		if err := json.Unmarshal(row.Summary, &r.Summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
	}
	return r, nil
}

// Save upserts a run by ID
func (r *reportRepository) Save(ctx context.Context, rn *run.Run) error {
	summaryJSON, err := json.Marshal(rn.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `INSERT INTO analysis_reports (
		id, dataset, source_path, report_path, row_count, column_count, fingerprint, summary, markdown, created_at
	) VALUES (
		:id, :dataset, :source_path, :report_path, :row_count, :column_count, :fingerprint, :summary, :markdown, :created_at
	)
	ON CONFLICT (id) DO UPDATE SET
		dataset = EXCLUDED.dataset,
		source_path = EXCLUDED.source_path,
		report_path = EXCLUDED.report_path,
		row_count = EXCLUDED.row_count,
		column_count = EXCLUDED.column_count,
		fingerprint = EXCLUDED.fingerprint,
		summary = EXCLUDED.summary,
		markdown = EXCLUDED.markdown`

	_, err = r.db.NamedExecContext(ctx, query, reportRow{
		ID:          rn.ID.String(),
		Dataset:     rn.Dataset,
		SourcePath:  rn.SourcePath,
		ReportPath:  rn.ReportPath,
		RowCount:    rn.Rows,
		ColumnCount: rn.Columns,
		Fingerprint: rn.Fingerprint,
		Summary:     summaryJSON,
		Markdown:    rn.Markdown,
		CreatedAt:   rn.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// Get retrieves a run with its markdown
func (r *reportRepository) Get(ctx context.Context, id core.ReportID) (*run.Run, error) {
	query := `SELECT id, dataset, source_path, report_path, row_count, column_count, fingerprint,
		summary, markdown, created_at
	FROM analysis_reports WHERE id = $1`

	var row reportRow
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewReportNotFoundError(id.String())
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return row.toRun()
}

// List returns runs newest first without markdown
func (r *reportRepository) List(ctx context.Context, limit int) ([]*run.Run, error) {
	query := `SELECT id, dataset, source_path, report_path, row_count, column_count, fingerprint,
		summary, '' AS markdown, created_at
	FROM analysis_reports
	ORDER BY created_at DESC, id DESC`

	var (
		rows []reportRow
		err  error
	)
	if limit > 0 {
		err = r.db.SelectContext(ctx, &rows, query+" LIMIT $1", limit)
	} else {
		err = r.db.SelectContext(ctx, &rows, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	runs := make([]*run.Run, 0, len(rows))
	for _, row := range rows {
		rn, err := row.toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, rn)
	}
	return runs, nil
}
