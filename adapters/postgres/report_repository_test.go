package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"surveystat/domain/core"
	"surveystat/domain/run"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportColumns = []string{
	"id", "dataset", "source_path", "report_path", "row_count", "column_count",
	"fingerprint", "summary", "markdown", "created_at",
}

func newMockRepo(t *testing.T) (*reportRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &reportRepository{db: sqlx.NewDb(db, "postgres")}, mock
}

func TestReportRepository_Save(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO analysis_reports").
		WithArgs("r1", "wave1", "data/raw/wave1.csv", "out/r.md", 120, 8, "fp",
			sqlmock.AnyArg(), "# Report", created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Save(context.Background(), &run.Run{
		ID: "r1", Dataset: "wave1", SourcePath: "data/raw/wave1.csv", ReportPath: "out/r.md",
		Rows: 120, Columns: 8, Fingerprint: "fp", Markdown: "# Report", CreatedAt: created,
		Summary: run.Summary{Findings: []string{"x"}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_Get(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM analysis_reports WHERE id = \\$1").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(reportColumns).AddRow(
			"r1", "wave1", "src.csv", "out.md", 10, 3, "fp",
			[]byte(`{"parameters":{"target":"score","alpha":0.05},"findings":["a"]}`), "# md", created))

	got, err := repo.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, core.ReportID("r1"), got.ID)
	assert.Equal(t, "# md", got.Markdown)
	assert.Equal(t, "score", got.Summary.Parameters.Target)
	assert.Equal(t, []string{"a"}, got.Summary.Findings)
	assert.Equal(t, 10, got.Rows)
}

func TestReportRepository_GetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM analysis_reports").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))
}

func TestReportRepository_List(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM analysis_reports (.+) LIMIT \\$1").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(reportColumns).
			AddRow("r2", "wave2", "", "", 5, 2, "", []byte(`{}`), "", now).
			AddRow("r1", "wave1", "", "", 4, 2, "", []byte(`{}`), "", now.Add(-time.Hour)))

	runs, err := repo.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, core.ReportID("r2"), runs[0].ID)
	assert.Empty(t, runs[0].Markdown)
	assert.NoError(t, mock.ExpectationsWereMet())
}
