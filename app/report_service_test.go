package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"surveystat/adapters/datafile"
	"surveystat/domain/core"
	"surveystat/domain/run"
	"surveystat/internal/config"
	"surveystat/internal/errors"
	"surveystat/internal/metrics"
	"surveystat/internal/report"
	"surveystat/ports"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReportRepository struct {
	mock.Mock
}

func (m *mockReportRepository) Save(ctx context.Context, r *run.Run) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockReportRepository) Get(ctx context.Context, id core.ReportID) (*run.Run, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*run.Run); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReportRepository) List(ctx context.Context, limit int) ([]*run.Run, error) {
	args := m.Called(ctx, limit)
	if r, ok := args.Get(0).([]*run.Run); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

const surveyCSV = `week,region,segment,tier,satisfaction,price,sales
1,north,a,a,3,10,100
2,south,b,a,4,8,104
3,north,a,a,5,6,103
4,south,b,a,4,7,108
5,north,a,a,2,12,110
6,south,b,a,5,5,109
7,north,a,a,3,9,115
8,south,b,a,4,8,118
9,north,a,a,5,6,117
10,south,b,a,4,7,121
11,north,a,a,3,11,125
12,south,b,b,5,5,124
`

func newTestService(t *testing.T, repo *mockReportRepository) (*ReportService, string) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "survey.csv")
	require.NoError(t, os.WriteFile(input, []byte(surveyCSV), 0o644))

	cfg := config.Default()
	cfg.Paths.Output = filepath.Join(dir, "output")

	var archive ports.ReportRepository
	if repo != nil {
		archive = repo
	}
	svc, err := NewReportService(cfg, datafile.Loader{}, archive, report.NewChartRenderer(report.Capabilities{}, cfg.Charts), nil)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	return svc, input
}

func fullRequest(path string) ReportRequest {
	return ReportRequest{
		FilePath:       path,
		Title:          "Survey",
		Variables:      []string{"satisfaction", "price", "sales"},
		GroupColumns:   []string{"segment", "price", "tier"},
		ChiSquareA:     "region",
		ChiSquareB:     "segment",
		Metrics:        []string{"sales", "region", "ghost"},
		TimeColumn:     "week",
		BaselinePeriod: 3,
	}
}

func TestGenerate_FullReport(t *testing.T) {
	repo := &mockReportRepository{}
	repo.On("Save", mock.Anything, mock.MatchedBy(func(r *run.Run) bool {
		return r.Dataset == "survey" && r.ID != "" && r.Rows == 12 && r.Markdown != "" && r.Fingerprint != ""
	})).Return(nil).Once()

	svc, input := newTestService(t, repo)
	res, err := svc.Generate(context.Background(), fullRequest(input))
	require.NoError(t, err)
	repo.AssertExpectations(t)

	assert.Equal(t, "UNIFIED_ANALYSIS_survey_20240501_093000.md", filepath.Base(res.Path))
	written, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, res.Markdown, string(written))

	md := res.Markdown
	assert.Contains(t, md, "# Survey")
	assert.Contains(t, md, "### satisfaction by segment: a vs b")
	assert.Contains(t, md, "### satisfaction by price: Lower price vs Higher price")
	assert.Contains(t, md, "## Chi-Square Test of Independence: region × segment")
	assert.Contains(t, md, "`region` skipped: not numeric")
	assert.Contains(t, md, "`ghost` skipped: not found")

	require.NotEmpty(t, res.Notes)
	assert.True(t, hasNote(res.Notes, "t-test of satisfaction by tier skipped"), res.Notes)

	params := res.Run.Summary.Parameters
	assert.Equal(t, "satisfaction", params.Target)
	assert.Equal(t, "satisfaction", params.Outcome)
	assert.Equal(t, []string{"region", "segment"}, params.ChiSquare)
	assert.InDelta(t, 0.05, params.Alpha, 1e-12)
	assert.NotEmpty(t, res.Run.Summary.Findings)
}

func TestGenerate_MetricsKeepRequestOrder(t *testing.T) {
	svc, input := newTestService(t, nil)
	svc.cfg.Analysis.Workers = 8

	req := ReportRequest{
		FilePath:       input,
		Variables:      []string{"satisfaction"},
		Metrics:        []string{"sales", "price", "satisfaction"},
		BaselinePeriod: 3,
	}
	res, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	kpiStart := strings.Index(res.Markdown, "## KPI Performance")
	require.GreaterOrEqual(t, kpiStart, 0)
	md := res.Markdown[kpiStart:]
	assert.Contains(t, md, "Ordered by `file order`")
	iSales := strings.Index(md, "| sales |")
	iPrice := strings.Index(md, "| price |")
	iSat := strings.Index(md, "| satisfaction |")
	require.True(t, iSales >= 0 && iPrice >= 0 && iSat >= 0)
	assert.Less(t, iSales, iPrice)
	assert.Less(t, iPrice, iSat)
}

func TestGenerate_InvalidRequest(t *testing.T) {
	svc, input := newTestService(t, nil)

	_, err := svc.Generate(context.Background(), ReportRequest{FilePath: input, Target: "nope"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	_, err = svc.Generate(context.Background(), ReportRequest{FilePath: input, Variables: []string{"region"}})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = svc.Generate(context.Background(), ReportRequest{FilePath: input, ChiSquareA: "region"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))

	_, err = svc.Generate(context.Background(), ReportRequest{FilePath: input, BaselinePeriod: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))

	_, err = svc.Generate(context.Background(), ReportRequest{FilePath: filepath.Join(t.TempDir(), "x.csv")})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestGenerate_ArchiveFailure(t *testing.T) {
	repo := &mockReportRepository{}
	repo.On("Save", mock.Anything, mock.Anything).Return(fmt.Errorf("connection refused"))

	svc, input := newTestService(t, repo)
	_, err := svc.Generate(context.Background(), ReportRequest{FilePath: input})
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
}

func TestGenerate_Cancelled(t *testing.T) {
	svc, input := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, ReportRequest{FilePath: input})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewReportService_InvalidAlpha(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.SignificanceLevel = 1.5
	_, err := NewReportService(cfg, datafile.Loader{}, nil, report.NewChartRenderer(report.Capabilities{}, cfg.Charts), nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestReportFileName(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 59, 58, 0, time.UTC)
	assert.Equal(t, "UNIFIED_ANALYSIS_wave_1_final_20241231_235958.md", ReportFileName("wave 1/final", at))
	assert.Equal(t, "UNIFIED_ANALYSIS_dataset_20241231_235958.md", ReportFileName("", at))
}

func hasNote(notes []string, prefix string) bool {
	for _, n := range notes {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

func TestGenerate_RecordsMetrics(t *testing.T) {
	svc, input := newTestService(t, nil)
	m := metrics.New()
	svc.SetMetrics(m)

	_, err := svc.Generate(context.Background(), ReportRequest{FilePath: input, Metrics: []string{"sales", "ghost"}, BaselinePeriod: 3})
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), ReportRequest{FilePath: input, Target: "nope"})
	require.Error(t, err)

	count, err := testutil.GatherAndCount(m.Registry(), "surveystat_reports_generated_total", "surveystat_kpi_metrics_skipped_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	expected := `
# HELP surveystat_kpi_metrics_skipped_total KPI metrics left out of reports for lack of data
# TYPE surveystat_kpi_metrics_skipped_total counter
surveystat_kpi_metrics_skipped_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "surveystat_kpi_metrics_skipped_total"))
}
