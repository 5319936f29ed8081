package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"surveystat/adapters/filestore"
	"surveystat/domain/run"
	"surveystat/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	return newTestAppWithMetrics(t, nil)
}

func newTestAppWithMetrics(t *testing.T, m *metrics.Metrics) *App {
	t.Helper()
	repo, err := filestore.NewReportRepository(t.TempDir())
	require.NoError(t, err)

	created := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.Save(context.Background(), &run.Run{
		ID:         "0190a1b2-report",
		Dataset:    "wave1",
		SourcePath: "data/raw/wave1.dta",
		Rows:       120,
		Columns:    14,
		CreatedAt:  created,
		Summary:    run.Summary{Findings: []string{"Strongest correlate of satisfaction: price"}},
		Markdown:   "# Wave 1\n\n| a | b |\n|---|---|\n| 1 | 2 |\n",
	}))

	app, err := NewApp(Config{Reports: repo, Metrics: m})
	require.NoError(t, err)
	return app
}

func get(t *testing.T, app *App, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndexListsReports(t *testing.T) {
	rec := get(t, newTestApp(t), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `href="/reports/0190a1b2-report"`)
	assert.Contains(t, body, "wave1")
	assert.Contains(t, body, "2024-05-01 09:30")
	assert.Contains(t, body, "Strongest correlate of satisfaction: price")
}

func TestReportHTML(t *testing.T) {
	rec := get(t, newTestApp(t), "/reports/0190a1b2-report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `<h1 id="wave-1">Wave 1</h1>`)
	assert.Contains(t, rec.Body.String(), "<table>")
}

func TestReportMarkdown(t *testing.T) {
	rec := get(t, newTestApp(t), "/reports/0190a1b2-report.md")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Equal(t, "# Wave 1\n\n| a | b |\n|---|---|\n| 1 | 2 |\n", rec.Body.String())
}

func TestReportNotFound(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusNotFound, get(t, app, "/reports/unknown").Code)
	assert.Equal(t, http.StatusNotFound, get(t, app, "/api/reports/unknown").Code)
}

func TestAPIReports(t *testing.T) {
	app := newTestApp(t)

	rec := get(t, app, "/api/reports")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Reports []run.Run `json:"reports"`
		Count   int       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "wave1", list.Reports[0].Dataset)

	assert.Equal(t, http.StatusBadRequest, get(t, app, "/api/reports?limit=abc").Code)

	rec = get(t, app, "/api/reports/0190a1b2-report")
	require.Equal(t, http.StatusOK, rec.Code)
	var one map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, "wave1", one["dataset"])
	assert.Contains(t, one["markdown"], "# Wave 1")
}

func TestNewAppRequiresRepository(t *testing.T) {
	_, err := NewApp(Config{})
	assert.Error(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, newTestApp(t), "/metrics").Code)

	app := newTestAppWithMetrics(t, metrics.New())
	require.Equal(t, http.StatusOK, get(t, app, "/reports/0190a1b2-report").Code)
	require.Equal(t, http.StatusNotFound, get(t, app, "/reports/unknown").Code)

	rec := get(t, app, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `surveystat_http_requests_total{code="200",route="/reports/{id}"} 1`)
	assert.Contains(t, body, `surveystat_http_requests_total{code="404",route="/reports/{id}"} 1`)
}
