package ui

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"surveystat/domain/core"
	"surveystat/domain/run"
)

const defaultListLimit = 50

// handleIndex lists archived runs, newest first
func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := a.reports.List(r.Context(), defaultListLimit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.renderTemplate(w, "index.html", map[string]interface{}{
		"Title": "Survey Reports",
		"Runs":  runs,
	})
}

// handleReport renders a report as HTML, or as raw markdown when the ID ends in .md
func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	asMarkdown := strings.HasSuffix(raw, ".md")

	rn, ok := a.loadRun(w, r, strings.TrimSuffix(raw, ".md"))
	if !ok {
		return
	}

	if asMarkdown {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", `inline; filename="`+rn.ID.String()+`.md"`)
		_, _ = w.Write([]byte(rn.Markdown))
		return
	}
	a.renderTemplate(w, "report.html", map[string]interface{}{
		"Title": rn.Title(),
		"Run":   rn,
	})
}

// handleListReports returns archived runs as JSON. ?limit=N caps the list.
func (a *App) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	runs, err := a.reports.List(r.Context(), limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*run.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": runs,
		"count":   len(runs),
	})
}

// handleGetReport returns one run's metadata and markdown as JSON
func (a *App) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rn, ok := a.loadRun(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*run.Run
		Markdown string `json:"markdown"`
	}{rn, rn.Markdown})
}

func (a *App) loadRun(w http.ResponseWriter, r *http.Request, rawID string) (*run.Run, bool) {
	id, err := core.ParseReportID(rawID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}
	rn, err := a.reports.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return nil, false
	}
	return rn, true
}

func (a *App) writeError(w http.ResponseWriter, err error) {
	if core.IsNotFoundError(err) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	a.logger.Error("request failed: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
