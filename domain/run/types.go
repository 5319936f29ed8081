package run

import (
	"time"

	"surveystat/domain/core"
)

// Parameters are the analysis choices a report was produced with
type Parameters struct {
	Variables      []string `json:"variables,omitempty"`
	Target         string   `json:"target,omitempty"`
	GroupColumn    string   `json:"group_column,omitempty"`
	Outcome        string   `json:"outcome,omitempty"`
	ChiSquare      []string `json:"chi_square,omitempty"`
	Metrics        []string `json:"metrics,omitempty"`
	TimeColumn     string   `json:"time_column,omitempty"`
	BaselinePeriod int      `json:"baseline_period,omitempty"`
	Alpha          float64  `json:"alpha"`
}

// Summary is the searchable digest stored alongside the markdown
type Summary struct {
	Parameters Parameters `json:"parameters"`
	Findings   []string   `json:"findings"`
	Notes      []string   `json:"notes,omitempty"`
}

// Run is one archived report generation
type Run struct {
	ID          core.ReportID `json:"id"`
	Dataset     string        `json:"dataset"`
	SourcePath  string        `json:"source_path"`
	ReportPath  string        `json:"report_path"`
	Rows        int           `json:"rows"`
	Columns     int           `json:"columns"`
	Fingerprint string        `json:"fingerprint"`
	Summary     Summary       `json:"summary"`
	CreatedAt   time.Time     `json:"created_at"`

	// Markdown is loaded by Get only; List leaves it empty
	Markdown string `json:"-"`
}

// Title returns a display name for listings
func (r *Run) Title() string {
	return r.Dataset + " · " + r.CreatedAt.Format("2006-01-02 15:04")
}
