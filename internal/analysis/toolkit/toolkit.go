// Package toolkit holds the statistics used by survey reports: trend and anomaly
// detection, correlation, normality, group comparison, contingency tests and KPI
// summaries. Every function is pure: inputs are never modified, results are freshly
// allocated and nothing is logged. A Toolkit is safe for concurrent use.
package toolkit

import (
	"surveystat/domain/core"
)

// DefaultSignificanceLevel is the alpha used when none is configured
const DefaultSignificanceLevel = 0.05

// Options configures a Toolkit
type Options struct {
	SignificanceLevel float64
}

// Toolkit runs statistical procedures against a fixed significance level
type Toolkit struct {
	alpha float64
}

// New creates a toolkit. A zero SignificanceLevel selects the default.
func New(opts Options) (*Toolkit, error) {
	alpha := opts.SignificanceLevel
	if alpha == 0 {
		alpha = DefaultSignificanceLevel
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, core.ErrInvalidSignificance
	}
	return &Toolkit{alpha: alpha}, nil
}

// Default returns a toolkit at the 5% significance level
func Default() *Toolkit {
	return &Toolkit{alpha: DefaultSignificanceLevel}
}

// SignificanceLevel returns the configured alpha
func (t *Toolkit) SignificanceLevel() float64 {
	return t.alpha
}

func (t *Toolkit) significant(p float64) bool {
	return p < t.alpha
}
