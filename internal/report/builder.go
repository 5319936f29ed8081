package report

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"surveystat/domain/dataset"
	"surveystat/domain/stats"
	"surveystat/internal"
	"surveystat/internal/analysis/toolkit"
)

// maxHistograms caps the number of distribution charts per report
const maxHistograms = 6

// GroupComparison is a two-group comparison of one outcome
type GroupComparison struct {
	GroupColumn string
	Outcome     string
	GroupA      string
	GroupB      string
	TTest       stats.TTestResult
	CohensD     float64
}

// ChiSquareSection is an independence test between two columns
type ChiSquareSection struct {
	ColumnA string
	ColumnB string
	Result  stats.ChiSquareResult
}

// MetricAnomalies are robust outliers found in one metric
type MetricAnomalies struct {
	Metric string
	Result stats.AnomalyResult
}

// Input carries every computed result that goes into a report. Nil sections are omitted.
type Input struct {
	Title       string
	Dataset     *dataset.Dataset
	GeneratedAt time.Time
	Alpha       float64

	Dictionary   []dataset.VariableInfo
	Categories   dataset.Categories
	Missing      dataset.MissingProfile
	Descriptives []toolkit.Summary

	Correlation       *stats.CorrelationReport
	CorrelationLabels []string
	CorrelationMatrix [][]float64
	Normality         []stats.NormalityResult
	Comparisons       []GroupComparison
	ChiSquare         *ChiSquareSection
	KPI               *stats.KPIReport
	Anomalies         []MetricAnomalies

	// Notes explain optional sections that could not be computed
	Notes []string
}

// Builder assembles markdown reports
type Builder struct {
	charts ChartRenderer
	logger *internal.Logger
}

// NewBuilder creates a builder drawing figures with the given renderer
func NewBuilder(charts ChartRenderer, logger *internal.Logger) *Builder {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Builder{charts: charts, logger: logger.With("report")}
}

// Build renders the report. Chart failures are logged and skipped.
func (b *Builder) Build(ctx context.Context, in Input) (string, error) {
	if in.Dataset == nil {
		return "", fmt.Errorf("report input has no dataset")
	}
	if in.Alpha == 0 {
		in.Alpha = toolkit.DefaultSignificanceLevel
	}

	sections := []func(*strings.Builder, Input){
		b.writeHeader,
		b.writeExecutiveSummary,
		b.writeOverview,
		b.writeDescriptives,
		b.writeCorrelation,
		b.writeNormality,
		b.writeComparisons,
		b.writeChiSquare,
		b.writeKPI,
		b.writeNotes,
		b.writeMethodology,
	}

	var sb strings.Builder
	for _, section := range sections {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		section(&sb, in)
	}
	return sb.String(), nil
}

func (b *Builder) writeHeader(sb *strings.Builder, in Input) {
	title := in.Title
	if title == "" {
		title = "Unified Analysis Report"
	}
	fmt.Fprintf(sb, "# %s\n\n", title)
	fmt.Fprintf(sb, "**Dataset:** %s  \n", in.Dataset.Name)
	if in.Dataset.Source != "" {
		fmt.Fprintf(sb, "**Source:** `%s`  \n", in.Dataset.Source)
	}
	fmt.Fprintf(sb, "**Generated:** %s  \n", in.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(sb, "**Significance level:** α = %s\n\n---\n\n", formatFloat(in.Alpha, 3))
}

func (b *Builder) writeExecutiveSummary(sb *strings.Builder, in Input) {
	sb.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(sb, "- **Sample size:** %d responses across %d variables\n", in.Dataset.Rows(), len(in.Dataset.Columns()))
	fmt.Fprintf(sb, "- **Data completeness:** %s%% of cells present (%d complete cases)\n",
		formatFloat(100-in.Missing.OverallRate, 1), in.Missing.CompleteCases)

	if c := in.Correlation; c != nil && c.Strongest != "" {
		top, _ := c.Lookup(c.Strongest)
		fmt.Fprintf(sb, "- **Strongest driver of %s:** %s (r = %s, %s)\n",
			c.Target, top.Feature, formatFloat(top.Correlation, 3), formatP(top.PValue))
	}
	for _, cmp := range in.Comparisons {
		fmt.Fprintf(sb, "- **%s by %s:** %s vs %s differ with %s effect (d = %s, %s)\n",
			cmp.Outcome, cmp.GroupColumn, cmp.GroupA, cmp.GroupB,
			strings.ToLower(stats.EffectSizeLabel(cmp.CohensD)), formatFloat(cmp.CohensD, 2), formatP(cmp.TTest.PValue))
	}
	if in.KPI != nil {
		for _, m := range in.KPI.Metrics {
			fmt.Fprintf(sb, "- **%s:** %s (current %s, %s%% vs baseline)\n",
				m.Metric, m.Interpretation, formatFloat(m.CurrentValue, 2), formatSigned(m.PercentageChange, 1))
		}
	}
	sb.WriteString("\n---\n\n")
}

func (b *Builder) writeOverview(sb *strings.Builder, in Input) {
	sb.WriteString("## Dataset Overview & Data Quality\n\n")
	fmt.Fprintf(sb, "- **Observations:** %d\n", in.Dataset.Rows())
	fmt.Fprintf(sb, "- **Variables:** %d (%d continuous, %d categorical, %d binary)\n",
		len(in.Dataset.Columns()), len(in.Categories.Continuous), len(in.Categories.Categorical), len(in.Categories.Binary))
	fmt.Fprintf(sb, "- **Missing values:** %s%% overall, %d incomplete cases\n", formatFloat(in.Missing.OverallRate, 2), in.Missing.IncompleteCases)
	fmt.Fprintf(sb, "- **Mechanism:** %s\n", in.Missing.Mechanism)
	fmt.Fprintf(sb, "- **Recommendation:** %s\n\n", in.Missing.Recommendation)

	if len(in.Missing.Variables) > 0 {
		sb.WriteString("| Variable | Missing | % | Recommendation |\n|---|---:|---:|---|\n")
		for _, v := range in.Missing.Variables {
			fmt.Fprintf(sb, "| %s | %d | %s | %s |\n", v.Name, v.Count, formatFloat(v.Percentage, 1), v.Recommendation)
		}
		sb.WriteString("\n")
	}

	if len(in.Dictionary) > 0 {
		sb.WriteString("### Data Dictionary\n\n| # | Variable | Type | Non-null | Unique | Label |\n|---:|---|---|---:|---:|---|\n")
		for _, v := range in.Dictionary {
			fmt.Fprintf(sb, "| %d | %s | %s | %d | %d | %s |\n", v.Position, v.Name, v.Type, v.NonNullCount, v.UniqueValues, v.Label)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("---\n\n")
}

func (b *Builder) writeDescriptives(sb *strings.Builder, in Input) {
	if len(in.Descriptives) == 0 {
		return
	}
	sb.WriteString("## Descriptive Statistics\n\n")
	sb.WriteString("| Variable | N | Mean | SD | Min | Q1 | Median | Q3 | Max | Skew |\n|---|---:|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, s := range in.Descriptives {
		fmt.Fprintf(sb, "| %s | %d | %s | %s | %s | %s | %s | %s | %s | %s |\n", s.Variable, s.Count,
			formatFloat(s.Mean, 2), formatFloat(s.Std, 2), formatFloat(s.Min, 2), formatFloat(s.Q1, 2),
			formatFloat(s.Median, 2), formatFloat(s.Q3, 2), formatFloat(s.Max, 2), formatFloat(s.Skewness, 2))
	}
	sb.WriteString("\n")

	for i, s := range in.Descriptives {
		if i >= maxHistograms {
			break
		}
		values, err := in.Dataset.Numeric(s.Variable)
		if err != nil {
			continue
		}
		b.embed(sb, func() (*Chart, error) {
			return b.charts.Histogram("Distribution of "+s.Variable, values)
		})
	}
	sb.WriteString("---\n\n")
}

func (b *Builder) writeCorrelation(sb *strings.Builder, in Input) {
	c := in.Correlation
	if c == nil {
		return
	}
	sb.WriteString("## Correlation Analysis\n\n")
	if len(in.CorrelationMatrix) > 0 {
		b.embed(sb, func() (*Chart, error) {
			return b.charts.Heatmap("Correlation Matrix", in.CorrelationLabels, in.CorrelationMatrix)
		})
	}

	fmt.Fprintf(sb, "### Key Correlation Findings (target: %s)\n\n", c.Target)
	if len(c.Correlations) == 0 {
		sb.WriteString("No numeric features were available to correlate.\n\n---\n\n")
		return
	}
	sb.WriteString("| Feature | r | p | N | Strength | Direction | Significant |\n|---|---:|---:|---:|---|---|---|\n")
	for _, r := range c.Correlations {
		fmt.Fprintf(sb, "| %s | %s | %s | %d | %s | %s | %s |\n", r.Feature, formatFloat(r.Correlation, 3),
			formatP(r.PValue), r.N, r.Strength, r.Direction, yesNo(r.Significant))
	}
	sb.WriteString("\n")

	if c.Strongest != "" {
		target, errT := in.Dataset.Numeric(c.Target)
		feature, errF := in.Dataset.Numeric(c.Strongest)
		if errT == nil && errF == nil {
			b.embed(sb, func() (*Chart, error) {
				return b.charts.Scatter(c.Strongest+" vs "+c.Target, c.Strongest, c.Target, feature, target)
			})
		}
	}
	sb.WriteString("---\n\n")
}

func (b *Builder) writeNormality(sb *strings.Builder, in Input) {
	if len(in.Normality) == 0 {
		return
	}
	sb.WriteString("## Normality Assessment (Shapiro-Wilk)\n\n")
	sb.WriteString("| Variable | N | W | p | Result |\n|---|---:|---:|---:|---|\n")
	nonNormal := 0
	for _, r := range in.Normality {
		fmt.Fprintf(sb, "| %s | %d | %s | %s | %s |\n", r.Variable, r.N, formatFloat(r.Statistic, 4), formatP(r.PValue), r.Interpretation)
		if !r.Normal {
			nonNormal++
		}
	}
	sb.WriteString("\n")
	if nonNormal > 0 && in.Dataset.Rows() >= 30 {
		fmt.Fprintf(sb, "**Interpretation:** %d variable(s) deviate from normality; with n = %d the central limit theorem supports parametric tests on means.\n\n",
			nonNormal, in.Dataset.Rows())
	}
	sb.WriteString("---\n\n")
}

func (b *Builder) writeComparisons(sb *strings.Builder, in Input) {
	if len(in.Comparisons) == 0 {
		return
	}
	sb.WriteString("## Group Comparisons\n\n")
	for _, cmp := range in.Comparisons {
		t := cmp.TTest
		fmt.Fprintf(sb, "### %s by %s: %s vs %s\n\n", cmp.Outcome, cmp.GroupColumn, cmp.GroupA, cmp.GroupB)
		fmt.Fprintf(sb, "- **%s:** Mean = %s (SD = %s, n = %d)\n", cmp.GroupA, formatFloat(t.MeanA, 2), formatFloat(t.StdA, 2), t.NA)
		fmt.Fprintf(sb, "- **%s:** Mean = %s (SD = %s, n = %d)\n", cmp.GroupB, formatFloat(t.MeanB, 2), formatFloat(t.StdB, 2), t.NB)
		fmt.Fprintf(sb, "- **Levene's test:** W = %s, %s (%s)\n", formatFloat(t.LeveneStatistic, 3), formatP(t.LeveneP),
			map[bool]string{true: "equal variances assumed", false: "unequal variances, Welch correction"}[t.EqualVarianceAssumed])
		fmt.Fprintf(sb, "- **t-test:** t(%s) = %s, %s\n", formatFloat(t.DegreesOfFreedom, 1), formatFloat(t.TStatistic, 3), formatP(t.PValue))
		fmt.Fprintf(sb, "- **Cohen's d:** %s (%s effect)\n", formatFloat(cmp.CohensD, 3), stats.EffectSizeLabel(cmp.CohensD))
		fmt.Fprintf(sb, "- **Result:** %s difference\n\n", stats.SignificanceWord(t.PValue, in.Alpha))
	}
	sb.WriteString("---\n\n")
}

func (b *Builder) writeChiSquare(sb *strings.Builder, in Input) {
	c := in.ChiSquare
	if c == nil {
		return
	}
	r := c.Result
	fmt.Fprintf(sb, "## Chi-Square Test of Independence: %s × %s\n\n", c.ColumnA, c.ColumnB)
	fmt.Fprintf(sb, "- **χ²(%d)** = %s, %s\n", r.DegreesOfFreedom, formatFloat(r.Chi2, 3), formatP(r.PValue))
	fmt.Fprintf(sb, "- **Result:** %s association\n\n", stats.SignificanceWord(r.PValue, in.Alpha))

	if len(r.Observed) > 0 {
		fmt.Fprintf(sb, "| %s \\ %s | %s |\n", c.ColumnA, c.ColumnB, strings.Join(r.ColumnLabels, " | "))
		sb.WriteString("|---|" + strings.Repeat("---:|", len(r.ColumnLabels)) + "\n")
		for i, label := range r.RowLabels {
			cells := make([]string, len(r.Observed[i]))
			for j := range r.Observed[i] {
				cells[j] = fmt.Sprintf("%.0f (%s)", r.Observed[i][j], formatFloat(r.ExpectedFrequencies[i][j], 1))
			}
			fmt.Fprintf(sb, "| %s | %s |\n", label, strings.Join(cells, " | "))
		}
		sb.WriteString("\nCells show observed (expected) counts.\n\n")
	}
	sb.WriteString("---\n\n")
}

func (b *Builder) writeKPI(sb *strings.Builder, in Input) {
	if in.KPI == nil && len(in.Anomalies) == 0 {
		return
	}
	sb.WriteString("## KPI Performance & Anomalies\n\n")
	if k := in.KPI; k != nil {
		fmt.Fprintf(sb, "Ordered by `%s`, baseline of %d periods.\n\n", k.TimeColumn, k.BaselinePeriod)
		if len(k.Metrics) > 0 {
			sb.WriteString("| Metric | Current | Baseline | Change % | Mean | Volatility % | Slope | p | R² | Trend |\n|---|---:|---:|---:|---:|---:|---:|---:|---:|---|\n")
			for _, m := range k.Metrics {
				fmt.Fprintf(sb, "| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n", m.Metric,
					formatFloat(m.CurrentValue, 2), formatFloat(m.BaselineAverage, 2), formatSigned(m.PercentageChange, 1),
					formatFloat(m.OverallAverage, 2), formatFloat(m.Volatility, 1), formatFloat(m.TrendSlope, 3),
					formatP(m.TrendSignificance), formatFloat(m.RSquared, 3), m.Performance)
			}
			sb.WriteString("\n")
			for _, m := range k.Metrics {
				series := m.Series
				b.embed(sb, func() (*Chart, error) {
					return b.charts.Trend(m.Metric+" over "+k.TimeColumn, series)
				})
			}
		}
		for _, s := range k.Skipped {
			fmt.Fprintf(sb, "- `%s` skipped: %s\n", s.Metric, s.Reason)
		}
		if len(k.Skipped) > 0 {
			sb.WriteString("\n")
		}
	}

	if len(in.Anomalies) > 0 {
		sb.WriteString("### Anomalies (modified z-score > 3.5)\n\n")
		for _, a := range in.Anomalies {
			if a.Result.Count() == 0 {
				fmt.Fprintf(sb, "- **%s:** none (median %s, MAD %s)\n", a.Metric, formatFloat(a.Result.Median, 2), formatFloat(a.Result.MAD, 2))
				continue
			}
			values := make([]string, len(a.Result.Values))
			for i, v := range a.Result.Values {
				values[i] = formatFloat(v, 2)
			}
			fmt.Fprintf(sb, "- **%s:** %d anomalies at positions %v: %s\n", a.Metric, a.Result.Count(), a.Result.Indices, strings.Join(values, ", "))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("---\n\n")
}

func (b *Builder) writeNotes(sb *strings.Builder, in Input) {
	if len(in.Notes) == 0 {
		return
	}
	sb.WriteString("## Analysis Notes\n\n")
	for _, n := range in.Notes {
		fmt.Fprintf(sb, "- %s\n", n)
	}
	sb.WriteString("\n---\n\n")
}

func (b *Builder) writeMethodology(sb *strings.Builder, in Input) {
	sb.WriteString("## Statistical Methodology\n\n")
	sb.WriteString("- **Correlation:** Pearson product-moment correlation on pairwise complete observations, two-sided t test\n")
	sb.WriteString("- **Normality:** Shapiro-Wilk W test (Royston approximation)\n")
	sb.WriteString("- **Group comparison:** Levene's test (median-centred) selects Student's pooled or Welch's t-test; Cohen's d with pooled SD\n")
	sb.WriteString("- **Independence:** Pearson χ² with Yates' continuity correction for 2×2 tables\n")
	sb.WriteString("- **Trend:** ordinary least squares against observation order; slope tested with n-2 degrees of freedom\n")
	sb.WriteString("- **Anomalies:** modified z-score 0.6745·(x − median)/MAD, flagged above 3.5\n")
	fmt.Fprintf(sb, "- **Significance:** α = %s throughout\n", formatFloat(in.Alpha, 3))
	if !b.charts.Enabled() {
		sb.WriteString("\n*Charts were not rendered in this environment.*\n")
	}
}

// embed renders a chart and appends it, logging failures
func (b *Builder) embed(sb *strings.Builder, render func() (*Chart, error)) {
	chart, err := render()
	if err != nil {
		b.logger.Warn("chart skipped: %v", err)
		return
	}
	if chart == nil {
		return
	}
	fmt.Fprintf(sb, "%s\n\n", chart.Markdown())
}

func formatFloat(v float64, digits int) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	if math.IsInf(v, 0) {
		return "∞"
	}
	return fmt.Sprintf("%.*f", digits, v)
}

func formatSigned(v float64, digits int) string {
	if v > 0 {
		return "+" + formatFloat(v, digits)
	}
	return formatFloat(v, digits)
}

// formatP renders a p-value as "p < 0.001" or "p = 0.042"
func formatP(p float64) string {
	if p < 0.001 {
		return "p < 0.001"
	}
	return "p = " + formatFloat(p, 3)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
