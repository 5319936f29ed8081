package toolkit

import (
	"errors"
	"fmt"
	"sort"

	"surveystat/domain/core"
	"surveystat/domain/dataset"
	"surveystat/domain/stats"

	mstats "github.com/montanaflynn/stats"
)

// Skip reasons reported in KPIReport.Skipped
const (
	SkipNotFound            = "not found"
	SkipNotNumeric          = "not numeric"
	SkipInsufficientHistory = "insufficient history"
)

// BusinessKPIAnalysis summarises each metric over time. Rows are ordered by the time
// column first. Metrics that cannot be analysed are listed in Skipped instead of
// failing the call. A baseline period below 2 fails with ErrInsufficientData.
func (t *Toolkit) BusinessKPIAnalysis(ds *dataset.Dataset, metrics []string, timeColumn string, baselinePeriod int) (stats.KPIReport, error) {
	order, err := TimeOrder(ds, timeColumn)
	if err != nil {
		return stats.KPIReport{}, err
	}
	if baselinePeriod < 2 {
		return stats.KPIReport{}, fmt.Errorf("%w: baseline period must be at least 2, got %d", core.ErrInsufficientData, baselinePeriod)
	}

	report := stats.KPIReport{
		TimeColumn:     timeColumn,
		BaselinePeriod: baselinePeriod,
		Metrics:        []stats.KPIResult{},
	}
	for _, metric := range metrics {
		result, err := t.AnalyzeMetric(ds, order, metric, baselinePeriod)
		if err != nil {
			reason, ok := SkipReason(err)
			if !ok {
				return stats.KPIReport{}, err
			}
			report.Skipped = append(report.Skipped, stats.SkippedMetric{Metric: metric, Reason: reason})
			continue
		}
		report.Metrics = append(report.Metrics, result)
	}
	return report, nil
}

// AnalyzeMetric computes the KPI summary for one metric given a row order from
// TimeOrder. It is safe to call concurrently for different metrics.
func (t *Toolkit) AnalyzeMetric(ds *dataset.Dataset, order []int, metric string, baselinePeriod int) (stats.KPIResult, error) {
	values, err := ds.Numeric(metric)
	if err != nil {
		return stats.KPIResult{}, err
	}

	series := make([]float64, 0, len(order))
	for _, row := range order {
		if !dataset.IsMissing(values[row]) {
			series = append(series, values[row])
		}
	}
	n := len(series)
	if n < baselinePeriod || n < 2 {
		return stats.KPIResult{}, core.NewInsufficientDataError("kpi "+metric, n, max(baselinePeriod, 2))
	}

	current := series[n-1]
	baseline, err := mstats.Mean(series[n-baselinePeriod : n-1])
	if err != nil {
		return stats.KPIResult{}, err
	}
	overall, err := mstats.Mean(series)
	if err != nil {
		return stats.KPIResult{}, err
	}
	std, err := mstats.StandardDeviationSample(series)
	if err != nil {
		return stats.KPIResult{}, err
	}

	trend, err := t.TrendAnalysis(series)
	if err != nil {
		return stats.KPIResult{}, err
	}

	res := stats.KPIResult{
		Metric:            metric,
		CurrentValue:      current,
		BaselineAverage:   baseline,
		OverallAverage:    overall,
		TrendSlope:        trend.Slope,
		TrendSignificance: trend.PValue,
		RSquared:          trend.RSquared,
		Performance:       trend.Performance,
		Interpretation:    trend.Interpretation,
		Series:            series,
	}
	if baseline != 0 {
		res.PercentageChange = (current - baseline) / baseline * 100
	}
	if overall != 0 {
		res.Volatility = std / overall * 100
	}
	return res, nil
}

// SkipReason maps an AnalyzeMetric error to a skip reason. Errors that are not caused
// by the metric's data report false.
func SkipReason(err error) (string, bool) {
	switch {
	case errors.Is(err, core.ErrVariableNotFound):
		return SkipNotFound, true
	case errors.Is(err, core.ErrNotNumeric):
		return SkipNotNumeric, true
	case errors.Is(err, core.ErrInsufficientData):
		return SkipInsufficientHistory, true
	default:
		return "", false
	}
}

// TimeOrder returns row indices sorted ascending by the time column. The sort is
// stable; missing times sort last.
func TimeOrder(ds *dataset.Dataset, timeColumn string) ([]int, error) {
	col, err := ds.Column(timeColumn)
	if err != nil {
		return nil, err
	}

	order := make([]int, ds.Rows())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		ri, rj := order[i], order[j]
		mi, mj := col.IsMissing(ri), col.IsMissing(rj)
		if mi || mj {
			return !mi && mj
		}
		if col.IsNumeric() {
			return col.Float(ri) < col.Float(rj)
		}
		return col.Text(ri) < col.Text(rj)
	})
	return order, nil
}
