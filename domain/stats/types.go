package stats

import "math"

// Performance classifies the direction of a significant trend
type Performance string

const (
	PerformanceImproving Performance = "improving"
	PerformanceDeclining Performance = "declining"
	PerformanceStable    Performance = "stable"
)

// TrendResult is the outcome of a linear trend fit against observation order
type TrendResult struct {
	Slope          float64     `json:"slope"`
	Intercept      float64     `json:"intercept"`
	RSquared       float64     `json:"r_squared"`
	PValue         float64     `json:"p_value"`
	StdErr         float64     `json:"std_err"`
	N              int         `json:"n"`
	Performance    Performance `json:"performance"`
	Interpretation string      `json:"interpretation"`
}

// AnomalyResult lists robust outliers by position in the cleaned sample
type AnomalyResult struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
	Median  float64   `json:"median"`
	MAD     float64   `json:"mad"`
}

// Count returns the number of flagged observations
func (r AnomalyResult) Count() int {
	return len(r.Indices)
}

// CorrelationStrength buckets |r|
type CorrelationStrength string

const (
	StrengthStrong   CorrelationStrength = "strong"
	StrengthModerate CorrelationStrength = "moderate"
	StrengthWeak     CorrelationStrength = "weak"
)

// CorrelationResult is the Pearson correlation of one feature with the target
type CorrelationResult struct {
	Feature        string              `json:"feature"`
	Correlation    float64             `json:"correlation"`
	PValue         float64             `json:"p_value"`
	N              int                 `json:"n"`
	Significant    bool                `json:"significant"`
	Strength       CorrelationStrength `json:"strength"`
	Direction      string              `json:"direction"`
	Interpretation string              `json:"interpretation"`
}

// CorrelationReport holds per-feature correlations ordered by descending |r|
type CorrelationReport struct {
	Target       string              `json:"target_metric"`
	Correlations []CorrelationResult `json:"correlations"`
	Strongest    string              `json:"strongest_correlation,omitempty"`
}

// Lookup finds the result for a feature
func (r CorrelationReport) Lookup(feature string) (CorrelationResult, bool) {
	for _, c := range r.Correlations {
		if c.Feature == feature {
			return c, true
		}
	}
	return CorrelationResult{}, false
}

// NormalityResult is a Shapiro-Wilk test outcome for one variable
type NormalityResult struct {
	Variable       string  `json:"variable"`
	Test           string  `json:"test"`
	Statistic      float64 `json:"statistic"`
	PValue         float64 `json:"p_value"`
	N              int     `json:"n"`
	Normal         bool    `json:"normal"`
	Interpretation string  `json:"interpretation"`
}

// TTestResult is an independent two-sample comparison preceded by Levene's test
type TTestResult struct {
	LeveneStatistic      float64 `json:"levene_statistic"`
	LeveneP              float64 `json:"levene_p"`
	EqualVarianceAssumed bool    `json:"equal_variance_assumed"`
	TStatistic           float64 `json:"t_statistic"`
	PValue               float64 `json:"p_value"`
	DegreesOfFreedom     float64 `json:"degrees_of_freedom"`
	MeanA                float64 `json:"mean_a"`
	MeanB                float64 `json:"mean_b"`
	StdA                 float64 `json:"std_a"`
	StdB                 float64 `json:"std_b"`
	NA                   int     `json:"n_a"`
	NB                   int     `json:"n_b"`
}

// ChiSquareResult is a chi-square test of independence on a contingency table
type ChiSquareResult struct {
	Chi2                float64     `json:"chi2"`
	PValue              float64     `json:"p_value"`
	DegreesOfFreedom    int         `json:"degrees_of_freedom"`
	RowLabels           []string    `json:"row_labels"`
	ColumnLabels        []string    `json:"column_labels"`
	Observed            [][]float64 `json:"observed"`
	ExpectedFrequencies [][]float64 `json:"expected_frequencies"`
	Significant         bool        `json:"significant"`
}

// KPIResult summarises one business metric
type KPIResult struct {
	Metric            string      `json:"metric"`
	CurrentValue      float64     `json:"current_value"`
	BaselineAverage   float64     `json:"baseline_average"`
	OverallAverage    float64     `json:"overall_average"`
	PercentageChange  float64     `json:"percentage_change"`
	TrendSlope        float64     `json:"trend_slope"`
	TrendSignificance float64     `json:"trend_significance"`
	RSquared          float64     `json:"r_squared"`
	Volatility        float64     `json:"volatility"`
	Performance       Performance `json:"performance"`
	Interpretation    string      `json:"interpretation"`
	Series            []float64   `json:"series,omitempty"`
}

// SkippedMetric records why a metric was left out of a KPI analysis
type SkippedMetric struct {
	Metric string `json:"metric"`
	Reason string `json:"reason"`
}

// KPIReport holds analysed metrics in request order plus the ones that were skipped
type KPIReport struct {
	TimeColumn     string          `json:"time_column"`
	BaselinePeriod int             `json:"baseline_period"`
	Metrics        []KPIResult     `json:"metrics"`
	Skipped        []SkippedMetric `json:"skipped,omitempty"`
}

// EffectSizeLabel describes the magnitude of Cohen's d for presentation
func EffectSizeLabel(d float64) string {
	abs := math.Abs(d)
	switch {
	case abs < 0.2:
		return "Small"
	case abs < 0.5:
		return "Small to Medium"
	case abs < 0.8:
		return "Medium to Large"
	default:
		return "Large"
	}
}

// SignificanceWord returns "Significant" or "Non-significant"
func SignificanceWord(pValue, alpha float64) string {
	if pValue < alpha {
		return "Significant"
	}
	return "Non-significant"
}
