package toolkit

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"surveystat/domain/dataset"
	"surveystat/domain/stats"

	"gonum.org/v1/gonum/stat"
)

// CorrelationAnalysis correlates every feature with the target using pairwise complete
// observations. With no features given, every other numeric column is used.
func (t *Toolkit) CorrelationAnalysis(ds *dataset.Dataset, target string, features ...string) (stats.CorrelationReport, error) {
	y, err := ds.Numeric(target)
	if err != nil {
		return stats.CorrelationReport{}, err
	}

	if len(features) == 0 {
		for _, name := range ds.NumericNames() {
			if name != target {
				features = append(features, name)
			}
		}
	}

	report := stats.CorrelationReport{
		Target:       target,
		Correlations: make([]stats.CorrelationResult, 0, len(features)),
	}
	for _, feature := range features {
		x, err := ds.Numeric(feature)
		if err != nil {
			return stats.CorrelationReport{}, err
		}
		r, p, n := pearson(x, y)
		report.Correlations = append(report.Correlations, t.correlationResult(feature, r, p, n))
	}

	sort.SliceStable(report.Correlations, func(i, j int) bool {
		ai := math.Abs(report.Correlations[i].Correlation)
		aj := math.Abs(report.Correlations[j].Correlation)
		if ai != aj {
			return ai > aj
		}
		return report.Correlations[i].Feature < report.Correlations[j].Feature
	})
	if len(report.Correlations) > 0 {
		report.Strongest = report.Correlations[0].Feature
	}
	return report, nil
}

// CorrelationMatrix returns pairwise Pearson coefficients between the named numeric
// columns, in the given order.
func (t *Toolkit) CorrelationMatrix(ds *dataset.Dataset, names ...string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for i, name := range names {
		values, err := ds.Numeric(name)
		if err != nil {
			return nil, err
		}
		cols[i] = values
	}

	matrix := make([][]float64, len(names))
	for i := range matrix {
		matrix[i] = make([]float64, len(names))
		matrix[i][i] = 1
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			r, _, _ := pearson(cols[i], cols[j])
			matrix[i][j] = r
			matrix[j][i] = r
		}
	}
	return matrix, nil
}

func (t *Toolkit) correlationResult(feature string, r, p float64, n int) stats.CorrelationResult {
	res := stats.CorrelationResult{
		Feature:     feature,
		Correlation: r,
		PValue:      p,
		N:           n,
		Significant: t.significant(p),
		Strength:    correlationStrength(r),
		Direction:   "negative",
	}
	if r > 0 {
		res.Direction = "positive"
	}
	res.Interpretation = fmt.Sprintf("%s %s correlation", titleCase(string(res.Strength)), res.Direction)
	return res
}

func correlationStrength(r float64) stats.CorrelationStrength {
	abs := math.Abs(r)
	switch {
	case abs >= 0.7:
		return stats.StrengthStrong
	case abs >= 0.3:
		return stats.StrengthModerate
	default:
		return stats.StrengthWeak
	}
}

// pearson returns r, its two-sided p-value and the number of complete pairs.
// Fewer than three pairs or a constant side yields r=0, p=1.
func pearson(x, y []float64) (float64, float64, int) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if dataset.IsMissing(x[i]) || dataset.IsMissing(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}

	pairs := len(xs)
	if pairs < 3 || isConstant(xs) || isConstant(ys) {
		return 0, 1, pairs
	}

	r := stat.Correlation(xs, ys, nil)
	r = math.Max(-1, math.Min(1, r))
	if math.Abs(r) == 1 {
		return r, 0, pairs
	}
	df := float64(pairs - 2)
	tStat := r * math.Sqrt(df/(1-r*r))
	return r, twoSidedT(tStat, df), pairs
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
