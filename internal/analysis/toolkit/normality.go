package toolkit

import (
	"fmt"

	"surveystat/domain/core"
	"surveystat/domain/dataset"
	"surveystat/domain/stats"

	"github.com/dgryski/go-onlinestats"
)

const shapiroWilk = "Shapiro-Wilk"

// CheckNormality runs the Shapiro-Wilk test on the non-missing values of each variable.
// Results follow the order of the variables given.
func (t *Toolkit) CheckNormality(ds *dataset.Dataset, variables ...string) ([]stats.NormalityResult, error) {
	results := make([]stats.NormalityResult, 0, len(variables))
	for _, name := range variables {
		values, err := ds.Numeric(name)
		if err != nil {
			return nil, err
		}
		res, err := t.ShapiroWilk(dataset.DropMissing(values))
		if err != nil {
			return nil, fmt.Errorf("normality of %s: %w", name, err)
		}
		res.Variable = name
		results = append(results, res)
	}
	return results, nil
}

// ShapiroWilk tests a single sample. Missing values are dropped first; a constant
// sample is reported as W=1, p=1.
func (t *Toolkit) ShapiroWilk(sample []float64) (stats.NormalityResult, error) {
	clean := dataset.DropMissing(sample)
	n := len(clean)
	if n < 3 {
		return stats.NormalityResult{}, core.NewInsufficientDataError("shapiro-wilk", n, 3)
	}

	res := stats.NormalityResult{Test: shapiroWilk, N: n, Statistic: 1, PValue: 1}
	if !isConstant(clean) {
		w, p, err := onlinestats.SWilk(clean)
		if err != nil {
			return stats.NormalityResult{}, fmt.Errorf("shapiro-wilk with n=%d: %w", n, err)
		}
		res.Statistic = w
		res.PValue = p
	}

	res.Normal = res.PValue > t.alpha
	if res.Normal {
		res.Interpretation = "Normal distribution"
	} else {
		res.Interpretation = "Non-normal distribution"
	}
	return res, nil
}
