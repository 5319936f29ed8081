package toolkit

import (
	"sort"

	"surveystat/domain/dataset"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds descriptive statistics of one numeric variable
type Summary struct {
	Variable string  `json:"variable"`
	Count    int     `json:"count"`
	Missing  int     `json:"missing"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Q1       float64 `json:"q1"`
	Median   float64 `json:"median"`
	Q3       float64 `json:"q3"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
}

// Describe summarises the named numeric columns. Quartiles are empirical (inverse CDF).
// Columns without observations get a zero summary carrying only the missing count.
func (t *Toolkit) Describe(ds *dataset.Dataset, names ...string) ([]Summary, error) {
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		values, err := ds.Numeric(name)
		if err != nil {
			return nil, err
		}
		clean := dataset.DropMissing(values)
		s := Summary{Variable: name, Count: len(clean), Missing: len(values) - len(clean)}
		if len(clean) > 0 {
			sort.Float64s(clean)
			s.Mean, s.Std = stat.MeanStdDev(clean, nil)
			if len(clean) < 2 {
				s.Std = 0
			}
			s.Min = clean[0]
			s.Max = clean[len(clean)-1]
			s.Q1 = stat.Quantile(0.25, stat.Empirical, clean, nil)
			s.Q3 = stat.Quantile(0.75, stat.Empirical, clean, nil)
			if s.Median, err = mstats.Median(clean); err != nil {
				return nil, err
			}
			if s.Std > 0 && len(clean) > 2 {
				s.Skewness = stat.Skew(clean, nil)
			}
			if s.Std > 0 && len(clean) > 3 {
				s.Kurtosis = stat.ExKurtosis(clean, nil)
			}
		}
		out = append(out, s)
	}
	return out, nil
}
