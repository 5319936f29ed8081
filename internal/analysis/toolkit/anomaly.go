package toolkit

import (
	"math"

	"surveystat/domain/dataset"
	"surveystat/domain/stats"

	mstats "github.com/montanaflynn/stats"
)

const (
	modifiedZScale     = 0.6745
	modifiedZThreshold = 3.5
)

// DetectAnomalies flags robust outliers using the modified z-score
// z = 0.6745 (x - median) / MAD. Indices refer to the sample with missing values
// removed. A zero MAD flags nothing.
func (t *Toolkit) DetectAnomalies(sample []float64) (stats.AnomalyResult, error) {
	clean := dataset.DropMissing(sample)
	res := stats.AnomalyResult{Indices: []int{}, Values: []float64{}}
	if len(clean) == 0 {
		return res, nil
	}

	median, err := mstats.Median(clean)
	if err != nil {
		return res, err
	}
	mad, err := mstats.MedianAbsoluteDeviationPopulation(clean)
	if err != nil {
		return res, err
	}
	res.Median = median
	res.MAD = mad

	if mad == 0 {
		return res, nil
	}
	for i, x := range clean {
		z := modifiedZScale * (x - median) / mad
		if math.Abs(z) > modifiedZThreshold {
			res.Indices = append(res.Indices, i)
			res.Values = append(res.Values, x)
		}
	}
	return res, nil
}
