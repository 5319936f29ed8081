package toolkit

import (
	"math"

	"surveystat/domain/core"
	"surveystat/domain/dataset"

	"gonum.org/v1/gonum/stat"
)

// CohensD is the standardized mean difference (mean(a) - mean(b)) / pooled SD,
// with sample (n-1) variances.
func (t *Toolkit) CohensD(a, b []float64) (float64, error) {
	ga, gb, err := twoGroups("cohen's d", a, b)
	if err != nil {
		return 0, err
	}

	meanA, varA := stat.MeanVariance(ga, nil)
	meanB, varB := stat.MeanVariance(gb, nil)
	na, nb := float64(len(ga)), float64(len(gb))

	pooled := math.Sqrt(((na-1)*varA + (nb-1)*varB) / (na + nb - 2))
	if pooled == 0 {
		return 0, core.NewDegenerateVarianceError("pooled standard deviation")
	}
	return (meanA - meanB) / pooled, nil
}

// twoGroups drops missing values and requires at least two observations per group
func twoGroups(procedure string, a, b []float64) ([]float64, []float64, error) {
	ga := dataset.DropMissing(a)
	gb := dataset.DropMissing(b)
	if len(ga) < 2 {
		return nil, nil, core.NewInsufficientDataError(procedure+" (group A)", len(ga), 2)
	}
	if len(gb) < 2 {
		return nil, nil, core.NewInsufficientDataError(procedure+" (group B)", len(gb), 2)
	}
	return ga, gb, nil
}
