package toolkit

import (
	"errors"
	"fmt"
	"math"

	"surveystat/domain/core"
	"surveystat/domain/stats"

	moremath "github.com/aclements/go-moremath/stats"
	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// IndependentTTest compares two independent groups. Levene's test decides between
// Student's pooled t-test (equal variances assumed when levene_p > alpha) and Welch's
// test. A non-positive alpha selects the toolkit's significance level.
func (t *Toolkit) IndependentTTest(a, b []float64, alpha float64) (stats.TTestResult, error) {
	if alpha <= 0 {
		alpha = t.alpha
	}
	ga, gb, err := twoGroups("t-test", a, b)
	if err != nil {
		return stats.TTestResult{}, err
	}

	leveneW, leveneP, err := levene(ga, gb)
	if err != nil {
		return stats.TTestResult{}, err
	}

	meanA, varA := stat.MeanVariance(ga, nil)
	meanB, varB := stat.MeanVariance(gb, nil)

	res := stats.TTestResult{
		LeveneStatistic:      leveneW,
		LeveneP:              leveneP,
		EqualVarianceAssumed: leveneP > alpha,
		MeanA:                meanA,
		MeanB:                meanB,
		StdA:                 math.Sqrt(varA),
		StdB:                 math.Sqrt(varB),
		NA:                   len(ga),
		NB:                   len(gb),
	}

	sa, sb := &moremath.Sample{Xs: ga}, &moremath.Sample{Xs: gb}
	var tt *moremath.TTestResult
	if res.EqualVarianceAssumed {
		tt, err = moremath.TwoSampleTTest(sa, sb, moremath.LocationDiffers)
	} else {
		tt, err = moremath.TwoSampleWelchTTest(sa, sb, moremath.LocationDiffers)
	}
	switch {
	case errors.Is(err, moremath.ErrZeroVariance):
		return stats.TTestResult{}, core.NewDegenerateVarianceError("t-test standard error")
	case err != nil:
		return stats.TTestResult{}, fmt.Errorf("t-test: %w", err)
	case math.IsNaN(tt.T) || math.IsInf(tt.T, 0):
		return stats.TTestResult{}, core.NewDegenerateVarianceError("t-test standard error")
	}

	res.TStatistic = tt.T
	res.DegreesOfFreedom = tt.DoF
	res.PValue = tt.P
	return res, nil
}

// levene computes the median-centred (Brown-Forsythe) Levene statistic and its
// F-distribution p-value for k groups.
func levene(groups ...[]float64) (float64, float64, error) {
	k := len(groups)
	total := 0
	z := make([][]float64, k)
	zMeans := make([]float64, k)
	grand := 0.0

	for i, g := range groups {
		median, err := mstats.Median(g)
		if err != nil {
			return 0, 0, err
		}
		z[i] = make([]float64, len(g))
		for j, v := range g {
			z[i][j] = math.Abs(v - median)
		}
		zMeans[i] = stat.Mean(z[i], nil)
		grand += zMeans[i] * float64(len(g))
		total += len(g)
	}
	grand /= float64(total)

	var between, within float64
	for i := range z {
		d := zMeans[i] - grand
		between += float64(len(z[i])) * d * d
		for _, v := range z[i] {
			e := v - zMeans[i]
			within += e * e
		}
	}

	df1 := float64(k - 1)
	df2 := float64(total - k)
	if within == 0 {
		if between == 0 {
			return 0, 1, nil
		}
		return math.Inf(1), 0, nil
	}
	w := (df2 / df1) * between / within
	p := distuv.F{D1: df1, D2: df2}.Survival(w)
	return w, p, nil
}
