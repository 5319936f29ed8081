package toolkit

import (
	"fmt"
	"math"

	"surveystat/domain/core"
	"surveystat/domain/dataset"
	"surveystat/domain/stats"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TrendAnalysis fits an ordinary least-squares line of the values against their
// position (0..n-1) after dropping missing entries.
func (t *Toolkit) TrendAnalysis(sample []float64) (stats.TrendResult, error) {
	y := dataset.DropMissing(sample)
	n := len(y)
	if n < 2 {
		return stats.TrendResult{}, core.NewInsufficientDataError("trend analysis", n, 2)
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	xMean, yMean := stat.Mean(x, nil), stat.Mean(y, nil)
	var sxx, ssTot, ssRes float64
	for i := range y {
		dx := x[i] - xMean
		dy := y[i] - yMean
		sxx += dx * dx
		ssTot += dy * dy
		r := y[i] - (intercept + slope*x[i])
		ssRes += r * r
	}

	res := stats.TrendResult{
		Slope:     slope,
		Intercept: intercept,
		N:         n,
		PValue:    1,
	}

	// A flat series has no linear association and no slope to test.
	if ssTot == 0 {
		res.Slope = 0
		res.Intercept = yMean
	} else {
		r := stat.Correlation(x, y, nil)
		res.RSquared = r * r

		df := float64(n - 2)
		switch {
		case ssRes <= ssTot*1e-15:
			res.RSquared = 1
			res.PValue = 0
		case df > 0:
			res.StdErr = math.Sqrt(ssRes / df / sxx)
			tStat := slope / res.StdErr
			res.PValue = twoSidedT(tStat, df)
		}
	}

	res.Performance = t.classifyTrend(res.Slope, res.PValue)
	res.Interpretation = fmt.Sprintf("%s %s trend", stats.SignificanceWord(res.PValue, t.alpha), res.Performance)
	return res, nil
}

func (t *Toolkit) classifyTrend(slope, pValue float64) stats.Performance {
	switch {
	case slope > 0 && t.significant(pValue):
		return stats.PerformanceImproving
	case slope < 0 && t.significant(pValue):
		return stats.PerformanceDeclining
	default:
		return stats.PerformanceStable
	}
}

// twoSidedT returns P(|T| >= |t|) for Student's t with df degrees of freedom
func twoSidedT(tStat, df float64) float64 {
	if math.IsInf(tStat, 0) {
		return 0
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(tStat))
	return math.Min(p, 1)
}
