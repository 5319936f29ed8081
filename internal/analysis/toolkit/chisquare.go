package toolkit

import (
	"math"
	"sort"
	"strconv"

	"surveystat/domain/core"
	"surveystat/domain/dataset"
	"surveystat/domain/stats"

	"gonum.org/v1/gonum/stat/distuv"
)

// ChiSquareTest cross-tabulates two columns and tests them for independence. Numeric
// columns are treated as categories by value; rows missing either value are excluded.
// 2x2 tables get Yates' continuity correction.
func (t *Toolkit) ChiSquareTest(ds *dataset.Dataset, colA, colB string) (stats.ChiSquareResult, error) {
	rows, cols, observed, err := Crosstab(ds, colA, colB)
	if err != nil {
		return stats.ChiSquareResult{}, err
	}

	res := t.ChiSquareTable(observed)
	res.RowLabels = rows
	res.ColumnLabels = cols
	return res, nil
}

// ChiSquareTable runs the independence test on an already tabulated contingency table.
// Rows and columns with a zero total do not count towards the degrees of freedom.
// Tables with fewer than two non-empty rows or columns are degenerate: chi2=0, p=1, dof=0.
func (t *Toolkit) ChiSquareTable(observed [][]float64) stats.ChiSquareResult {
	r := len(observed)
	c := 0
	if r > 0 {
		c = len(observed[0])
	}

	rowTotals := make([]float64, r)
	colTotals := make([]float64, c)
	total := 0.0
	for i := range observed {
		for j, v := range observed[i] {
			rowTotals[i] += v
			colTotals[j] += v
			total += v
		}
	}

	expected := make([][]float64, r)
	for i := range expected {
		expected[i] = make([]float64, c)
		for j := range expected[i] {
			if total > 0 {
				expected[i][j] = rowTotals[i] * colTotals[j] / total
			}
		}
	}

	res := stats.ChiSquareResult{
		Observed:            copyTable(observed),
		ExpectedFrequencies: expected,
		PValue:              1,
	}
	dof := (nonZero(rowTotals) - 1) * (nonZero(colTotals) - 1)
	if dof <= 0 || total == 0 {
		return res
	}
	res.DegreesOfFreedom = dof

	yates := dof == 1
	chi2 := 0.0
	for i := range observed {
		for j, o := range observed[i] {
			e := expected[i][j]
			if e == 0 {
				continue
			}
			diff := o - e
			if yates {
				adj := math.Min(0.5, math.Abs(diff))
				diff = math.Abs(diff) - adj
			}
			chi2 += diff * diff / e
		}
	}
	res.Chi2 = chi2
	res.PValue = distuv.ChiSquared{K: float64(dof)}.Survival(chi2)
	res.Significant = t.significant(res.PValue)
	return res
}

func nonZero(totals []float64) int {
	n := 0
	for _, v := range totals {
		if v > 0 {
			n++
		}
	}
	return n
}

// Crosstab counts co-occurrences of two columns' categories. Labels are sorted
// numerically for numeric columns and lexically otherwise.
func Crosstab(ds *dataset.Dataset, colA, colB string) ([]string, []string, [][]float64, error) {
	a, err := ds.Column(colA)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := ds.Column(colB)
	if err != nil {
		return nil, nil, nil, err
	}

	type cell struct{ row, col string }
	counts := make(map[cell]float64)
	rowSet := make(map[string]bool)
	colSet := make(map[string]bool)
	for i := 0; i < ds.Rows(); i++ {
		if a.IsMissing(i) || b.IsMissing(i) {
			continue
		}
		k := cell{a.Text(i), b.Text(i)}
		counts[k]++
		rowSet[k.row] = true
		colSet[k.col] = true
	}
	if len(counts) == 0 {
		return nil, nil, nil, core.NewInsufficientDataError("contingency table "+colA+" x "+colB, 0, 1)
	}

	rows := sortedLabels(rowSet, a.IsNumeric())
	cols := sortedLabels(colSet, b.IsNumeric())
	table := make([][]float64, len(rows))
	for i, rl := range rows {
		table[i] = make([]float64, len(cols))
		for j, cl := range cols {
			table[i][j] = counts[cell{rl, cl}]
		}
	}
	return rows, cols, table, nil
}

func sortedLabels(set map[string]bool, numeric bool) []string {
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	if numeric {
		sort.Slice(labels, func(i, j int) bool {
			x, _ := strconv.ParseFloat(labels[i], 64)
			y, _ := strconv.ParseFloat(labels[j], 64)
			return x < y
		})
	} else {
		sort.Strings(labels)
	}
	return labels
}

func copyTable(table [][]float64) [][]float64 {
	out := make([][]float64, len(table))
	for i := range table {
		out[i] = append([]float64(nil), table[i]...)
	}
	return out
}
