package datafile

import (
	"fmt"
	"strconv"
	"strings"

	"surveystat/domain/dataset"
)

// missingTokens are cell values treated as missing regardless of column type
var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	".":    true,
}

// IsMissingToken reports whether a raw cell denotes a missing value
func IsMissingToken(cell string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(cell))]
}

// BuildDataset coerces string rows into typed columns. A column is numeric when every
// non-missing cell parses as a float; otherwise it is categorical. Short rows are
// padded with missing cells, extra cells are ignored.
func BuildDataset(name string, headers []string, rows [][]string) (*dataset.Dataset, error) {
	names := normalizeHeaders(headers)
	ds := dataset.New(name)

	for j, col := range names {
		cells := make([]string, len(rows))
		for i, row := range rows {
			if j < len(row) {
				cells[i] = strings.TrimSpace(row[j])
			}
		}

		if numbers, ok := parseNumeric(cells); ok {
			if err := ds.AddNumeric(col, numbers); err != nil {
				return nil, err
			}
			continue
		}
		for i, cell := range cells {
			if IsMissingToken(cell) {
				cells[i] = ""
			}
		}
		if err := ds.AddCategorical(col, cells); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func parseNumeric(cells []string) ([]float64, bool) {
	numbers := make([]float64, len(cells))
	for i, cell := range cells {
		if IsMissingToken(cell) {
			numbers[i] = dataset.MissingValue()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false
		}
		numbers[i] = v
	}
	return numbers, true
}

// normalizeHeaders trims names, fills blanks with column_N and suffixes duplicates
func normalizeHeaders(headers []string) []string {
	seen := make(map[string]int)
	out := make([]string, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		out[i] = name
	}
	return out
}
