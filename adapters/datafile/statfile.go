package datafile

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"surveystat/domain/dataset"

	"github.com/kshedden/datareader"
)

// readStata loads a Stata .dta file, keeping variable and value labels
func readStata(path, name string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Stata file: %w", err)
	}
	defer f.Close()

	rdr, err := datareader.NewStataReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Stata header: %w", err)
	}
	ds, err := readSeries(rdr, name)
	if err != nil {
		return nil, err
	}

	for i, col := range rdr.ColumnNames() {
		if i < len(rdr.ColumnNamesLong) && rdr.ColumnNamesLong[i] != "" {
			_ = ds.SetLabel(col, rdr.ColumnNamesLong[i])
		}
		if i >= len(rdr.ValueLabelNames) {
			continue
		}
		codes, ok := rdr.ValueLabels[rdr.ValueLabelNames[i]]
		if !ok || len(codes) == 0 {
			continue
		}
		labels := make(map[string]string, len(codes))
		for code, label := range codes {
			labels[strconv.Itoa(int(code))] = label
		}
		_ = ds.SetValueLabels(col, labels)
	}
	return ds, nil
}

// readSAS loads a SAS .sas7bdat file
func readSAS(path, name string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SAS file: %w", err)
	}
	defer f.Close()

	rdr, err := datareader.NewSAS7BDATReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SAS header: %w", err)
	}
	rdr.TrimStrings = true
	return readSeries(rdr, name)
}

func readSeries(rdr datareader.StatfileReader, name string) (*dataset.Dataset, error) {
	series, err := rdr.Read(rdr.RowCount())
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	names := normalizeHeaders(rdr.ColumnNames())

	ds := dataset.New(name)
	for i, s := range series {
		if i >= len(names) {
			break
		}
		if err := addColumn(ds, names[i], s.Data(), s.Missing()); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// addColumn converts one typed column from a statistical-package file. Numeric
// storage types become numeric columns, strings become categorical and dates are
// formatted as RFC 3339 categories.
func addColumn(ds *dataset.Dataset, name string, data interface{}, missing []bool) error {
	isMissing := func(i int) bool {
		return missing != nil && i < len(missing) && missing[i]
	}

	numeric := func(n int, at func(int) float64) error {
		values := make([]float64, n)
		for i := range values {
			if isMissing(i) {
				values[i] = dataset.MissingValue()
			} else {
				values[i] = at(i)
			}
		}
		return ds.AddNumeric(name, values)
	}

	switch v := data.(type) {
	case []float64:
		return numeric(len(v), func(i int) float64 { return v[i] })
	case []float32:
		return numeric(len(v), func(i int) float64 { return float64(v[i]) })
	case []int64:
		return numeric(len(v), func(i int) float64 { return float64(v[i]) })
	case []int32:
		return numeric(len(v), func(i int) float64 { return float64(v[i]) })
	case []int16:
		return numeric(len(v), func(i int) float64 { return float64(v[i]) })
	case []int8:
		return numeric(len(v), func(i int) float64 { return float64(v[i]) })
	case []uint64:
		return numeric(len(v), func(i int) float64 { return float64(v[i]) })
	case []string:
		cells := make([]string, len(v))
		for i, s := range v {
			if !isMissing(i) && !IsMissingToken(s) {
				cells[i] = s
			}
		}
		return ds.AddCategorical(name, cells)
	case []time.Time:
		cells := make([]string, len(v))
		for i, ts := range v {
			if !isMissing(i) && !ts.IsZero() {
				cells[i] = ts.Format(time.RFC3339)
			}
		}
		return ds.AddCategorical(name, cells)
	default:
		return fmt.Errorf("column %q has unsupported storage type %T", name, data)
	}
}
