package dataset

import (
	"fmt"
	"math"
	"strconv"

	"surveystat/domain/core"
)

// Kind describes how a column's values are stored
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// Column is a single named variable. Numeric columns mark missing entries with NaN,
// categorical columns with the empty string.
type Column struct {
	Name        string            `json:"name"`
	Kind        Kind              `json:"kind"`
	Label       string            `json:"label,omitempty"`
	ValueLabels map[string]string `json:"value_labels,omitempty"`

	numbers []float64
	strings []string
}

// Len returns the number of rows in the column
func (c *Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.numbers)
	}
	return len(c.strings)
}

// IsNumeric reports whether the column holds numbers
func (c *Column) IsNumeric() bool {
	return c.Kind == KindNumeric
}

// IsMissing reports whether row i holds the missing sentinel
func (c *Column) IsMissing(i int) bool {
	if c.Kind == KindNumeric {
		return IsMissing(c.numbers[i])
	}
	return c.strings[i] == ""
}

// Text returns row i as a category key. Numbers are formatted in their shortest
// round-trippable form so 1 and 1.0 map to the same category.
func (c *Column) Text(i int) string {
	if c.Kind == KindNumeric {
		if IsMissing(c.numbers[i]) {
			return ""
		}
		return strconv.FormatFloat(c.numbers[i], 'g', -1, 64)
	}
	return c.strings[i]
}

// Float returns row i for numeric columns and NaN otherwise
func (c *Column) Float(i int) float64 {
	if c.Kind != KindNumeric {
		return MissingValue()
	}
	return c.numbers[i]
}

// NonMissing counts rows that are not missing
func (c *Column) NonMissing() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if !c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Dataset is a column-oriented table with unique column names and rows aligned by position.
type Dataset struct {
	Name   string
	Source string

	columns []*Column
	index   map[string]int
	rows    int
}

// New creates an empty dataset
func New(name string) *Dataset {
	return &Dataset{
		Name:  name,
		index: make(map[string]int),
		rows:  -1,
	}
}

// AddNumeric appends a numeric column. The values are copied.
func (d *Dataset) AddNumeric(name string, values []float64) error {
	col := &Column{Name: name, Kind: KindNumeric, numbers: append([]float64(nil), values...)}
	return d.add(col)
}

// AddCategorical appends a categorical column. The values are copied.
func (d *Dataset) AddCategorical(name string, values []string) error {
	col := &Column{Name: name, Kind: KindCategorical, strings: append([]string(nil), values...)}
	return d.add(col)
}

func (d *Dataset) add(col *Column) error {
	if col.Name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if _, exists := d.index[col.Name]; exists {
		return fmt.Errorf("duplicate column %q", col.Name)
	}
	if d.rows >= 0 && col.Len() != d.rows {
		return fmt.Errorf("column %q has %d rows, dataset has %d", col.Name, col.Len(), d.rows)
	}
	d.rows = col.Len()
	d.index[col.Name] = len(d.columns)
	d.columns = append(d.columns, col)
	return nil
}

// SetLabel attaches a variable label to an existing column
func (d *Dataset) SetLabel(name, label string) error {
	col, err := d.Column(name)
	if err != nil {
		return err
	}
	col.Label = label
	return nil
}

// SetValueLabels attaches value labels (code -> label) to an existing column
func (d *Dataset) SetValueLabels(name string, labels map[string]string) error {
	col, err := d.Column(name)
	if err != nil {
		return err
	}
	col.ValueLabels = make(map[string]string, len(labels))
	for k, v := range labels {
		col.ValueLabels[k] = v
	}
	return nil
}

// Rows returns the number of rows
func (d *Dataset) Rows() int {
	if d.rows < 0 {
		return 0
	}
	return d.rows
}

// Columns returns the columns in insertion order
func (d *Dataset) Columns() []*Column {
	return d.columns
}

// Has reports whether a column exists
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column looks up a column by name
func (d *Dataset) Column(name string) (*Column, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, core.NewVariableNotFoundError(name)
	}
	return d.columns[i], nil
}

// Numeric returns a copy of a numeric column's values, missing entries included as NaN
func (d *Dataset) Numeric(name string) ([]float64, error) {
	col, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	if !col.IsNumeric() {
		return nil, core.NewNotNumericError(name)
	}
	return append([]float64(nil), col.numbers...), nil
}

// Names returns all column names in order
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// NumericNames returns the names of numeric columns in order
func (d *Dataset) NumericNames() []string {
	var names []string
	for _, c := range d.columns {
		if c.IsNumeric() {
			names = append(names, c.Name)
		}
	}
	return names
}

// Groups splits a numeric outcome by the values of a grouping column. Group keys are
// returned in order of first appearance; rows missing either value are dropped.
func (d *Dataset) Groups(groupColumn, outcomeColumn string) ([]string, map[string][]float64, error) {
	group, err := d.Column(groupColumn)
	if err != nil {
		return nil, nil, err
	}
	outcome, err := d.Numeric(outcomeColumn)
	if err != nil {
		return nil, nil, err
	}

	var keys []string
	groups := make(map[string][]float64)
	for i := 0; i < d.Rows(); i++ {
		if group.IsMissing(i) || IsMissing(outcome[i]) {
			continue
		}
		key := group.Text(i)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], outcome[i])
	}
	return keys, groups, nil
}

// CompleteCases counts rows where no column is missing
func (d *Dataset) CompleteCases() int {
	complete := 0
	for i := 0; i < d.Rows(); i++ {
		ok := true
		for _, c := range d.columns {
			if c.IsMissing(i) {
				ok = false
				break
			}
		}
		if ok {
			complete++
		}
	}
	return complete
}

// MissingValue returns the numeric missing sentinel
func MissingValue() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the numeric missing sentinel
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// DropMissing returns a new slice without missing entries
func DropMissing(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}
