package datafile

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"surveystat/domain/dataset"
	"surveystat/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewReader_SelectsFormat(t *testing.T) {
	tests := map[string]Format{
		"survey.csv":     FormatCSV,
		"survey.XLSX":    FormatXLSX,
		"wave1.dta":      FormatStata,
		"panel.sas7bdat": FormatSAS,
	}
	for path, want := range tests {
		r, err := NewReader(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, r.Format(), path)
	}

	_, err := NewReader("survey.sav")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestRead_CSV(t *testing.T) {
	path := writeFile(t, "wave1.csv", "id,age,region,score\n1,34,north,7.5\n2,NA,south,\n3,51,,9\n4,28,north,6\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	ds, err := r.Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "wave1", ds.Name)
	assert.Equal(t, path, ds.Source)
	assert.Equal(t, 4, ds.Rows())
	assert.Equal(t, []string{"id", "age", "region", "score"}, ds.Names())
	assert.Equal(t, []string{"id", "age", "score"}, ds.NumericNames())

	age, err := ds.Numeric("age")
	require.NoError(t, err)
	assert.Equal(t, 34.0, age[0])
	assert.True(t, math.IsNaN(age[1]))

	region, err := ds.Column("region")
	require.NoError(t, err)
	assert.Equal(t, dataset.KindCategorical, region.Kind)
	assert.True(t, region.IsMissing(2))
	assert.Equal(t, "south", region.Text(1))
}

func TestRead_XLSXUsesFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"respondent", "satisfaction", "segment"},
		{1, 4, "retail"},
		{2, 5, "wholesale"},
		{3, "", "retail"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "survey.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	ds, err := r.Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Rows())
	sat, err := ds.Numeric("satisfaction")
	require.NoError(t, err)
	assert.Equal(t, 4.0, sat[0])
	assert.True(t, math.IsNaN(sat[2]))

	seg, err := ds.Column("segment")
	require.NoError(t, err)
	assert.Equal(t, "wholesale", seg.Text(1))
}

func TestRead_Errors(t *testing.T) {
	r, err := NewReader(filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)
	_, err = r.Read(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	headerOnly := writeFile(t, "empty.csv", "a,b\n")
	r, err = NewReader(headerOnly)
	require.NoError(t, err)
	_, err = r.Read(context.Background())
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildDataset_Coercion(t *testing.T) {
	headers := []string{"score", "", "score", "code"}
	rows := [][]string{
		{"1.5", "x", "3", "."},
		{"null", "y", "4", "A1"},
		{"2"},
	}
	ds, err := BuildDataset("t", headers, rows)
	require.NoError(t, err)

	assert.Equal(t, []string{"score", "column_2", "score_2", "code"}, ds.Names())
	score, _ := ds.Numeric("score")
	assert.Equal(t, 1.5, score[0])
	assert.True(t, math.IsNaN(score[1]))
	assert.Equal(t, 2.0, score[2])

	code, err := ds.Column("code")
	require.NoError(t, err)
	assert.False(t, code.IsNumeric())
	assert.True(t, code.IsMissing(0))
	assert.True(t, code.IsMissing(2))
}

func TestIsMissingToken(t *testing.T) {
	for _, tok := range []string{"", " ", "NA", "n/a", "NaN", "NULL", "."} {
		assert.True(t, IsMissingToken(tok), tok)
	}
	for _, tok := range []string{"0", "none", "-"} {
		assert.False(t, IsMissingToken(tok), tok)
	}
}

func TestAddColumn_StatfileTypes(t *testing.T) {
	ds := dataset.New("stata")
	require.NoError(t, addColumn(ds, "weight", []float64{1.5, 0, 2}, []bool{false, true, false}))
	require.NoError(t, addColumn(ds, "age", []int16{30, 40, 50}, nil))
	require.NoError(t, addColumn(ds, "name", []string{"a", "", "c"}, nil))
	when := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, addColumn(ds, "date", []time.Time{when, {}, when}, nil))

	weight, _ := ds.Numeric("weight")
	assert.True(t, math.IsNaN(weight[1]))
	age, _ := ds.Numeric("age")
	assert.Equal(t, []float64{30, 40, 50}, age)

	name, _ := ds.Column("name")
	assert.True(t, name.IsMissing(1))
	date, _ := ds.Column("date")
	assert.Equal(t, "2024-03-01T00:00:00Z", date.Text(0))
	assert.True(t, date.IsMissing(1))

	assert.Error(t, addColumn(ds, "bad", []bool{true}, nil))
}

func TestLoader_Load(t *testing.T) {
	path := writeFile(t, "scores.csv", "a,b\n1,x\n2,y\n")
	ds, err := Loader{}.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "scores", ds.Name)
	assert.Equal(t, 2, ds.Rows())

	_, err = Loader{}.Load(context.Background(), "scores.json")
	assert.Error(t, err)
}
