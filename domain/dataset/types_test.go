package dataset

import (
	"errors"
	"math"
	"testing"

	"surveystat/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataset_AddColumns(t *testing.T) {
	ds := New("stores")
	require.NoError(t, ds.AddNumeric("ROISCORE", []float64{1, 2, math.NaN()}))
	require.NoError(t, ds.AddCategorical("SETTING", []string{"corp", "", "franchise"}))

	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"ROISCORE", "SETTING"}, ds.Names())
	assert.Equal(t, []string{"ROISCORE"}, ds.NumericNames())

	err := ds.AddNumeric("ROISCORE", []float64{1, 2, 3})
	assert.Error(t, err, "duplicate column names must be rejected")

	err = ds.AddNumeric("SHORT", []float64{1})
	assert.Error(t, err, "row count mismatch must be rejected")
}

func TestDataset_NumericErrors(t *testing.T) {
	ds := New("t")
	require.NoError(t, ds.AddCategorical("region", []string{"a", "b"}))

	_, err := ds.Numeric("missing")
	assert.True(t, errors.Is(err, core.ErrVariableNotFound))
	assert.True(t, core.IsNotFoundError(err))

	_, err = ds.Numeric("region")
	assert.True(t, errors.Is(err, core.ErrNotNumeric))
}

func TestDataset_NumericReturnsCopy(t *testing.T) {
	ds := New("t")
	require.NoError(t, ds.AddNumeric("x", []float64{1, 2, 3}))

	values, err := ds.Numeric("x")
	require.NoError(t, err)
	values[0] = 99

	again, err := ds.Numeric("x")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[0])
}

func TestDataset_Groups(t *testing.T) {
	ds := New("t")
	require.NoError(t, ds.AddNumeric("SETTING", []float64{1, 2, 1, 2, math.NaN(), 1}))
	require.NoError(t, ds.AddNumeric("CUSTSCORE", []float64{10, 20, 12, 22, 30, math.NaN()}))

	keys, groups, err := ds.Groups("SETTING", "CUSTSCORE")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, keys)
	assert.Equal(t, []float64{10, 12}, groups["1"])
	assert.Equal(t, []float64{20, 22}, groups["2"])
}

func TestColumn_TextNormalisesNumbers(t *testing.T) {
	ds := New("t")
	require.NoError(t, ds.AddNumeric("x", []float64{1.0, 2.5, math.NaN()}))
	col, err := ds.Column("x")
	require.NoError(t, err)

	assert.Equal(t, "1", col.Text(0))
	assert.Equal(t, "2.5", col.Text(1))
	assert.Equal(t, "", col.Text(2))
	assert.True(t, col.IsMissing(2))
	assert.Equal(t, 2, col.NonMissing())
}

func TestDropMissing(t *testing.T) {
	assert.Equal(t, []float64{1, 3}, DropMissing([]float64{1, math.NaN(), 3}))
	assert.Empty(t, DropMissing([]float64{math.NaN()}))
}
