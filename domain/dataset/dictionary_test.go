package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surveyFixture(t *testing.T) *Dataset {
	t.Helper()
	nan := math.NaN()
	ds := New("survey")
	require.NoError(t, ds.AddNumeric("score", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, nan}))
	require.NoError(t, ds.AddNumeric("flag", []float64{0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1}))
	require.NoError(t, ds.AddNumeric("likert", []float64{1, 2, 3, 4, 5, 1, 2, 3, 4, 5, nan, nan}))
	require.NoError(t, ds.AddCategorical("region", []string{"n", "s", "e", "w", "n", "s", "e", "w", "n", "s", "e", ""}))
	require.NoError(t, ds.SetLabel("score", "Customer score"))
	return ds
}

func TestDictionary(t *testing.T) {
	ds := surveyFixture(t)
	dict := Dictionary(ds)
	require.Len(t, dict, 4)

	score := dict[0]
	assert.Equal(t, 1, score.Position)
	assert.Equal(t, "score", score.Name)
	assert.Equal(t, "Customer score", score.Label)
	assert.Equal(t, 11, score.NonNullCount)
	assert.Equal(t, 1, score.NullCount)
	assert.InDelta(t, 100.0/12.0, score.NullPercentage, 1e-9)
	assert.Equal(t, 11, score.UniqueValues)
	assert.Len(t, score.SampleValues, 5)
	require.NotNil(t, score.Mean)
	assert.InDelta(t, 6.0, *score.Mean, 1e-9)
	require.NotNil(t, score.Std)
	assert.InDelta(t, math.Sqrt(11), *score.Std, 1e-9)
	assert.Equal(t, 1.0, *score.Min)
	assert.Equal(t, 11.0, *score.Max)

	region := dict[3]
	assert.Equal(t, KindCategorical, region.Type)
	assert.Nil(t, region.Mean)
	assert.Equal(t, 4, region.UniqueValues)
}

func TestCategorize(t *testing.T) {
	c := Categorize(surveyFixture(t))
	assert.Equal(t, []string{"score"}, c.Continuous)
	assert.Equal(t, []string{"flag"}, c.Binary)
	assert.Equal(t, []string{"likert", "region"}, c.Categorical)
}

func TestProfileMissing(t *testing.T) {
	p := ProfileMissing(surveyFixture(t))

	assert.Equal(t, 10, p.CompleteCases)
	assert.Equal(t, 2, p.IncompleteCases)
	require.Len(t, p.Variables, 3)
	assert.Equal(t, "score", p.Variables[0].Name)
	assert.Equal(t, "likert", p.Variables[1].Name)
	assert.Equal(t, 2, p.Variables[1].Count)

	// 4 missing cells out of 48
	assert.InDelta(t, 4.0/48.0*100, p.OverallRate, 1e-9)
	assert.Contains(t, p.Mechanism, "MAR")

	require.Len(t, p.Patterns, 2)
	assert.Equal(t, []string{"likert"}, p.Patterns[0].Missing)
	assert.Equal(t, []string{"score", "likert", "region"}, p.Patterns[1].Missing)
}

func TestProfileMissing_NoMissingData(t *testing.T) {
	ds := New("clean")
	require.NoError(t, ds.AddNumeric("x", []float64{1, 2, 3}))
	p := ProfileMissing(ds)
	assert.Empty(t, p.Variables)
	assert.Empty(t, p.Patterns)
	assert.Equal(t, 0.0, p.OverallRate)
	assert.Contains(t, p.Mechanism, "MCAR")
}
