package dataset

import (
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
)

// VariableInfo is one row of the data dictionary
type VariableInfo struct {
	Position       int               `json:"position"`
	Name           string            `json:"variable"`
	Type           Kind              `json:"type"`
	NonNullCount   int               `json:"non_null_count"`
	NullCount      int               `json:"null_count"`
	NullPercentage float64           `json:"null_percentage"`
	UniqueValues   int               `json:"unique_values"`
	SampleValues   []string          `json:"sample_values,omitempty"`
	Label          string            `json:"label,omitempty"`
	ValueLabels    map[string]string `json:"value_labels,omitempty"`

	// Numeric columns only
	Mean *float64 `json:"mean,omitempty"`
	Std  *float64 `json:"std,omitempty"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
}

// Dictionary documents every variable in the dataset
func Dictionary(d *Dataset) []VariableInfo {
	rows := d.Rows()
	out := make([]VariableInfo, 0, len(d.columns))

	for pos, col := range d.columns {
		info := VariableInfo{
			Position:    pos + 1,
			Name:        col.Name,
			Type:        col.Kind,
			Label:       col.Label,
			ValueLabels: col.ValueLabels,
		}

		seen := make(map[string]bool)
		for i := 0; i < rows; i++ {
			if col.IsMissing(i) {
				info.NullCount++
				continue
			}
			info.NonNullCount++
			key := col.Text(i)
			if !seen[key] {
				seen[key] = true
				if len(info.SampleValues) < 5 {
					info.SampleValues = append(info.SampleValues, key)
				}
			}
		}
		info.UniqueValues = len(seen)
		if rows > 0 {
			info.NullPercentage = float64(info.NullCount) / float64(rows) * 100
		}

		if col.IsNumeric() {
			values := DropMissing(col.numbers)
			if mean, err := stats.Mean(values); err == nil {
				info.Mean = &mean
			}
			if std, err := stats.StandardDeviationSample(values); err == nil && len(values) > 1 {
				info.Std = &std
			}
			if min, err := stats.Min(values); err == nil {
				info.Min = &min
			}
			if max, err := stats.Max(values); err == nil {
				info.Max = &max
			}
		}

		out = append(out, info)
	}
	return out
}

// Categories groups variable names by measurement level
type Categories struct {
	Continuous  []string `json:"continuous"`
	Categorical []string `json:"categorical"`
	Binary      []string `json:"binary"`
}

// Categorize classifies variables: categorical columns stay categorical, two-valued
// columns are binary, numeric columns with more than 10 distinct values are continuous
// and everything else is treated as categorical.
func Categorize(d *Dataset) Categories {
	var c Categories
	for _, info := range Dictionary(d) {
		switch {
		case info.Type == KindCategorical:
			c.Categorical = append(c.Categorical, info.Name)
		case info.UniqueValues == 2:
			c.Binary = append(c.Binary, info.Name)
		case info.UniqueValues > 10:
			c.Continuous = append(c.Continuous, info.Name)
		default:
			c.Categorical = append(c.Categorical, info.Name)
		}
	}
	return c
}

// VariableMissing is the missing-data summary for one variable
type VariableMissing struct {
	Name           string  `json:"variable"`
	Count          int     `json:"count"`
	Percentage     float64 `json:"percentage"`
	Recommendation string  `json:"recommendation"`
}

// MissingPattern is one combination of missing variables and how many rows show it
type MissingPattern struct {
	Missing    []string `json:"missing"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
}

// MissingProfile summarises missing data across the dataset
type MissingProfile struct {
	Variables       []VariableMissing `json:"variables"`
	CompleteCases   int               `json:"complete_cases"`
	IncompleteCases int               `json:"incomplete_cases"`
	Patterns        []MissingPattern  `json:"patterns"`
	OverallRate     float64           `json:"overall_rate"`
	Mechanism       string            `json:"mechanism"`
	Recommendation  string            `json:"recommendation"`
}

// ProfileMissing builds the missing-data profile. Only variables with at least one
// missing value are listed; the top five row patterns are kept.
func ProfileMissing(d *Dataset) MissingProfile {
	rows := d.Rows()
	profile := MissingProfile{
		CompleteCases: d.CompleteCases(),
	}
	profile.IncompleteCases = rows - profile.CompleteCases

	totalMissing := 0
	for _, col := range d.columns {
		missing := col.Len() - col.NonMissing()
		totalMissing += missing
		if missing == 0 {
			continue
		}
		pct := float64(missing) / float64(rows) * 100
		profile.Variables = append(profile.Variables, VariableMissing{
			Name:           col.Name,
			Count:          missing,
			Percentage:     pct,
			Recommendation: variableRecommendation(pct),
		})
	}

	cells := rows * len(d.columns)
	if cells > 0 {
		profile.OverallRate = float64(totalMissing) / float64(cells) * 100
	}
	profile.Mechanism, profile.Recommendation = assessMechanism(profile.OverallRate)

	if len(profile.Variables) > 0 {
		profile.Patterns = missingPatterns(d, 5)
	}
	return profile
}

func missingPatterns(d *Dataset, limit int) []MissingPattern {
	counts := make(map[string]int)
	members := make(map[string][]string)
	for i := 0; i < d.Rows(); i++ {
		var names []string
		for _, col := range d.columns {
			if col.IsMissing(i) {
				names = append(names, col.Name)
			}
		}
		if len(names) == 0 {
			continue
		}
		key := strings.Join(names, "\x00")
		counts[key]++
		members[key] = names
	}

	patterns := make([]MissingPattern, 0, len(counts))
	for key, n := range counts {
		patterns = append(patterns, MissingPattern{
			Missing:    members[key],
			Count:      n,
			Percentage: float64(n) / float64(d.Rows()) * 100,
		})
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return strings.Join(patterns[i].Missing, ",") < strings.Join(patterns[j].Missing, ",")
	})
	if len(patterns) > limit {
		patterns = patterns[:limit]
	}
	return patterns
}

func assessMechanism(rate float64) (string, string) {
	switch {
	case rate < 5:
		return "Likely MCAR (Missing Completely At Random)", "Safe to use listwise deletion or simple imputation"
	case rate < 20:
		return "Possibly MAR (Missing At Random) - investigate further", "Consider multiple imputation or pattern-based analysis"
	default:
		return "Possibly MNAR (Missing Not At Random) - high missingness", "Investigate missingness mechanisms before analysis"
	}
}

func variableRecommendation(pct float64) string {
	switch {
	case pct < 5:
		return "Low missingness - safe for most analyses"
	case pct < 15:
		return "Moderate missingness - consider imputation"
	case pct < 30:
		return "High missingness - investigate patterns, consider exclusion"
	default:
		return "Very high missingness - likely exclude from analysis"
	}
}
