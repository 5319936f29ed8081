package main

import (
	"encoding/json"
	"fmt"

	"surveystat/adapters/datafile"
	"surveystat/domain/dataset"
	"surveystat/domain/stats"
	"surveystat/internal/analysis/toolkit"

	"github.com/spf13/cobra"
)

type metricTrend struct {
	Metric    string              `json:"metric"`
	Trend     stats.TrendResult   `json:"trend"`
	Anomalies stats.AnomalyResult `json:"anomalies"`
}

type analysis struct {
	Dataset      string                   `json:"dataset"`
	Alpha        float64                  `json:"alpha"`
	Descriptives []toolkit.Summary        `json:"descriptives"`
	Correlation  *stats.CorrelationReport `json:"correlation,omitempty"`
	Normality    []stats.NormalityResult  `json:"normality"`
	Trends       []metricTrend            `json:"trends,omitempty"`
	Skipped      map[string]string        `json:"skipped,omitempty"`
}

func newAnalyzeCmd(e *env) *cobra.Command {
	var (
		target     string
		variables  []string
		metrics    []string
		timeColumn string
	)

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Print correlation, normality and trend results as JSON",
		Long: `Run the statistics toolkit on a survey file and print the raw results.

Example: surveystat analyze survey.csv --target satisfaction --vars price,quality --metrics sales --time week`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := datafile.Loader{Logger: e.logger}.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tk, err := toolkit.New(toolkit.Options{SignificanceLevel: e.cfg.Analysis.SignificanceLevel})
			if err != nil {
				return err
			}

			if len(variables) == 0 {
				variables = ds.NumericNames()
			}
			res := analysis{Dataset: ds.Name, Alpha: tk.SignificanceLevel(), Skipped: map[string]string{}}

			if res.Descriptives, err = tk.Describe(ds, variables...); err != nil {
				return err
			}
			if target != "" {
				corr, err := tk.CorrelationAnalysis(ds, target, without(variables, target)...)
				if err != nil {
					return err
				}
				res.Correlation = &corr
			}
			for _, v := range variables {
				values, _ := ds.Numeric(v)
				nr, err := tk.ShapiroWilk(values)
				if err != nil {
					res.Skipped["normality:"+v] = err.Error()
					continue
				}
				nr.Variable = v
				res.Normality = append(res.Normality, nr)
			}
			if res.Trends, err = trends(tk, ds, metrics, timeColumn, res.Skipped); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "correlation target variable")
	cmd.Flags().StringSliceVar(&variables, "vars", nil, "variables to analyse (default: all numeric)")
	cmd.Flags().StringSliceVar(&metrics, "metrics", nil, "metrics for trend and anomaly analysis")
	cmd.Flags().StringVar(&timeColumn, "time", "", "column that orders metric observations (default: file order)")
	return cmd
}

func trends(tk *toolkit.Toolkit, ds *dataset.Dataset, metrics []string, timeColumn string, skipped map[string]string) ([]metricTrend, error) {
	if len(metrics) == 0 {
		return nil, nil
	}
	order := make([]int, ds.Rows())
	for i := range order {
		order[i] = i
	}
	if timeColumn != "" {
		var err error
		if order, err = toolkit.TimeOrder(ds, timeColumn); err != nil {
			return nil, err
		}
	}

	var out []metricTrend
	for _, m := range metrics {
		values, err := ds.Numeric(m)
		if err != nil {
			skipped["trend:"+m] = err.Error()
			continue
		}
		series := make([]float64, 0, len(order))
		for _, row := range order {
			series = append(series, values[row])
		}
		tr, err := tk.TrendAnalysis(series)
		if err != nil {
			skipped["trend:"+m] = err.Error()
			continue
		}
		an, err := tk.DetectAnomalies(series)
		if err != nil {
			return nil, fmt.Errorf("anomalies %s: %w", m, err)
		}
		out = append(out, metricTrend{Metric: m, Trend: tr, Anomalies: an})
	}
	return out, nil
}

func without(values []string, drop string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}
