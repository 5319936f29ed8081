package main

import (
	"fmt"
	"strings"

	"surveystat/app"
	"surveystat/internal/container"
	"surveystat/internal/errors"

	"github.com/spf13/cobra"
)

func newReportCmd(e *env) *cobra.Command {
	var req reportFlags

	cmd := &cobra.Command{
		Use:   "report [file]",
		Short: "Generate the unified Markdown analysis report",
		Long: `Analyse a survey file and write UNIFIED_ANALYSIS_<name>_<timestamp>.md to the output directory.
The run is archived in the configured report store (REPORT_STORE=file|postgres).

Example: surveystat report survey.csv --target satisfaction --group segment --chi region,segment --metrics sales --time week`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := req.request(args[0])
			if err != nil {
				return err
			}

			c, err := container.New(e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.InitStore(cmd.Context()); err != nil {
				return err
			}

			res, err := c.ReportService.Generate(cmd.Context(), request)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Report: %s\n", res.Path)
			fmt.Fprintf(out, "Run ID: %s\n", res.Run.ID)
			for _, n := range res.Notes {
				fmt.Fprintf(out, "  note: %s\n", n)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Title, "title", "", "report title")
	f.StringSliceVar(&req.Variables, "vars", nil, "variables to analyse (default: all numeric)")
	f.StringVar(&req.Target, "target", "", "correlation target (default: first variable)")
	f.StringArrayVar(&req.Groups, "group", nil, "group column for a two-group comparison (repeatable)")
	f.StringVar(&req.Outcome, "outcome", "", "outcome compared across groups (default: target)")
	f.StringVar(&req.Chi, "chi", "", "two categorical columns for a chi-square test, as a,b")
	f.StringSliceVar(&req.Metrics, "metrics", nil, "KPI metrics")
	f.StringVar(&req.Time, "time", "", "column that orders KPI observations")
	f.IntVar(&req.Baseline, "baseline", app.DefaultBaselinePeriod, "KPI baseline period")
	return cmd
}

type reportFlags struct {
	Title     string
	Variables []string
	Target    string
	Groups    []string
	Outcome   string
	Chi       string
	Metrics   []string
	Time      string
	Baseline  int
}

func (f reportFlags) request(path string) (app.ReportRequest, error) {
	req := app.ReportRequest{
		FilePath:       path,
		Title:          f.Title,
		Variables:      f.Variables,
		Target:         f.Target,
		GroupColumns:   f.Groups,
		Outcome:        f.Outcome,
		Metrics:        f.Metrics,
		TimeColumn:     f.Time,
		BaselinePeriod: f.Baseline,
	}
	if f.Chi != "" {
		parts := strings.Split(f.Chi, ",")
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return req, errors.InvalidInput(fmt.Sprintf("--chi expects two columns as a,b, got %q", f.Chi))
		}
		req.ChiSquareA = strings.TrimSpace(parts[0])
		req.ChiSquareB = strings.TrimSpace(parts[1])
	}
	return req, nil
}
