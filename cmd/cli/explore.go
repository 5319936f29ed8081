package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"surveystat/adapters/datafile"
	"surveystat/domain/dataset"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type exploration struct {
	Dataset    string                 `json:"dataset"`
	Source     string                 `json:"source"`
	Rows       int                    `json:"rows"`
	Columns    int                    `json:"columns"`
	Dictionary []dataset.VariableInfo `json:"dictionary"`
	Categories dataset.Categories     `json:"categories"`
	Missing    dataset.MissingProfile `json:"missing"`
}

func newExploreCmd(e *env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "explore [file]",
		Short: "Show the data dictionary, variable categories and missing-data profile",
		Long: `Explore a survey file (.csv, .xlsx, .dta, .sas7bdat).

Example: surveystat explore data/raw/wave1.dta`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := datafile.Loader{Logger: e.logger}.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ex := exploration{
				Dataset:    ds.Name,
				Source:     ds.Source,
				Rows:       ds.Rows(),
				Columns:    len(ds.Columns()),
				Dictionary: dataset.Dictionary(ds),
				Categories: dataset.Categorize(ds),
				Missing:    dataset.ProfileMissing(ds),
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ex)
			}
			return printExploration(cmd.OutOrStdout(), ex)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable JSON")
	return cmd
}

func printExploration(out io.Writer, ex exploration) error {
	size := ""
	if info, err := os.Stat(ex.Source); err == nil {
		size = " (" + humanize.Bytes(uint64(info.Size())) + ")"
	}
	fmt.Fprintf(out, "Dataset %s%s: %s rows, %d variables\n\n", ex.Dataset, size, humanize.Comma(int64(ex.Rows)), ex.Columns)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tVARIABLE\tTYPE\tNON-NULL\tNULL %\tUNIQUE\tLABEL")
	for _, v := range ex.Dictionary {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%s\t%s\n", v.Position, v.Name, v.Type,
			humanize.Comma(int64(v.NonNullCount)), v.NullPercentage, humanize.Comma(int64(v.UniqueValues)), v.Label)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nContinuous:  %s\n", strings.Join(ex.Categories.Continuous, ", "))
	fmt.Fprintf(out, "Categorical: %s\n", strings.Join(ex.Categories.Categorical, ", "))
	fmt.Fprintf(out, "Binary:      %s\n", strings.Join(ex.Categories.Binary, ", "))

	m := ex.Missing
	fmt.Fprintf(out, "\nMissing data: %.2f%% overall, %s complete cases, %s incomplete\n",
		m.OverallRate, humanize.Comma(int64(m.CompleteCases)), humanize.Comma(int64(m.IncompleteCases)))
	fmt.Fprintf(out, "Mechanism: %s\nRecommendation: %s\n", m.Mechanism, m.Recommendation)
	for _, v := range m.Variables {
		fmt.Fprintf(out, "  %s: %d missing (%.1f%%), %s\n", v.Name, v.Count, v.Percentage, v.Recommendation)
	}
	return nil
}
