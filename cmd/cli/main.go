package main

import (
	"fmt"
	"os"

	"surveystat/internal"
	"surveystat/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

// env is the per-invocation state shared by subcommands
type env struct {
	cfg    *config.Config
	logger *internal.Logger
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:           "surveystat",
		Short:         "Statistical analysis and reporting for survey data files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init(cmd)
		},
	}

	rootCmd.PersistentFlags().String(flagLogLevel, "info", "logging level (error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String(flagLogFormat, internal.LogFormatText, "logging format (text, json)")

	rootCmd.AddCommand(
		newExploreCmd(e),
		newAnalyzeCmd(e),
		newReportCmd(e),
		newDoctorCmd(e),
	)
	return rootCmd
}

func (e *env) init(cmd *cobra.Command) error {
	level, err := cmd.Flags().GetString(flagLogLevel)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString(flagLogFormat)
	if err != nil {
		return err
	}
	if e.logger, err = internal.NewLoggerWithOutput(level, format, cmd.ErrOrStderr()); err != nil {
		return err
	}

	// doctor reports configuration problems itself
	if cmd.Name() == "doctor" {
		return nil
	}
	e.cfg, err = config.Load()
	return err
}
