package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"surveystat/internal/config"
	"surveystat/internal/container"

	"github.com/spf13/cobra"
)

type check struct {
	Name   string
	OK     bool
	Detail string
}

func newDoctorCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, output directory, chart support and the report archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var checks []check
			failed := false
			add := func(c check) {
				checks = append(checks, c)
				failed = failed || !c.OK
			}

			cfg, err := config.Load()
			if err != nil {
				add(check{Name: "config", Detail: err.Error()})
				printChecks(cmd.OutOrStdout(), checks)
				return fmt.Errorf("doctor found problems")
			}
			add(check{Name: "config", OK: true, Detail: fmt.Sprintf("alpha=%g workers=%d store=%s", cfg.Analysis.SignificanceLevel, cfg.Analysis.Workers, cfg.Store.Backend)})
			add(checkWritable(cfg.Paths.Output))

			c, err := container.New(cfg, e.logger)
			if err != nil {
				return err
			}
			defer c.Close()

			if c.Capabilities.Charts {
				add(check{Name: "charts", OK: true, Detail: "PNG rendering available"})
			} else {
				// reports still render without figures
				add(check{Name: "charts", OK: true, Detail: "disabled: " + c.Capabilities.Reason})
			}

			if err := c.InitStore(cmd.Context()); err != nil {
				add(check{Name: "archive", Detail: err.Error()})
			} else if err := c.Ping(cmd.Context()); err != nil {
				add(check{Name: "archive", Detail: err.Error()})
			} else {
				add(check{Name: "archive", OK: true, Detail: cfg.Store.Backend})
			}

			printChecks(cmd.OutOrStdout(), checks)
			if failed {
				return fmt.Errorf("doctor found problems")
			}
			return nil
		},
	}
}

func checkWritable(dir string) check {
	c := check{Name: "output"}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.Detail = err.Error()
		return c
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	name := f.Name()
	f.Close()
	os.Remove(name)

	abs, _ := filepath.Abs(dir)
	c.OK, c.Detail = true, abs
	return c
}

func printChecks(w io.Writer, checks []check) {
	for _, c := range checks {
		status := "ok"
		if !c.OK {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%-8s %-4s %s\n", c.Name, status, c.Detail)
	}
}
