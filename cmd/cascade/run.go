package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/cascade/internal/errors"
	"github.com/vango-dev/cascade/pkg/cascade"
	"github.com/vango-dev/cascade/pkg/scenario"
	"github.com/vango-dev/cascade/pkg/tracestore"
)

func runCmd(g *globals) *cobra.Command {
	var (
		save    bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "run [files or directories...]",
		Short: "Run scenarios",
		Long: `Run scenarios and compare the recorded lifecycle notifications,
rendered text and warnings with their expectations.

Without arguments the scenario directory from cascade.json is used.

Examples:
  cascade run
  cascade run scenarios/01_lifecycle_order.yaml
  cascade run --save --verbose scenarios/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, g)
			if err != nil {
				return err
			}
			return runScenarios(cmd, e, args, save, verbose)
		},
	}

	cmd.Flags().BoolVarP(&save, "save", "s", false, "Save a trace of every run to the trace store")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the notifications of every step")

	return cmd
}

func runScenarios(cmd *cobra.Command, e *env, paths []string, save, verbose bool) error {
	out := cmd.OutOrStdout()
	ctx := commandContext(cmd)

	files, err := e.scenarioFiles(paths)
	if err != nil {
		return err
	}
	scenarios, err := loadScenarios(files)
	if err != nil {
		return err
	}

	var store tracestore.Store
	if save {
		if store, err = e.traceStore(); err != nil {
			return err
		}
	}

	collector := e.collector(prometheus.NewRegistry())
	failed := 0
	for _, sc := range scenarios {
		start := time.Now()
		res, err := scenario.Run(ctx, sc, e.schedulerOptions(cascade.WithMetrics(collector))...)
		if err != nil {
			return errors.Classify(err).WithLocationFromYAML(sc.Path, err)
		}

		if res.Passed() {
			success(out, "%s %s", sc.Name, gray(time.Since(start).Round(time.Microsecond).String()))
		} else {
			failed++
			failure(out, "%s", sc.Name)
			for _, f := range res.Failures() {
				info(out, "%s", f)
			}
		}
		if verbose {
			printSteps(out, res)
		}

		if store != nil {
			t := res.Trace(time.Now())
			if err := store.Save(ctx, t); err != nil {
				return errors.New("C101").Wrap(err)
			}
			info(out, "saved %s", t.ID)
		}
	}

	fmt.Fprintln(out)
	if failed > 0 {
		return errors.New("C061").WithDetail(fmt.Sprintf("%d of %d scenarios failed.", failed, len(scenarios)))
	}
	success(out, "%d scenarios passed", len(scenarios))
	return nil
}

func printSteps(w io.Writer, res *scenario.Result) {
	for _, s := range res.Steps {
		info(w, "%s", s.Name)
		for _, ev := range s.Events {
			info(w, "  %s", ev)
		}
		if s.Warnings > 0 {
			info(w, "  %d warning(s)", s.Warnings)
		}
		if s.Err != nil {
			info(w, "  error: %v", s.Err)
		}
		if s.Text != "" {
			info(w, "  text: %s", strings.TrimSpace(s.Text))
		}
	}
}

func gray(text string) string {
	return paint("\033[90m", text)
}
