package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/cascade/internal/errors"
	"github.com/vango-dev/cascade/pkg/tracestore"
)

func tracesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "traces",
		Short: "List, show and compare saved traces",
		Long: `Traces are saved by 'cascade run --save' to the directory or S3
bucket configured in cascade.json.

Examples:
  cascade traces list
  cascade traces show lifecycle-order-20261018T101500.000000000Z
  cascade traces diff <old> <new>`,
	}

	cmd.AddCommand(
		tracesListCmd(g),
		tracesShowCmd(g),
		tracesDiffCmd(g),
		tracesRemoveCmd(g),
	)
	return cmd
}

func openStore(cmd *cobra.Command, g *globals) (tracestore.Store, error) {
	e, err := loadEnv(cmd, g)
	if err != nil {
		return nil, err
	}
	return e.traceStore()
}

func tracesListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved traces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, g)
			if err != nil {
				return err
			}
			ids, err := store.List(commandContext(cmd))
			if err != nil {
				return errors.New("C101").Wrap(err)
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				info(out, "no traces")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}

func tracesShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the steps and notifications of a trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, g)
			if err != nil {
				return err
			}
			t, err := store.Load(commandContext(cmd), args[0])
			if err != nil {
				return errors.Classify(err)
			}

			out := cmd.OutOrStdout()
			status := "passed"
			if !t.Passed {
				status = "failed"
			}
			fmt.Fprintf(out, "%s (%s, %s)\n", t.Scenario, status, t.RecordedAt.Format("2006-01-02 15:04:05"))
			for _, s := range t.Steps {
				info(out, "%s", s.Name)
				for _, h := range s.Hooks() {
					info(out, "  %s", h)
				}
				if s.Text != "" {
					info(out, "  text: %s", strings.TrimSpace(s.Text))
				}
				if s.Error != "" {
					info(out, "  error: %s", s.Error)
				}
				for _, f := range s.Failures {
					info(out, "  mismatch: %s", f)
				}
			}
			return nil
		},
	}
}

func tracesDiffCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <a> <b>",
		Short: "Compare the notifications of two traces",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, g)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			a, err := store.Load(ctx, args[0])
			if err != nil {
				return errors.Classify(err)
			}
			b, err := store.Load(ctx, args[1])
			if err != nil {
				return errors.Classify(err)
			}

			out := cmd.OutOrStdout()
			diffs := tracestore.Diff(a, b)
			if len(diffs) == 0 {
				success(out, "traces are identical")
				return nil
			}
			for _, d := range diffs {
				fmt.Fprintln(out, d)
			}
			return fmt.Errorf("%d difference(s)", len(diffs))
		},
	}
}

func tracesRemoveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete saved traces",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, g)
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := store.Delete(commandContext(cmd), id); err != nil {
					return errors.Classify(err)
				}
				success(cmd.OutOrStdout(), "deleted %s", id)
			}
			return nil
		},
	}
}
