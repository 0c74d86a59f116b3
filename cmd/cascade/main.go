package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/cascade/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globals are the persistent flags shared by every command.
type globals struct {
	dir       string
	logLevel  string
	logFormat string
	noColor   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "cascade",
		Short: "Play and inspect component lifecycle scenarios",
		Long: `Cascade renders trees of components and records the order of
their lifecycle notifications.

Scenarios are YAML files describing components, a root template
and a sequence of state changes with the hooks each one must fire.

  • run scenarios and compare the recorded notifications
  • store traces on disk or in S3 and diff them
  • inspect a live tree over HTTP and a websocket stream`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				colors = false
				errors.DisableColors()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.dir, "dir", "C", ".", "Directory containing cascade.json")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from cascade.json)")
	flags.StringVar(&g.logFormat, "log-format", "", "Log format: text or json (default from cascade.json)")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		runCmd(g),
		checkCmd(g),
		inspectCmd(g),
		tracesCmd(g),
		versionCmd(),
	)
	return rootCmd
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("\033[32m", "✓"), fmt.Sprintf(format, args...))
}

func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("\033[33m", "⚠"), fmt.Sprintf(format, args...))
}

func failure(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("\033[31m", "✗"), fmt.Sprintf(format, args...))
}

var colors = true

func paint(code, text string) string {
	if !colors {
		return text
	}
	return code + text + "\033[0m"
}
