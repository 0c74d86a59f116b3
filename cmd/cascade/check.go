package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/cascade/internal/errors"
)

func checkCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "check [files or directories...]",
		Short: "Validate scenario files without running them",
		Long: `Decode every scenario, compile its templates and check its hook
names and steps. Every invalid file is reported.

Examples:
  cascade check
  cascade check scenarios/05_failures.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, g)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			files, err := e.scenarioFiles(args)
			if err != nil {
				return err
			}

			invalid := 0
			for _, f := range files {
				sc, err := loadScenario(f)
				if err != nil {
					invalid++
					failure(out, "%s", f)
					fmt.Fprint(out, errors.Classify(err).Format())
					continue
				}
				success(out, "%s %s", f, gray(fmt.Sprintf("(%s, %d steps)", sc.Name, len(sc.Steps))))
			}
			if invalid > 0 {
				return errors.New("C060").WithDetail(fmt.Sprintf("%d of %d scenario files are invalid.", invalid, len(files)))
			}
			return nil
		},
	}
}
