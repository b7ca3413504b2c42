package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyreel/internal/pipeline"
	"storyreel/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check directories, provider models, and notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, pipeline.NewProvider(cfg, nil))
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					state := paint("OK", ansiGreen, colorize)
					if !r.Passed {
						state = paint("FAIL", ansiRed, colorize)
					}
					rows = append(rows, []string{r.Name, state, r.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "State", "Detail"}, rows, nil, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}
