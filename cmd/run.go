package cmd

import (
	"log/slog"
	"slices"

	"github.com/phonecase-tools/lister/internal/pipeline"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *options) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the whole pipeline",
		Long: `Runs titles, expand, merge and split in order.

A failing stage is logged and the next stage still runs. A YAML run report is
written to the result folder when the run ends.`,
		Example: `  # Run everything from the current directory
  lister run

  # Re-run from the merge stage after fixing the template
  lister run --from merge`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(stages()...)
			start, err := runner.Index(from)
			if err != nil {
				return err
			}
			if slices.Contains(runner.Names()[start:], "titles") {
				if err := cfg.ValidateForTitles(); err != nil {
					return err
				}
			}

			report, err := runner.Run(cmd.Context(), cfg, from)
			if err != nil {
				return err
			}

			if path, err := pipeline.SaveReport(cfg.ResultFolder, report); err != nil {
				slog.Warn("Unable to save run report", "err", err)
			} else {
				slog.Info("Run report saved", "path", path)
			}

			printStages(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start at this stage (titles, expand, merge or split)")

	return cmd
}
