package cmd

import (
	"fmt"

	"github.com/phonecase-tools/lister/internal/pipeline"
	"github.com/spf13/cobra"
)

var stageHelp = map[string]string{
	"titles": "Generate listing titles for every image with the vision model",
	"expand": "Cross-join the generated titles with the phone model table",
	"merge":  "Merge the expanded titles into the listing template",
	"split":  "Split the merged template into one workbook per brand",
}

// newStageCmd runs a single stage against the files already in the result folder.
func newStageCmd(opts *options, stage pipeline.Stage) *cobra.Command {
	return &cobra.Command{
		Use:   stage.Name(),
		Short: stageHelp[stage.Name()],
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if stage.Name() == "titles" {
				if err := cfg.ValidateForTitles(); err != nil {
					return err
				}
			}

			result, err := stage.Run(cmd.Context(), cfg, &pipeline.Artifacts{})
			if err != nil {
				return fmt.Errorf("%s: %w", stage.Name(), err)
			}
			if result == nil {
				return nil
			}
			for _, out := range result.Outputs {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
}
