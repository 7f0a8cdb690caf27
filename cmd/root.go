package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/phonecase-tools/lister/internal/config"
	"github.com/phonecase-tools/lister/internal/expand"
	"github.com/phonecase-tools/lister/internal/merge"
	"github.com/phonecase-tools/lister/internal/pipeline"
	"github.com/phonecase-tools/lister/internal/split"
	"github.com/phonecase-tools/lister/internal/titles"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	root       string
	verbose    bool
}

func (o *options) load() (*config.Config, error) {
	return config.Load(o.root, o.configPath)
}

func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "lister",
		Short: "Phone case listing pipeline: titles, model expansion, template merge and brand split",
		Long: `Lister turns a folder of product photos into marketplace listing workbooks.

It asks a vision model for a title per image, expands every title across the phone
model table, merges the result into the brand's listing template and splits the
merged template into one workbook per brand.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			logLevel := slog.LevelInfo
			if opts.verbose {
				logLevel = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Configuration file (default <root>/config.txt)")
	cmd.PersistentFlags().StringVar(&opts.root, "root", "", "Project root that relative paths resolve against (default current directory)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newReportCmd(opts))
	for _, s := range stages() {
		cmd.AddCommand(newStageCmd(opts, s))
	}

	return cmd
}

// stages lists the pipeline in run order.
func stages() []pipeline.Stage {
	return []pipeline.Stage{
		titles.New(nil),
		expand.New(),
		merge.New(),
		split.New(),
	}
}
