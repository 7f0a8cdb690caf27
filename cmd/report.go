package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/phonecase-tools/lister/internal/pipeline"
	"github.com/spf13/cobra"
)

func newReportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "report [path]",
		Short: "Show a saved run report",
		Long: `Prints the stage outcomes and outputs of a run report written by "lister run".

Without a path the newest report in the result folder is shown.`,
		Example: `  # Show the latest run
  lister report

  # Show a specific run
  lister report Result/run_report_2026-03-01_09-30-00.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				if path, err = latestReport(cfg.ResultFolder); err != nil {
					return err
				}
			}

			report, err := pipeline.LoadReport(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s  %s  (%s)\n", report.RunID,
				report.Started.Format(time.DateTime),
				report.Finished.Sub(report.Started).Round(time.Second))
			printStages(out, report)
			for _, s := range report.Stages {
				if s.Result == nil {
					continue
				}
				for _, o := range s.Result.Outputs {
					fmt.Fprintf(out, "%-8s -> %s\n", s.Name, o)
				}
			}
			return nil
		},
	}
}

// latestReport picks the newest run report in dir. Report names sort by start time.
func latestReport(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "run_report_*.yaml"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no run report found in %s", dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

func printStages(out io.Writer, report *pipeline.Report) {
	for _, s := range report.Stages {
		line := fmt.Sprintf("%-8s %-8s %s", s.Name, s.Status, s.Duration)
		if s.Error != "" {
			line += "  " + s.Error
		}
		fmt.Fprintln(out, line)
	}
}
