package pipeline

import (
	"context"
	"path/filepath"

	"github.com/phonecase-tools/lister/internal/config"
	"github.com/phonecase-tools/lister/internal/records"
)

// Stage is one step of the listing pipeline.
type Stage interface {
	Name() string
	Run(ctx context.Context, cfg *config.Config, artifacts *Artifacts) (*Result, error)
}

// Result summarises what a stage produced.
type Result struct {
	Outputs []string       `yaml:"outputs,omitempty"`
	Rows    int            `yaml:"rows"`
	Failed  int            `yaml:"failed,omitempty"`
	Counts  map[string]int `yaml:"counts,omitempty"`
}

// Artifacts records the files written so far in a run, so a later stage reads the
// exact file an earlier stage wrote even when it carries a collision suffix.
// Empty fields fall back to the fixed names in the result folder.
type Artifacts struct {
	Titles   string            `yaml:"titles,omitempty"`
	Failures string            `yaml:"failures,omitempty"`
	Expanded string            `yaml:"expanded,omitempty"`
	Merged   string            `yaml:"merged,omitempty"`
	Brands   map[string]string `yaml:"brands,omitempty"`
}

// TitlesPath is the title workbook to read.
func (a *Artifacts) TitlesPath(cfg *config.Config) string {
	if a != nil && a.Titles != "" {
		return a.Titles
	}
	return filepath.Join(cfg.ResultFolder, records.TitlesFile)
}

// ExpandedPath is the expanded workbook to read.
func (a *Artifacts) ExpandedPath(cfg *config.Config) string {
	if a != nil && a.Expanded != "" {
		return a.Expanded
	}
	return filepath.Join(cfg.ResultFolder, records.ExpandedFile)
}

// MergedPath is the merged template to read.
func (a *Artifacts) MergedPath(cfg *config.Config) string {
	if a != nil && a.Merged != "" {
		return a.Merged
	}
	return filepath.Join(cfg.ResultFolder, records.MergedFile)
}
