package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/phonecase-tools/lister/internal/sheet"
	"gopkg.in/yaml.v3"
)

// Report records one pipeline run.
type Report struct {
	RunID     string        `yaml:"run_id"`
	Started   time.Time     `yaml:"started"`
	Finished  time.Time     `yaml:"finished"`
	Stages    []StageReport `yaml:"stages"`
	Artifacts *Artifacts    `yaml:"artifacts"`
}

// StageReport is the outcome of one stage.
type StageReport struct {
	Name     string  `yaml:"name"`
	Status   string  `yaml:"status"`
	Duration string  `yaml:"duration,omitempty"`
	Error    string  `yaml:"error,omitempty"`
	Result   *Result `yaml:"result,omitempty"`
}

// Failed counts the stages that returned an error.
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Stages {
		if s.Status == StatusFailed {
			n++
		}
	}
	return n
}

// SaveReport writes the report as YAML into dir and returns the path.
func SaveReport(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	name := fmt.Sprintf("run_report_%s.yaml", r.Started.Format("2006-01-02_15-04-05"))
	path := sheet.UniquePath(filepath.Join(dir, name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// LoadReport reads a report written by SaveReport.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &r, nil
}
