package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/phonecase-tools/lister/internal/config"
	"github.com/phonecase-tools/lister/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func projectRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "images"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.txt"), []byte("# test\nIMAGE_FOLDER_PATH=images\n"), 0644))
	return dir
}

func TestRootRegistersStages(t *testing.T) {
	var names []string
	for _, c := range NewRootCmd().Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "report", "titles", "expand", "merge", "split"} {
		assert.Contains(t, names, want)
	}
}

func TestRunRejectsUnknownStage(t *testing.T) {
	_, err := execute(t, "run", "--root", projectRoot(t), "--from", "upload")
	assert.ErrorIs(t, err, pipeline.ErrUnknownStage)
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := execute(t, "run", "--root", t.TempDir())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunContinuesPastFailedStages(t *testing.T) {
	dir := projectRoot(t)
	out, err := execute(t, "run", "--root", dir, "--from", "expand")
	require.NoError(t, err)
	assert.Contains(t, out, "titles   skipped")
	assert.Contains(t, out, "expand   failed")
	assert.Contains(t, out, "split    failed")

	reports, err := filepath.Glob(filepath.Join(dir, "Result", "run_report_*.yaml"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestStageCommandReturnsError(t *testing.T) {
	_, err := execute(t, "expand", "--root", projectRoot(t))
	assert.Error(t, err)
}

func TestReportShowsLatestRun(t *testing.T) {
	dir := projectRoot(t)
	_, err := execute(t, "run", "--root", dir, "--from", "split")
	require.NoError(t, err)

	out, err := execute(t, "report", "--root", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "run ")
	assert.Contains(t, out, "merge    skipped")
	assert.Contains(t, out, "split    failed")

	reports, err := filepath.Glob(filepath.Join(dir, "Result", "run_report_*.yaml"))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	byPath, err := execute(t, "report", reports[0])
	require.NoError(t, err)
	assert.Equal(t, out, byPath)
}

func TestReportWithoutRuns(t *testing.T) {
	_, err := execute(t, "report", "--root", projectRoot(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run report found")
}
