package titles

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phonecase-tools/lister/internal/config"
	"github.com/phonecase-tools/lister/internal/pipeline"
	"github.com/phonecase-tools/lister/internal/providers"
	"github.com/phonecase-tools/lister/internal/records"
	"github.com/phonecase-tools/lister/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls       []string
	temperature float64
	replies     map[string]string
	fail        map[string]error
}

func (f *fakeProvider) DescribeImage(ctx context.Context, cfg providers.Config) (string, error) {
	f.calls = append(f.calls, cfg.Image.Name)
	f.temperature = cfg.Temperature
	if err, ok := f.fail[cfg.Image.Name]; ok {
		return "", err
	}
	if reply, ok := f.replies[cfg.Image.Name]; ok {
		return reply, nil
	}
	id := strings.TrimSuffix(cfg.Image.Name, filepath.Ext(cfg.Image.Name))
	return fmt.Sprintf(`Sure! {"amazon_title":"Title %s","amazon_title_translation":"T%s","short_title":"S%s","short_title_translation":"ST%s"}`, id, id, id, id), nil
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"first of two", `x {"a":1} y {"b":2}`, `{"a":1}`, true},
		{"nested", `{"a":{"b":2}} tail`, `{"a":{"b":2}}`, true},
		{"brace in string", `{"a":"}{"} tail}`, `{"a":"}{"}`, true},
		{"escaped quote", `{"a":"say \"}\""}`, `{"a":"say \"}\""}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"none", `plain text`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseFields(t *testing.T) {
	fields, err := ParseFields(`Here you go: {"amazon_title":" for iPhone Case ","short_title":"Case"}`)
	require.NoError(t, err)
	assert.Equal(t, Fields{Title: "for iPhone Case", ShortTitle: "Case"}, fields)

	_, err = ParseFields("I cannot see the image")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseFields(`{"amazon_title": }`)
	assert.Error(t, err)

	_, err = ParseFields(`{"unrelated":"x"}`)
	assert.Error(t, err)
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.PNG", "a.jpg", "notes.txt", "c.webp", "d.TIFF"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0755))

	images, err := ListImages(dir)
	require.NoError(t, err)

	var names []string
	for _, p := range images {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"a.jpg", "b.PNG", "c.webp", "d.TIFF"}, names)
	assert.Equal(t, "b", ImageID(images[1]))
}

func TestAssignParents(t *testing.T) {
	ids := []string{"A", "B", "C", "D", "E"}
	for g := 1; g <= 6; g++ {
		t.Run(fmt.Sprintf("group size %d", g), func(t *testing.T) {
			recs := make([]records.TitleRecord, len(ids))
			for i, id := range ids {
				recs[i].ImageID = id
			}
			AssignParents(recs, g)
			for i := range recs {
				assert.Equal(t, ids[(i/g)*g], recs[i].ParentGroupID)
			}
		})
	}

	recs := []records.TitleRecord{{ImageID: "A"}, {ImageID: "B"}, {ImageID: "C"}, {ImageID: "D"}}
	AssignParents(recs, 2)
	var parents []string
	for _, r := range recs {
		parents = append(parents, r.ParentGroupID)
	}
	assert.Equal(t, []string{"A", "A", "C", "C"}, parents)
}

func TestGenerateRecordsFailuresAndContinues(t *testing.T) {
	dir := t.TempDir()
	var images []string
	for _, name := range []string{"A.jpg", "B.jpg", "C.jpg"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
		images = append(images, p)
	}

	provider := &fakeProvider{
		fail:    map[string]error{"B.jpg": errors.New("connection reset")},
		replies: map[string]string{"C.jpg": "no json here"},
	}
	recs, failures, err := Generate(context.Background(), provider, providers.Config{Model: "m"}, images)
	require.NoError(t, err)

	assert.Equal(t, []string{"A.jpg", "B.jpg", "C.jpg"}, provider.calls)
	require.Len(t, recs, 1)
	assert.Equal(t, "Title A", recs[0].Title)
	require.Len(t, failures, 2)
	assert.Equal(t, Failure{ImageID: "B", Error: "connection reset"}, failures[0])
	assert.Equal(t, "C", failures[1].ImageID)
}

func TestGenerateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Generate(ctx, &fakeProvider{}, providers.Config{}, []string{"a.jpg"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStageRun(t *testing.T) {
	root := t.TempDir()
	imageDir := filepath.Join(root, "images")
	require.NoError(t, os.Mkdir(imageDir, 0755))
	for _, name := range []string{"A.jpg", "B.jpg", "C.jpg", "D.jpg", "E.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(imageDir, name), []byte("x"), 0644))
	}
	prompt := filepath.Join(root, "prompt.txt")
	require.NoError(t, os.WriteFile(prompt, []byte("make a title"), 0644))

	cfg := &config.Config{
		Root:          root,
		ImageFolder:   imageDir,
		ResultFolder:  filepath.Join(root, "Result"),
		FailureFolder: filepath.Join(root, "Failure"),
		PromptFile:    prompt,
		GroupSize:     2,
		Model:         "m",
		Temperature:   0.2,
	}
	provider := &fakeProvider{fail: map[string]error{"E.png": errors.New("boom")}}
	artifacts := &pipeline.Artifacts{}

	result, err := New(provider).Run(context.Background(), cfg, artifacts)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Rows)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0.2, provider.temperature)
	assert.Equal(t, filepath.Join(cfg.ResultFolder, records.TitlesFile), artifacts.Titles)

	table, err := sheet.ReadTable(artifacts.Titles)
	require.NoError(t, err)
	assert.Equal(t, records.Names(records.TitleColumns), table.Headers)
	require.Len(t, table.Rows, 4)
	var parents []string
	for _, row := range table.Rows {
		parents = append(parents, row[1])
	}
	assert.Equal(t, []string{"A", "A", "C", "C"}, parents)
	assert.Equal(t, "Title D", table.Rows[3][2])

	failures, err := sheet.ReadTable(artifacts.Failures)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"E", "boom"}}, failures.Rows)

	// a second run must not overwrite the first
	second := &pipeline.Artifacts{}
	_, err = New(provider).Run(context.Background(), cfg, second)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.ResultFolder, "Image_Titles_1.xlsx"), second.Titles)
}

func TestStageRunNoImages(t *testing.T) {
	root := t.TempDir()
	prompt := filepath.Join(root, "prompt.txt")
	require.NoError(t, os.WriteFile(prompt, []byte("p"), 0644))

	cfg := &config.Config{
		ImageFolder:   root,
		ResultFolder:  filepath.Join(root, "Result"),
		FailureFolder: filepath.Join(root, "Failure"),
		PromptFile:    prompt,
		GroupSize:     2,
	}
	result, err := New(&fakeProvider{}).Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Outputs)
}
