package expand

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phonecase-tools/lister/internal/config"
	"github.com/phonecase-tools/lister/internal/pipeline"
	"github.com/phonecase-tools/lister/internal/records"
	"github.com/phonecase-tools/lister/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exampleModels = []records.ModelEntry{
	{Name: "iPhone 12", ScreenSize: "6.1 inch"},
	{Name: "iPhone 12 Pro", ScreenSize: "6.1 inch"},
}

func titleTable(rows ...[]string) *sheet.Table {
	return &sheet.Table{Headers: records.Names(records.TitleColumns), Rows: rows}
}

func TestExpandCrossJoin(t *testing.T) {
	table := titleTable(
		[]string{"A", "A", "Shockproof Clear Cover"},
		[]string{"B", "A", "Glitter Cover"},
		[]string{"C", "C", "Leather Wallet"},
		[]string{"D", "C", "Magnetic Cover"},
	)

	headers, out, err := Expand(table, exampleModels)
	require.NoError(t, err)
	assert.Equal(t, records.Names(records.ExpandedColumns), headers)
	require.Len(t, out, 8)

	var skus, parents []string
	for _, r := range out {
		skus = append(skus, r.SKU)
		parents = append(parents, r.ParentGroupID)
	}
	assert.Equal(t, []string{
		"AiPhone12", "AiPhone12Pro", "BiPhone12", "BiPhone12Pro",
		"CiPhone12", "CiPhone12Pro", "DiPhone12", "DiPhone12Pro",
	}, skus)
	assert.Equal(t, []string{"A", "A", "A", "A", "C", "C", "C", "C"}, parents)

	assert.Equal(t, "for iPhone 12 Case 6.1 inch Shockproof Clear Cover", out[0].Title)
	assert.Equal(t, "for iPhone 12 Pro Case 6.1 inch Shockproof Clear Cover", out[1].Title)
	assert.Equal(t, "A", out[1].ImageNumber)
	assert.Equal(t, "iPhone 12 Pro", out[1].Model)
}

func TestExpandRowCount(t *testing.T) {
	for titles := 0; titles <= 4; titles++ {
		for models := 0; models <= 3; models++ {
			var rows [][]string
			for i := 0; i < titles; i++ {
				rows = append(rows, []string{string(rune('A' + i)), "A", "x"})
			}
			var ms []records.ModelEntry
			for i := 0; i < models; i++ {
				ms = append(ms, records.ModelEntry{Name: "iPhone " + strings.Repeat("X", i+1), ScreenSize: "6 inch"})
			}
			_, out, err := Expand(titleTable(rows...), ms)
			require.NoError(t, err)
			assert.Len(t, out, titles*models)
		}
	}
}

func TestExpandMissingColumns(t *testing.T) {
	table := &sheet.Table{Headers: []string{"Image Name", "Amazon Title"}}
	_, _, err := Expand(table, exampleModels)
	assert.ErrorIs(t, err, sheet.ErrMissingColumns)
}

func TestExpandKeepsExtraColumns(t *testing.T) {
	table := &sheet.Table{
		Headers: append(records.Names(records.TitleColumns), "Notes"),
		Rows:    [][]string{{"A", "A", "t", "", "", "", "keep me"}},
	}
	headers, out, err := Expand(table, exampleModels[:1])
	require.NoError(t, err)
	assert.Equal(t, "Notes", headers[len(headers)-1])
	assert.Equal(t, []string{"keep me"}, out[0].Extra)
}

func TestRewrite(t *testing.T) {
	rw := NewRewriter(exampleModels)
	m12 := exampleModels[0]
	m12Pro := exampleModels[1]

	tests := []struct {
		name     string
		title    string
		model    records.ModelEntry
		expected string
	}{
		{
			name:     "empty title synthesizes default",
			title:    "  ",
			model:    m12,
			expected: "for iPhone 12 Case 6.1 inch " + defaultTitleTail,
		},
		{
			name:     "no phrase is prefixed untouched",
			title:    "Clear Shockproof Cover",
			model:    m12Pro,
			expected: "for iPhone 12 Pro Case 6.1 inch Clear Shockproof Cover",
		},
		{
			name:     "phrase with model and case is rebuilt",
			title:    "for iPhone 12 Case Clear Cover",
			model:    m12Pro,
			expected: "for iPhone 12 Pro Case 6.1 inch Clear Cover",
		},
		{
			name:     "longest model token wins",
			title:    "for iPhone 12 Pro Case Clear Cover",
			model:    m12,
			expected: "for iPhone 12 Case 6.1 inch Clear Cover",
		},
		{
			name:     "phrase without model",
			title:    "Slim for iPhone Case Matte",
			model:    m12,
			expected: "for iPhone 12 Case 6.1 inch Slim Case Matte",
		},
		{
			name:     "unknown model token stays",
			title:    "for iPhone 15 Case Clear",
			model:    m12,
			expected: "for iPhone 12 Case 6.1 inch 15 Case Clear",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rw.Rewrite(tt.title, tt.model))
		})
	}
}

func TestRewriteIsIdempotent(t *testing.T) {
	rw := NewRewriter(exampleModels)
	for _, title := range []string{"", "Clear Shockproof Cover", "for iPhone 12 Case Clear Cover"} {
		for _, m := range exampleModels {
			once := rw.Rewrite(title, m)
			twice := rw.Rewrite(once, m)
			assert.Equal(t, once, twice, "title %q model %s", title, m.Name)
			assert.Equal(t, 1, strings.Count(twice, "for iPhone"))
			assert.Equal(t, 1, strings.Count(twice, m.ScreenSize))
		}
	}
}

func TestStageRun(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		ResultFolder:   filepath.Join(root, "Result"),
		ModelTableFile: filepath.Join(root, "models.xlsx"),
	}
	require.NoError(t, os.MkdirAll(cfg.ResultFolder, 0755))

	_, err := sheet.WriteTable(cfg.ModelTableFile, "Sheet1", []string{"手机型号", "尺寸"}, [][]interface{}{
		{"iPhone 12", "6.1 inch"},
		{"iPhone 12 Pro", "6.1 inch"},
	})
	require.NoError(t, err)

	titles, err := sheet.WriteTable(filepath.Join(root, "custom_titles.xlsx"), records.TitlesSheet, records.Names(records.TitleColumns), [][]interface{}{
		records.TitleRecord{ImageID: "A", ParentGroupID: "A", Title: "Cover"}.Row(),
		records.TitleRecord{ImageID: "B", ParentGroupID: "A"}.Row(),
	})
	require.NoError(t, err)

	artifacts := &pipeline.Artifacts{Titles: titles}
	result, err := New().Run(context.Background(), cfg, artifacts)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Rows)

	table, err := sheet.ReadTable(artifacts.Expanded)
	require.NoError(t, err)
	assert.Equal(t, records.Names(records.ExpandedColumns), table.Headers)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, "BiPhone12Pro", table.Rows[3][0])
	assert.Equal(t, "for iPhone 12 Pro Case 6.1 inch "+defaultTitleTail, table.Rows[3][2])
}

func TestStageRunFailsFastOnMissingColumns(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		ResultFolder:   filepath.Join(root, "Result"),
		ModelTableFile: filepath.Join(root, "models.xlsx"),
	}
	_, err := sheet.WriteTable(cfg.ModelTableFile, "Sheet1", []string{"Phone Model", "Size"}, [][]interface{}{{"iPhone 12", "6.1 inch"}})
	require.NoError(t, err)
	titles, err := sheet.WriteTable(filepath.Join(root, "t.xlsx"), "Titles", []string{"Image Name"}, [][]interface{}{{"A"}})
	require.NoError(t, err)

	_, err = New().Run(context.Background(), cfg, &pipeline.Artifacts{Titles: titles})
	require.ErrorIs(t, err, sheet.ErrMissingColumns)

	_, statErr := os.Stat(filepath.Join(cfg.ResultFolder, records.ExpandedFile))
	assert.True(t, os.IsNotExist(statErr))
}
