package expand

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/phonecase-tools/lister/internal/config"
	"github.com/phonecase-tools/lister/internal/pipeline"
	"github.com/phonecase-tools/lister/internal/records"
	"github.com/phonecase-tools/lister/internal/sheet"
)

const (
	forIPhone = "for iPhone"

	defaultTitleTail = "Premium Quality Protective Phone Case with Stylish Design for Daily Use"
)

// Stage cross-joins the generated titles with the phone model table.
type Stage struct{}

func New() *Stage { return &Stage{} }

func (s *Stage) Name() string { return "expand" }

func (s *Stage) Run(ctx context.Context, cfg *config.Config, artifacts *pipeline.Artifacts) (*pipeline.Result, error) {
	input := artifacts.TitlesPath(cfg)
	slog.Info("Reading titles", "stage", s.Name(), "path", input)
	table, err := sheet.ReadTable(input)
	if err != nil {
		return nil, err
	}

	slog.Info("Reading model table", "stage", s.Name(), "path", cfg.ModelTableFile)
	models, err := records.LoadModels(cfg.ModelTableFile)
	if err != nil {
		return nil, err
	}

	headers, expanded, err := Expand(table, models)
	if err != nil {
		return nil, fmt.Errorf("titles %s: %w", input, err)
	}

	rows := make([][]interface{}, len(expanded))
	for i, r := range expanded {
		rows[i] = r.Row()
	}
	out, err := sheet.WriteTable(filepath.Join(cfg.ResultFolder, records.ExpandedFile), records.ExpandedSheet, headers, rows)
	if err != nil {
		return nil, err
	}
	slog.Info("Saved expanded titles", "stage", s.Name(), "path", out, "titles", len(table.Rows), "models", len(models), "rows", len(expanded))

	if artifacts != nil {
		artifacts.Expanded = out
	}
	return &pipeline.Result{Outputs: []string{out}, Rows: len(expanded)}, nil
}

// Expand produces one record per (title row, model) pair, titles outer and models inner.
// It returns the output headers: the fixed expanded columns then any extra input columns.
func Expand(titles *sheet.Table, models []records.ModelEntry) ([]string, []records.ExpandedRecord, error) {
	idx, err := titles.Lookup(records.TitleColumns...)
	if err != nil {
		return nil, nil, err
	}

	known := make(map[int]bool, len(idx))
	for _, i := range idx {
		known[i] = true
	}
	var extraCols []int
	headers := records.Names(records.ExpandedColumns)
	for i, h := range titles.Headers {
		if known[i] || strings.TrimSpace(h) == "" {
			continue
		}
		extraCols = append(extraCols, i)
		headers = append(headers, h)
	}

	rw := NewRewriter(models)
	out := make([]records.ExpandedRecord, 0, len(titles.Rows)*len(models))
	for _, row := range titles.Rows {
		image := sheet.Value(row, idx[records.ColImageName.Name])
		title := sheet.Value(row, idx[records.ColTitle.Name])

		var extra []string
		for _, c := range extraCols {
			extra = append(extra, sheet.Value(row, c))
		}

		for _, m := range models {
			out = append(out, records.ExpandedRecord{
				SKU:                   image + strings.ReplaceAll(m.Name, " ", ""),
				ParentGroupID:         sheet.Value(row, idx[records.ColParentID.Name]),
				Title:                 rw.Rewrite(title, m),
				TitleTranslation:      sheet.Value(row, idx[records.ColTitleTranslation.Name]),
				ShortTitle:            sheet.Value(row, idx[records.ColShortTitle.Name]),
				ShortTitleTranslation: sheet.Value(row, idx[records.ColShortTitleTranslation.Name]),
				ImageNumber:           image,
				Model:                 m.Name,
				Extra:                 extra,
			})
			if n := len(out); n%100 == 0 {
				slog.Debug("Expanding", "progress", fmt.Sprintf("%d/%d", n, cap(out)))
			}
		}
	}
	return headers, out, nil
}

// Rewriter rebuilds titles so they name one phone model and its screen size.
type Rewriter struct {
	// base model names ("12 Pro") longest first, so "12 Pro" wins over "12"
	bases []string
	sizes []string
}

// NewRewriter prepares the known model and size tokens from the model table.
func NewRewriter(models []records.ModelEntry) *Rewriter {
	seenBase := make(map[string]bool)
	seenSize := make(map[string]bool)
	rw := &Rewriter{}
	for _, m := range models {
		if b := BaseModel(m.Name); b != "" && !seenBase[b] {
			seenBase[b] = true
			rw.bases = append(rw.bases, b)
		}
		if s := strings.TrimSpace(m.ScreenSize); s != "" && !seenSize[s] {
			seenSize[s] = true
			rw.sizes = append(rw.sizes, s)
		}
	}
	byLength := func(list []string) func(i, j int) bool {
		return func(i, j int) bool { return len(list[i]) > len(list[j]) }
	}
	sort.SliceStable(rw.bases, byLength(rw.bases))
	sort.SliceStable(rw.sizes, byLength(rw.sizes))
	return rw
}

// BaseModel drops the "iPhone" token: "iPhone 12 Pro" -> "12 Pro".
func BaseModel(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, "iPhone", ""))
}

// Rewrite returns the title for model m.
//
// Empty titles get a synthesized default. Titles containing "for iPhone" lose that
// phrase, a leading known model, a leading "Case" and a leading known size before being
// rebuilt, so rewriting an already rewritten title does not stack prefixes. Any other
// title is prefixed untouched.
func (rw *Rewriter) Rewrite(title string, m records.ModelEntry) string {
	base := BaseModel(m.Name)
	prefix := fmt.Sprintf("%s %s Case %s", forIPhone, base, m.ScreenSize)

	title = strings.TrimSpace(title)
	if title == "" {
		return prefix + " " + defaultTitleTail
	}
	if !strings.Contains(title, forIPhone) {
		return prefix + " " + title
	}

	content := strings.Join(strings.Fields(strings.Replace(title, forIPhone, "", 1)), " ")
	content = trimLeading(content, rw.bases)
	content = trimLeading(content, []string{"Case"})
	content = trimLeading(content, rw.sizes)

	if content == "" {
		return prefix
	}
	return prefix + " " + content
}

// trimLeading strips the first token in candidates that starts s on a word boundary.
func trimLeading(s string, candidates []string) string {
	for _, c := range candidates {
		if !strings.HasPrefix(s, c) {
			continue
		}
		rest := s[len(c):]
		if rest != "" && rest[0] != ' ' {
			continue
		}
		return strings.TrimSpace(rest)
	}
	return s
}
