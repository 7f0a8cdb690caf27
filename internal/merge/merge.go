package merge

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/phonecase-tools/lister/internal/config"
	"github.com/phonecase-tools/lister/internal/pipeline"
	"github.com/phonecase-tools/lister/internal/records"
	"github.com/phonecase-tools/lister/internal/sheet"
	"github.com/xuri/excelize/v2"
)

// host, first path segment, file stem, extension
var templateURL = regexp.MustCompile(`(http://[^/]+/)([^/]+/)([^.]+)(\..+)$`)

// Stage writes the expanded records into the brand's listing template.
type Stage struct{}

func New() *Stage { return &Stage{} }

func (s *Stage) Name() string { return "merge" }

func (s *Stage) Run(ctx context.Context, cfg *config.Config, artifacts *pipeline.Artifacts) (*pipeline.Result, error) {
	layout, err := LoadLayout(cfg.ColumnLayoutFile)
	if err != nil {
		return nil, err
	}

	input := artifacts.ExpandedPath(cfg)
	slog.Info("Reading expanded titles", "stage", s.Name(), "path", input)
	recs, err := records.LoadExpanded(input)
	if err != nil {
		return nil, err
	}

	tpl, err := FindTemplate(cfg.ReferenceFolder, cfg.TemplateNameMatch)
	if err != nil {
		return nil, err
	}
	slog.Info("Opening template", "stage", s.Name(), "path", tpl)
	f, err := excelize.OpenFile(tpl)
	if err != nil {
		return nil, fmt.Errorf("failed to open template %s: %w", tpl, err)
	}
	defer f.Close()

	sheetName, err := sheet.FindSheet(f, layout.SheetNames...)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", tpl, err)
	}

	summary, err := Merge(f, sheetName, layout, recs, records.NewParentLookup(recs))
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", tpl, err)
	}

	if err := cfg.EnsureFolders(); err != nil {
		return nil, err
	}
	out := sheet.UniquePath(filepath.Join(cfg.ResultFolder, records.MergedFile))
	if err := sheet.Save(f, out); err != nil {
		return nil, err
	}
	slog.Info("Saved merged template", "stage", s.Name(), "path", out,
		"rows", summary.Rows, "appended", summary.Appended, "deleted", summary.Deleted, "parents", summary.Parents)

	if artifacts != nil {
		artifacts.Merged = out
	}
	return &pipeline.Result{
		Outputs: []string{out},
		Rows:    summary.Rows,
		Counts: map[string]int{
			"appended": summary.Appended,
			"deleted":  summary.Deleted,
			"parents":  summary.Parents,
		},
	}, nil
}

// Summary describes what Merge changed.
type Summary struct {
	Rows     int
	Appended int
	Deleted  int
	Parents  int
	// column holding the product name length, 0 when nothing was written
	CharCountColumn int
}

// Merge overwrites the template's data rows with recs, one row per record, then
// inserts a parent row above the first child of every parent group in lookup.
func Merge(f *excelize.File, sheetName string, layout *Layout, recs []records.ExpandedRecord, lookup *records.ParentLookup) (*Summary, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	var header []string
	if len(rows) >= layout.HeaderRow {
		header = rows[layout.HeaderRow-1]
	}
	cols, err := layout.Resolve(header)
	if err != nil {
		return nil, err
	}

	m := &merger{f: f, sheet: sheetName, layout: layout, cols: cols}
	summary := &Summary{Rows: len(recs)}

	maxRow := len(rows)
	valid, err := m.validRows(maxRow)
	if err != nil {
		return nil, err
	}
	slog.Info("Template data rows", "existing", len(valid), "records", len(recs))

	templates, err := m.templateURLs()
	if err != nil {
		return nil, err
	}

	if len(recs) > len(valid) {
		source := layout.DataStartRow
		if len(valid) > 0 {
			source = valid[len(valid)-1]
		}
		next := max(maxRow, layout.DataStartRow-1) + 1
		for len(valid) < len(recs) {
			if err := f.DuplicateRowTo(sheetName, source, next); err != nil {
				return nil, fmt.Errorf("failed to append row %d: %w", next, err)
			}
			valid = append(valid, next)
			summary.Appended++
			next++
		}
		maxRow = next - 1
	}

	keep := make(map[int]bool, len(recs))
	for i, rec := range recs {
		row := valid[i]
		if err := m.writeRecord(row, rec, templates); err != nil {
			return nil, err
		}
		keep[row] = true
		if (i+1)%100 == 0 {
			slog.Debug("Merging", "progress", fmt.Sprintf("%d/%d", i+1, len(recs)))
		}
	}

	for row := maxRow; row >= layout.DataStartRow; row-- {
		if keep[row] {
			continue
		}
		if err := f.RemoveRow(sheetName, row); err != nil {
			return nil, fmt.Errorf("failed to delete row %d: %w", row, err)
		}
		summary.Deleted++
	}

	// kept rows are now contiguous from the data start row
	if len(recs) > 0 {
		col, err := m.writeCharCounts(recs)
		if err != nil {
			return nil, err
		}
		summary.CharCountColumn = col
	}

	if cols.ParentSKU > 0 && lookup != nil && lookup.Len() > 0 {
		summary.Parents, err = m.insertParents(layout.DataStartRow+len(recs)-1, lookup)
		if err != nil {
			return nil, err
		}
	}
	return summary, nil
}

type merger struct {
	f      *excelize.File
	sheet  string
	layout *Layout
	cols   Columns
}

func (m *merger) get(col, row int) (string, error) {
	v, err := m.f.GetCellValue(m.sheet, sheet.CellName(col, row))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", sheet.CellName(col, row), err)
	}
	return strings.TrimSpace(v), nil
}

func (m *merger) set(col, row int, value interface{}) error {
	if err := m.f.SetCellValue(m.sheet, sheet.CellName(col, row), value); err != nil {
		return fmt.Errorf("failed to write %s: %w", sheet.CellName(col, row), err)
	}
	return nil
}

// validRows lists data rows with a non-empty SKU.
func (m *merger) validRows(maxRow int) ([]int, error) {
	var valid []int
	for row := m.layout.DataStartRow; row <= maxRow; row++ {
		v, err := m.get(m.cols.SKU, row)
		if err != nil {
			return nil, err
		}
		if v != "" {
			valid = append(valid, row)
		}
	}
	return valid, nil
}

// templateURLs captures the first data row's image links before they are overwritten.
func (m *merger) templateURLs() ([]string, error) {
	urls := make([]string, len(m.cols.Images))
	for i, col := range m.cols.Images {
		v, err := m.get(col, m.layout.DataStartRow)
		if err != nil {
			return nil, err
		}
		urls[i] = v
	}
	return urls, nil
}

func (m *merger) writeRecord(row int, rec records.ExpandedRecord, templates []string) error {
	if err := m.set(m.cols.SKU, row, rec.SKU); err != nil {
		return err
	}
	if err := m.set(m.cols.ProductName, row, rec.Title); err != nil {
		return err
	}
	for i, col := range m.cols.Images {
		if err := m.set(col, row, ImageURL(templates[i], m.layout.ImageBaseURL, rec.SKU, i)); err != nil {
			return err
		}
	}
	for _, col := range m.cols.Identifiers {
		if err := m.set(col, row, rec.ImageNumber); err != nil {
			return err
		}
	}
	for _, col := range m.cols.Models {
		if err := m.set(col, row, rec.Model); err != nil {
			return err
		}
	}
	return nil
}

// writeCharCounts adds a column past the last used one holding each product name's length.
func (m *merger) writeCharCounts(recs []records.ExpandedRecord) (int, error) {
	_, maxCol, err := sheet.Bounds(m.f, m.sheet)
	if err != nil {
		return 0, err
	}
	col := maxCol + 1
	for i, rec := range recs {
		if rec.Title == "" {
			continue
		}
		if err := m.set(col, m.layout.DataStartRow+i, utf8.RuneCountInString(rec.Title)); err != nil {
			return 0, err
		}
	}
	return col, nil
}

type insertion struct {
	row    int
	parent string
}

// insertParents adds one copy of the reference row above the first child of each
// group, then points every child's parent SKU cell at its group.
func (m *merger) insertParents(lastRow int, lookup *records.ParentLookup) (int, error) {
	var positions []insertion
	seen := make(map[string]bool)
	for row := m.layout.DataStartRow; row <= lastRow; row++ {
		sku, err := m.get(m.cols.SKU, row)
		if err != nil {
			return 0, err
		}
		parent, ok := lookup.Parent(sku)
		if !ok || seen[parent] {
			continue
		}
		seen[parent] = true
		positions = append(positions, insertion{row: row, parent: parent})
	}

	// bottom up so earlier positions stay valid
	for i := len(positions) - 1; i >= 0; i-- {
		p := positions[i]
		if err := m.f.DuplicateRowTo(m.sheet, m.layout.ReferenceRow, p.row); err != nil {
			return 0, fmt.Errorf("failed to insert parent row %d: %w", p.row, err)
		}
		for _, col := range []int{m.cols.SKU, m.cols.ProductName, m.cols.ParentSKU} {
			if err := m.set(col, p.row, p.parent); err != nil {
				return 0, err
			}
		}
		for _, col := range m.cols.Images {
			if err := m.f.SetCellDefault(m.sheet, sheet.CellName(col, p.row), ""); err != nil {
				return 0, fmt.Errorf("failed to clear %s: %w", sheet.CellName(col, p.row), err)
			}
		}
	}
	slog.Info("Inserted parent rows", "count", len(positions))

	lastRow += len(positions)
	updated := 0
	for row := m.layout.DataStartRow; row <= lastRow; row++ {
		sku, err := m.get(m.cols.SKU, row)
		if err != nil {
			return 0, err
		}
		parent, ok := lookup.Parent(sku)
		if !ok {
			continue
		}
		if err := m.set(m.cols.ParentSKU, row, parent); err != nil {
			return 0, err
		}
		updated++
	}
	slog.Debug("Updated child parent SKUs", "count", updated)
	return len(positions), nil
}

// ImageURL builds the link for image index i of sku: 0 is the main image,
// 1..6 are PT01..PT06. The host and first path segment of tpl are kept when it
// parses, base is used otherwise.
func ImageURL(tpl, base, sku string, i int) string {
	suffix := ".MAIN.jpg"
	if i > 0 {
		suffix = fmt.Sprintf(".PT%02d.jpg", i)
	}
	if parts := templateURL.FindStringSubmatch(tpl); parts != nil {
		return parts[1] + parts[2] + sku + suffix
	}
	return base + sku + suffix
}
