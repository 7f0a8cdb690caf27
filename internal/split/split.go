package split

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/phonecase-tools/lister/internal/config"
	"github.com/phonecase-tools/lister/internal/merge"
	"github.com/phonecase-tools/lister/internal/pipeline"
	"github.com/phonecase-tools/lister/internal/records"
	"github.com/phonecase-tools/lister/internal/sheet"
	"github.com/xuri/excelize/v2"
)

// OtherCount is the result count key for rows matching no brand.
const OtherCount = "other"

// Brand is one output workbook of the splitter.
type Brand struct {
	Name string
	// prepended to every parent SKU cell in the brand's workbook
	Prefix string
	Match  func(sku string) bool
}

// FileName is the brand workbook name inside the result folder.
func (b Brand) FileName() string {
	return "Final_Template_" + b.Name + records.DefaultMergeExt
}

var Brands = []Brand{
	{
		Name:   "iPhone",
		Prefix: "P-",
		Match:  func(sku string) bool { return strings.Contains(sku, "iPhone") },
	},
	{
		Name:   "Samsung",
		Prefix: "S-",
		Match:  func(sku string) bool { return strings.Contains(strings.ToLower(sku), "samsung") },
	},
}

// Stage copies the merged template once per brand, keeping only that brand's rows.
type Stage struct {
	brands []Brand
}

// New returns the split stage. No brands means Brands.
func New(brands ...Brand) *Stage {
	if len(brands) == 0 {
		brands = Brands
	}
	return &Stage{brands: brands}
}

func (s *Stage) Name() string { return "split" }

func (s *Stage) Run(ctx context.Context, cfg *config.Config, artifacts *pipeline.Artifacts) (*pipeline.Result, error) {
	layout, err := merge.LoadLayout(cfg.ColumnLayoutFile)
	if err != nil {
		return nil, err
	}

	input := artifacts.MergedPath(cfg)
	lookupPath := artifacts.ExpandedPath(cfg)
	lookup, err := records.LoadParentLookup(lookupPath)
	if err != nil {
		slog.Warn("Parent lookup unavailable, parent rows will not be placed", "stage", s.Name(), "path", lookupPath, "err", err)
		lookup = nil
	}

	slog.Info("Reading merged template", "stage", s.Name(), "path", input)
	src, err := readSource(input, layout)
	if err != nil {
		return nil, err
	}

	if err := cfg.EnsureFolders(); err != nil {
		return nil, err
	}

	result := &pipeline.Result{Counts: make(map[string]int)}
	for _, b := range s.brands {
		rows := Organize(src.rows, b, lookup)
		children := 0
		for _, r := range rows {
			if !r.parent {
				children++
			}
		}
		result.Counts[b.Name] = children
		if children == 0 {
			slog.Info("No rows for brand, skipping", "stage", s.Name(), "brand", b.Name)
			continue
		}

		out, err := writeBrand(input, filepath.Join(cfg.ResultFolder, b.FileName()), src, b, rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name, err)
		}
		slog.Info("Saved brand template", "stage", s.Name(), "brand", b.Name, "path", out, "rows", children, "total", len(rows))
		result.Outputs = append(result.Outputs, out)
		result.Rows += children
		if artifacts != nil {
			if artifacts.Brands == nil {
				artifacts.Brands = make(map[string]string)
			}
			artifacts.Brands[b.Name] = out
		}
	}

	result.Counts[OtherCount] = CountOther(src.rows, s.brands, lookup)
	slog.Info("Split finished", "stage", s.Name(), "counts", result.Counts)
	return result, nil
}

// Row is a snapshot of one data row of the merged template.
type Row struct {
	SKU    string
	Cells  []sheet.Cell
	parent bool
}

type source struct {
	sheetName string
	maxRow    int
	parentCol int
	firstRow  int
	rows      []Row
}

func readSource(path string, layout *merge.Layout) (*source, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheetName, err := sheet.FindSheet(f, layout.SheetNames...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	all, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", path, err)
	}
	maxRow, maxCol, err := sheet.Bounds(f, sheetName)
	if err != nil {
		return nil, err
	}
	var header []string
	if len(all) >= layout.HeaderRow {
		header = all[layout.HeaderRow-1]
	}
	cols, err := layout.Resolve(header)
	if err != nil {
		return nil, err
	}

	src := &source{sheetName: sheetName, maxRow: maxRow, parentCol: cols.ParentSKU, firstRow: layout.DataStartRow}
	for r := layout.DataStartRow; r <= maxRow; r++ {
		cells, err := sheet.ReadRow(f, sheetName, r, maxCol)
		if err != nil {
			return nil, err
		}
		sku := ""
		if cols.SKU <= len(cells) {
			sku = strings.TrimSpace(cells[cols.SKU-1].Value)
		}
		if sku == "" {
			continue
		}
		src.rows = append(src.rows, Row{SKU: sku, Cells: cells})
	}
	slog.Debug("Read merged rows", "rows", len(src.rows), "columns", maxCol)
	return src, nil
}

// Organize picks the rows of brand b in source order. The parent row of each group
// is placed directly before the first matching child of that group.
func Organize(rows []Row, b Brand, lookup *records.ParentLookup) []Row {
	parentRows := make(map[string]Row)
	for _, r := range rows {
		if lookup.IsParent(r.SKU) {
			if _, ok := parentRows[r.SKU]; !ok {
				parentRows[r.SKU] = r
			}
		}
	}

	var out []Row
	placed := make(map[string]bool)
	for _, r := range rows {
		// parent rows are only placed ahead of their children
		if !b.Match(r.SKU) || lookup.IsParent(r.SKU) {
			continue
		}
		if parent, ok := lookup.Parent(r.SKU); ok && !placed[parent] {
			placed[parent] = true
			if p, ok := parentRows[parent]; ok {
				p.parent = true
				out = append(out, p)
			}
		}
		out = append(out, r)
	}
	return out
}

// CountOther counts rows that belong to no brand, ignoring parent rows.
func CountOther(rows []Row, brands []Brand, lookup *records.ParentLookup) int {
	n := 0
	for _, r := range rows {
		if lookup.IsParent(r.SKU) {
			continue
		}
		matched := false
		for _, b := range brands {
			if b.Match(r.SKU) {
				matched = true
				break
			}
		}
		if !matched {
			n++
		}
	}
	return n
}

// writeBrand copies the merged workbook byte for byte, then replaces the data rows.
func writeBrand(input, target string, src *source, b Brand, rows []Row) (string, error) {
	out := sheet.UniquePath(target)
	if err := sheet.CopyFile(input, out); err != nil {
		return "", err
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", out, err)
	}
	defer f.Close()

	for r := src.maxRow; r >= src.firstRow; r-- {
		if err := f.RemoveRow(src.sheetName, r); err != nil {
			return "", fmt.Errorf("failed to delete row %d: %w", r, err)
		}
	}

	for i, row := range rows {
		cells := append([]sheet.Cell(nil), row.Cells...)
		if src.parentCol > 0 && src.parentCol <= len(cells) {
			if c := &cells[src.parentCol-1]; c.Value != "" && c.Formula == "" {
				c.Value = b.Prefix + c.Value
				c.Type = excelize.CellTypeSharedString
			}
		}
		if err := sheet.WriteRow(f, src.sheetName, src.firstRow+i, cells); err != nil {
			return "", err
		}
	}

	if err := sheet.Save(f, out); err != nil {
		return "", err
	}
	return out, nil
}
