package sheet

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrMissingColumns = errors.New("missing required columns")
	ErrSheetNotFound  = errors.New("sheet not found")
	ErrFileLocked     = errors.New("unable to save file, make sure it is not open in another program")
)

// UniquePath returns path if nothing exists there, otherwise the first free
// "<stem>_<n><ext>" sibling counting from 1.
func UniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
	}
}

// Column names a table column by its canonical header and any accepted aliases.
type Column struct {
	Name    string
	Aliases []string
}

func (c Column) matches(header string) bool {
	header = strings.TrimSpace(header)
	if header == c.Name {
		return true
	}
	for _, alias := range c.Aliases {
		if header == alias {
			return true
		}
	}
	return false
}

// Table is a header row plus string data rows read from the first sheet of a workbook.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ReadTable loads the first sheet of a workbook, treating row 1 as the header.
func ReadTable(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("%w: no sheets found in %s", ErrSheetNotFound, path)
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	t := &Table{}
	if len(rows) == 0 {
		return t, nil
	}
	t.Headers = rows[0]
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}

	slog.Debug("Read table", "path", path, "sheet", name, "columns", len(t.Headers), "rows", len(t.Rows))
	return t, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Index returns the position of the first header matching the column, or -1.
func (t *Table) Index(col Column) int {
	for i, h := range t.Headers {
		if col.matches(h) {
			return i
		}
	}
	return -1
}

// Lookup resolves every column to its index. All missing columns are reported together.
func (t *Table) Lookup(cols ...Column) (map[string]int, error) {
	found := make(map[string]int, len(cols))
	var missing []string
	for _, col := range cols {
		idx := t.Index(col)
		if idx < 0 {
			missing = append(missing, col.Name)
			continue
		}
		found[col.Name] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return found, nil
}

// Value returns row[idx], or "" when the row is short (excelize trims trailing empty cells).
func Value(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// WriteTable writes headers and rows into a new workbook at a collision-free path
// derived from path, and returns the path actually written.
func WriteTable(path, sheetName string, headers []string, rows [][]interface{}) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return "", fmt.Errorf("failed to name sheet: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell := CellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return "", fmt.Errorf("failed to write header %q: %w", header, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return "", fmt.Errorf("failed to style header %q: %w", header, err)
		}
	}

	for r, row := range rows {
		for c, value := range row {
			if err := f.SetCellValue(sheetName, CellName(c+1, r+2), value); err != nil {
				return "", fmt.Errorf("failed to write row %d: %w", r+2, err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %w", err)
	}
	out := UniquePath(path)
	if err := Save(f, out); err != nil {
		return "", err
	}
	return out, nil
}

// Save writes the workbook, translating permission and sharing failures into ErrFileLocked.
func Save(f *excelize.File, path string) error {
	if err := f.SaveAs(path); err != nil {
		if isLocked(err) {
			return fmt.Errorf("%w: %s: %v", ErrFileLocked, path, err)
		}
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// FindSheet returns the first of names present in the workbook.
func FindSheet(f *excelize.File, names ...string) (string, error) {
	available := f.GetSheetList()
	for _, name := range names {
		for _, s := range available {
			if s == name {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("%w: want one of %v, workbook has %v", ErrSheetNotFound, names, available)
}

// CellName converts 1-based coordinates to an A1 reference.
func CellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		// only reachable with non-positive coordinates
		panic(err)
	}
	return name
}

// ColumnIndex converts a column letter ("BC") to its 1-based index.
func ColumnIndex(letters string) (int, error) {
	return excelize.ColumnNameToNumber(strings.TrimSpace(letters))
}

// Bounds reports the last row and column that hold a value.
func Bounds(f *excelize.File, sheet string) (maxRow, maxCol int, err error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	for _, row := range rows {
		if len(row) > maxCol {
			maxCol = len(row)
		}
	}
	return len(rows), maxCol, nil
}

// Cell is a snapshot of one cell's raw value, kept with enough type information
// to write it back without turning numbers into text.
type Cell struct {
	Value   string
	Type    excelize.CellType
	Formula string
}

// ReadRow snapshots columns 1..maxCol of a row.
func ReadRow(f *excelize.File, sheet string, row, maxCol int) ([]Cell, error) {
	cells := make([]Cell, maxCol)
	for col := 1; col <= maxCol; col++ {
		name := CellName(col, row)
		value, err := f.GetCellValue(sheet, name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		typ, err := f.GetCellType(sheet, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read type of %s: %w", name, err)
		}
		formula, err := f.GetCellFormula(sheet, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read formula of %s: %w", name, err)
		}
		cells[col-1] = Cell{Value: value, Type: typ, Formula: formula}
	}
	return cells, nil
}

// WriteRow writes a snapshot back, starting at column 1.
func WriteRow(f *excelize.File, sheet string, row int, cells []Cell) error {
	for i, c := range cells {
		name := CellName(i+1, row)
		var err error
		switch {
		case c.Formula != "":
			err = f.SetCellFormula(sheet, name, c.Formula)
		case c.Value == "":
			continue
		case c.Type == excelize.CellTypeNumber || c.Type == excelize.CellTypeUnset:
			if n, perr := strconv.ParseFloat(c.Value, 64); perr == nil {
				err = f.SetCellFloat(sheet, name, n, -1, 64)
			} else {
				err = f.SetCellStr(sheet, name, c.Value)
			}
		case c.Type == excelize.CellTypeBool:
			err = f.SetCellBool(sheet, name, c.Value == "1" || strings.EqualFold(c.Value, "true"))
		default:
			err = f.SetCellStr(sheet, name, c.Value)
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// CopyFile copies src to dst byte for byte, so every sheet and macro survives.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		if isLocked(err) {
			return fmt.Errorf("%w: %s: %v", ErrFileLocked, dst, err)
		}
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
