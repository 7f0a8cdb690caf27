package records

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/phonecase-tools/lister/internal/sheet"
)

// LoadModels reads the phone model table from a workbook or a parquet file.
func LoadModels(path string) ([]ModelEntry, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".xlsx", ".xlsm":
		return loadModelsWorkbook(path)
	case ".parquet":
		return loadModelsParquet(path)
	default:
		return nil, fmt.Errorf("unsupported model table format: %s (supported: .xlsx, .xlsm, .parquet)", ext)
	}
}

func loadModelsWorkbook(path string) ([]ModelEntry, error) {
	table, err := sheet.ReadTable(path)
	if err != nil {
		return nil, err
	}

	idx, err := table.Lookup(ColPhoneModel, ColSize)
	if err != nil {
		return nil, fmt.Errorf("model table %s: %w", path, err)
	}

	var models []ModelEntry
	for _, row := range table.Rows {
		name := strings.TrimSpace(sheet.Value(row, idx[ColPhoneModel.Name]))
		if name == "" {
			continue
		}
		models = append(models, ModelEntry{
			Name:       name,
			ScreenSize: strings.TrimSpace(sheet.Value(row, idx[ColSize.Name])),
		})
	}
	return models, nil
}

func loadModelsParquet(path string) ([]ModelEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	for _, name := range []string{"phone_model", "size"} {
		if _, ok := pf.Schema().Lookup(name); !ok {
			return nil, fmt.Errorf("model table %s: %w: %s", path, sheet.ErrMissingColumns, name)
		}
	}

	reader := parquet.NewGenericReader[ModelEntry](pf)
	defer reader.Close()

	var models []ModelEntry
	rows := make([]ModelEntry, 64)
	for {
		n, err := reader.Read(rows)
		for _, m := range rows[:n] {
			m.Name = strings.TrimSpace(m.Name)
			if m.Name == "" {
				continue
			}
			m.ScreenSize = strings.TrimSpace(m.ScreenSize)
			models = append(models, m)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Read model table", "path", path, "models", len(models))
	return models, nil
}

// ParentLookup maps an expanded SKU to its parent group id.
type ParentLookup struct {
	parents map[string]string
	ids     map[string]bool
}

func newLookup(size int) *ParentLookup {
	return &ParentLookup{parents: make(map[string]string, size), ids: make(map[string]bool)}
}

func (l *ParentLookup) add(sku, parent string) {
	if sku == "" || parent == "" {
		return
	}
	l.parents[sku] = parent
	l.ids[parent] = true
}

// NewParentLookup builds a lookup from expanded records.
func NewParentLookup(recs []ExpandedRecord) *ParentLookup {
	l := newLookup(len(recs))
	for _, r := range recs {
		l.add(r.SKU, r.ParentGroupID)
	}
	return l
}

// LoadParentLookup reads SKU to parent pairs from an expanded workbook.
func LoadParentLookup(path string) (*ParentLookup, error) {
	table, err := sheet.ReadTable(path)
	if err != nil {
		return nil, err
	}

	idx, err := table.Lookup(ColImageName, ColParentID)
	if err != nil {
		return nil, fmt.Errorf("parent lookup %s: %w", path, err)
	}

	l := newLookup(len(table.Rows))
	for _, row := range table.Rows {
		l.add(sheet.Value(row, idx[ColImageName.Name]), sheet.Value(row, idx[ColParentID.Name]))
	}
	return l, nil
}

// Parent returns the parent group id for sku.
func (l *ParentLookup) Parent(sku string) (string, bool) {
	if l == nil {
		return "", false
	}
	p, ok := l.parents[sku]
	return p, ok
}

// IsParent reports whether id is the parent group id of any SKU.
func (l *ParentLookup) IsParent(id string) bool {
	if l == nil {
		return false
	}
	return l.ids[id]
}

// Len reports how many SKUs the lookup knows.
func (l *ParentLookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.parents)
}

// LoadExpanded reads the expanded workbook. The parent column is optional; when it
// is absent every record has an empty ParentGroupID.
func LoadExpanded(path string) ([]ExpandedRecord, error) {
	table, err := sheet.ReadTable(path)
	if err != nil {
		return nil, err
	}

	idx, err := table.Lookup(ColImageName, ColTitle, ColTitleTranslation, ColShortTitle,
		ColShortTitleTranslation, ColImageNumber, ColModel)
	if err != nil {
		return nil, fmt.Errorf("expanded titles %s: %w", path, err)
	}
	parentIdx := table.Index(ColParentID)
	if parentIdx < 0 {
		slog.Warn("Expanded titles have no parent column, parent rows will not be inserted", "path", path)
	}

	recs := make([]ExpandedRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		recs = append(recs, ExpandedRecord{
			SKU:                   sheet.Value(row, idx[ColImageName.Name]),
			ParentGroupID:         sheet.Value(row, parentIdx),
			Title:                 sheet.Value(row, idx[ColTitle.Name]),
			TitleTranslation:      sheet.Value(row, idx[ColTitleTranslation.Name]),
			ShortTitle:            sheet.Value(row, idx[ColShortTitle.Name]),
			ShortTitleTranslation: sheet.Value(row, idx[ColShortTitleTranslation.Name]),
			ImageNumber:           sheet.Value(row, idx[ColImageNumber.Name]),
			Model:                 sheet.Value(row, idx[ColModel.Name]),
		})
	}
	return recs, nil
}
