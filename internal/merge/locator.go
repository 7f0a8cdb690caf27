package merge

import (
	"log/slog"
	"strings"

	"github.com/phonecase-tools/lister/internal/sheet"
)

// Locator finds the 1-based columns that hold one role in the template.
// An empty result means the role is absent.
type Locator interface {
	Locate(header []string) []int
}

// HeaderMatch picks the first header cell containing any of Labels, tried in order.
type HeaderMatch struct {
	Labels []string
}

func (m HeaderMatch) Locate(header []string) []int {
	for _, label := range m.Labels {
		for i, cell := range header {
			if label != "" && strings.Contains(cell, label) {
				return []int{i + 1}
			}
		}
	}
	return nil
}

// FixedLetters names the columns directly ("BC", "BK").
type FixedLetters struct {
	Letters []string
}

func (l FixedLetters) Locate(_ []string) []int {
	var cols []int
	for _, letters := range l.Letters {
		col, err := sheet.ColumnIndex(letters)
		if err != nil {
			slog.Warn("Skipping invalid column letter", "letters", letters, "err", err)
			continue
		}
		cols = append(cols, col)
	}
	return cols
}

// Columns are the resolved template columns.
type Columns struct {
	SKU         int
	ProductName int
	Images      []int
	Identifiers []int
	Models      []int
	// 0 when the template has no parent SKU column
	ParentSKU int
}

// Resolve locates every role in the header row.
func (l *Layout) Resolve(header []string) (Columns, error) {
	var cols Columns
	var err error

	cols.SKU, err = sheet.ColumnIndex(l.SKUColumn)
	if err != nil {
		return cols, err
	}

	if found := l.ProductName.Locator().Locate(header); len(found) > 0 {
		cols.ProductName = found[0]
	} else {
		slog.Warn("Product name column not found, using fallback", "column", l.ProductNameFallback)
		cols.ProductName = l.ProductNameFallback
	}

	if found := l.MainImage.Locator().Locate(header); len(found) > 0 {
		for i := 0; i < l.ImageColumns; i++ {
			cols.Images = append(cols.Images, found[0]+i)
		}
	} else {
		slog.Warn("Main image column not found, image links will not be written")
	}

	cols.Identifiers = l.Identifiers.Locator().Locate(header)
	cols.Models = l.Models.Locator().Locate(header)

	if found := l.ParentSKU.Locator().Locate(header); len(found) > 0 {
		cols.ParentSKU = found[0]
	} else {
		slog.Warn("Parent SKU column not found, parent rows will not be inserted")
	}
	return cols, nil
}
