package merge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout describes where the merger finds things inside a listing template.
type Layout struct {
	SheetNames   []string `yaml:"sheet_names"`
	HeaderRow    int      `yaml:"header_row"`
	ReferenceRow int      `yaml:"reference_row"`
	DataStartRow int      `yaml:"data_start_row"`
	SKUColumn    string   `yaml:"sku_column"`

	ProductName         LocatorSpec `yaml:"product_name"`
	ProductNameFallback int         `yaml:"product_name_fallback"`
	MainImage           LocatorSpec `yaml:"main_image"`
	// number of image columns starting at the main image column
	ImageColumns int         `yaml:"image_columns"`
	Identifiers  LocatorSpec `yaml:"identifiers"`
	Models       LocatorSpec `yaml:"models"`
	ParentSKU    LocatorSpec `yaml:"parent_sku"`

	ImageBaseURL string `yaml:"image_base_url"`
}

// LocatorSpec is the serialisable form of a Locator. Letters win over labels.
type LocatorSpec struct {
	Labels  []string `yaml:"labels,omitempty"`
	Letters []string `yaml:"letters,omitempty"`
}

func (s LocatorSpec) Locator() Locator {
	if len(s.Letters) > 0 {
		return FixedLetters{Letters: s.Letters}
	}
	return HeaderMatch{Labels: s.Labels}
}

// UnmarshalYAML replaces the whole spec, so a file giving only labels drops
// the default letters of that role.
func (s *LocatorSpec) UnmarshalYAML(value *yaml.Node) error {
	type plain LocatorSpec
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = LocatorSpec(p)
	return nil
}

// DefaultLayout matches the marketplace's phone case listing template.
func DefaultLayout() *Layout {
	return &Layout{
		SheetNames:          []string{"模板", "Template"},
		HeaderRow:           4,
		ReferenceRow:        7,
		DataStartRow:        8,
		SKUColumn:           "A",
		ProductName:         LocatorSpec{Labels: []string{"产品名称", "产品名", "Product Name", "item_name"}},
		ProductNameFallback: 4,
		MainImage:           LocatorSpec{Labels: []string{"主图像链接地址", "Main Image URL"}},
		ImageColumns:        7,
		Identifiers:         LocatorSpec{Letters: []string{"BC", "BK"}},
		Models:              LocatorSpec{Letters: []string{"BE", "BX", "CU"}},
		ParentSKU:           LocatorSpec{Labels: []string{"父条目的库存单位", "Parent SKU"}},
		ImageBaseURL:        "http://geyishuma.com/GYFGCX0031GYFGCX0060/",
	}
}

// LoadLayout reads a YAML layout. Keys missing from the file keep their defaults,
// a column role present in the file replaces the default locator of that role.
// An empty path returns the default layout.
func LoadLayout(path string) (*Layout, error) {
	layout := DefaultLayout()
	if path == "" {
		return layout, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read column layout: %w", err)
	}
	if err := yaml.Unmarshal(data, layout); err != nil {
		return nil, fmt.Errorf("failed to parse column layout %s: %w", path, err)
	}
	if err := layout.validate(); err != nil {
		return nil, fmt.Errorf("column layout %s: %w", path, err)
	}
	return layout, nil
}

func (l *Layout) validate() error {
	if len(l.SheetNames) == 0 {
		return fmt.Errorf("sheet_names must not be empty")
	}
	if l.HeaderRow < 1 || l.ReferenceRow < 1 || l.DataStartRow < 1 {
		return fmt.Errorf("row numbers must be positive")
	}
	if l.DataStartRow <= l.ReferenceRow || l.DataStartRow <= l.HeaderRow {
		return fmt.Errorf("data_start_row must come after header_row and reference_row")
	}
	if l.ImageColumns < 1 {
		return fmt.Errorf("image_columns must be at least 1")
	}
	return nil
}
