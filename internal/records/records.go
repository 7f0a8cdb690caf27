package records

import (
	"github.com/phonecase-tools/lister/internal/sheet"
)

// Intermediate workbook columns. The Chinese aliases keep workbooks produced by
// the older tooling readable.
var (
	ColImageName             = sheet.Column{Name: "Image Name", Aliases: []string{"图片名称"}}
	ColParentID              = sheet.Column{Name: "Parent ID", Aliases: []string{"父类编号"}}
	ColTitle                 = sheet.Column{Name: "Amazon Title", Aliases: []string{"亚马逊产品标题"}}
	ColTitleTranslation      = sheet.Column{Name: "Amazon Title Translation", Aliases: []string{"亚马逊产品标题翻译"}}
	ColShortTitle            = sheet.Column{Name: "Short Title", Aliases: []string{"短标题"}}
	ColShortTitleTranslation = sheet.Column{Name: "Short Title Translation", Aliases: []string{"短标题翻译"}}
	ColImageNumber           = sheet.Column{Name: "Image Number", Aliases: []string{"图片编号"}}
	ColModel                 = sheet.Column{Name: "Model", Aliases: []string{"型号"}}
	ColError                 = sheet.Column{Name: "Error", Aliases: []string{"错误信息"}}

	ColPhoneModel = sheet.Column{Name: "Phone Model", Aliases: []string{"手机型号"}}
	ColSize       = sheet.Column{Name: "Size", Aliases: []string{"尺寸"}}
)

// TitleColumns is the fixed column order of the title workbook.
var TitleColumns = []sheet.Column{
	ColImageName,
	ColParentID,
	ColTitle,
	ColTitleTranslation,
	ColShortTitle,
	ColShortTitleTranslation,
}

// ExpandedColumns is the fixed column order of the expanded workbook.
var ExpandedColumns = []sheet.Column{
	ColImageName,
	ColParentID,
	ColTitle,
	ColTitleTranslation,
	ColShortTitle,
	ColShortTitleTranslation,
	ColImageNumber,
	ColModel,
}

// Fixed artifact names inside the result folder.
const (
	TitlesFile      = "Image_Titles.xlsx"
	FailuresFile    = "Failed_Images.xlsx"
	ExpandedFile    = "Image_Titles_Add_Model.xlsx"
	MergedFile      = "Final_Template.xlsm"
	TitlesSheet     = "Titles"
	FailuresSheet   = "Failures"
	ExpandedSheet   = "Expanded"
	DefaultMergeExt = ".xlsm"
)

// TitleRecord is one successfully titled image.
type TitleRecord struct {
	ImageID               string
	ParentGroupID         string
	Title                 string
	TitleTranslation      string
	ShortTitle            string
	ShortTitleTranslation string
}

// Row renders the record in TitleColumns order.
func (r TitleRecord) Row() []interface{} {
	return []interface{}{r.ImageID, r.ParentGroupID, r.Title, r.TitleTranslation, r.ShortTitle, r.ShortTitleTranslation}
}

// ModelEntry is one row of the phone model lookup table.
type ModelEntry struct {
	Name       string `parquet:"phone_model"`
	ScreenSize string `parquet:"size"`
}

// ExpandedRecord is one (title, model) pair.
type ExpandedRecord struct {
	SKU                   string
	ParentGroupID         string
	Title                 string
	TitleTranslation      string
	ShortTitle            string
	ShortTitleTranslation string
	ImageNumber           string
	Model                 string
	// Extra carries input columns outside the fixed set, in input order.
	Extra []string
}

// Row renders the record in ExpandedColumns order followed by the extras.
func (r ExpandedRecord) Row() []interface{} {
	row := []interface{}{
		r.SKU, r.ParentGroupID, r.Title, r.TitleTranslation,
		r.ShortTitle, r.ShortTitleTranslation, r.ImageNumber, r.Model,
	}
	for _, v := range r.Extra {
		row = append(row, v)
	}
	return row
}

// Names returns the canonical header names of cols.
func Names(cols []sheet.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
