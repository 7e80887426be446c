package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"avance/internal"
)

// ExportCountsToXLSX writes normalized counts as a two-column workbook that
// NormalizeSurveyors reads back as already aggregated.
func ExportCountsToXLSX(area string, records []internal.SurveyorCount, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if area != "" {
		if err := f.SetSheetName(sheet, sheetName(area)); err != nil {
			return err
		}
		sheet = sheetName(area)
	}

	headers := []string{SurveyorColumn, TotalColumn}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range records {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
		set(1, row.Surveyor)
		set(2, row.TotalRecords)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

var sheetNameReplacer = strings.NewReplacer(":", "-", `\`, "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

// sheetName makes an area label a valid worksheet name: no :\/?*[] and at
// most 31 characters.
func sheetName(label string) string {
	r := []rune(strings.Trim(sheetNameReplacer.Replace(label), "'"))
	if len(r) > 31 {
		r = r[:31]
	}
	if len(r) == 0 {
		return "Sheet1"
	}
	return string(r)
}
