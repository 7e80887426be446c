package workbook

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"avance/internal"
	"avance/internal/util"
)

var (
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
)

// Supported reports whether path has an extension Load understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls", ".csv":
		return true
	}
	return false
}

// Load reads every sheet of a workbook. A workbook with one sheet (and any
// CSV file) comes back as SingleTable; several sheets as SheetBundle.
func Load(path string) (internal.Loaded, error) {
	sheets, err := readSheets(path)
	if err != nil {
		return nil, err
	}
	if len(sheets) == 1 {
		return internal.SingleTable{Table: sheets[0]}, nil
	}
	return internal.SheetBundle{Sheets: sheets}, nil
}

// LoadSheet reads one named sheet. Sheet names match case-insensitively.
func LoadSheet(path, sheet string) (internal.Table, error) {
	sheets, err := readSheets(path)
	if err != nil {
		return internal.Table{}, err
	}
	for _, t := range sheets {
		if strings.EqualFold(strings.TrimSpace(t.Name), strings.TrimSpace(sheet)) {
			return t, nil
		}
	}
	return internal.Table{}, fmt.Errorf("%s in %s: %w", sheet, filepath.Base(path), ErrSheetNotFound)
}

func readSheets(path string) ([]internal.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".xls":
		return readXLS(path)
	case ".csv":
		return readCSV(path)
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}
}

func readXLSX(path string) ([]internal.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	out := []internal.Table{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		typed := make([][]any, len(rows))
		for r, row := range rows {
			typed[r] = make([]any, len(row))
			for c, raw := range row {
				typed[r][c] = xlsxValue(f, sheet, c, r, raw)
			}
		}
		out = append(out, tableFromRows(sheet, typed))
	}
	return out, nil
}

// xlsxValue returns numeric cells (dates included, as serials) as float64 so
// the number format applied in Excel never changes the value. Text cells stay
// strings.
func xlsxValue(f *excelize.File, sheet string, col, row int, raw string) any {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return raw
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil || (typ != excelize.CellTypeUnset && typ != excelize.CellTypeNumber) {
		return raw
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return raw
	}
	return n
}

func readXLS(path string) ([]internal.Table, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}

	out := []internal.Table{}
	for s := 0; s < wb.NumSheets(); s++ {
		ws := wb.GetSheet(s)
		if ws == nil {
			continue
		}
		rows := make([][]string, 0, int(ws.MaxRow)+1)
		for i := 0; i <= int(ws.MaxRow); i++ {
			row := ws.Row(i)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells[c] = row.Col(c)
			}
			rows = append(rows, cells)
		}
		out = append(out, tableFromRows(ws.Name, stringRows(rows)))
	}
	return out, nil
}

func readCSV(path string) ([]internal.Table, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	blob = bytes.TrimPrefix(blob, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(blob))
	reader.FieldsPerRecord = -1
	reader.Comma = sniffDelimiter(blob)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return []internal.Table{tableFromRows(name, stringRows(rows))}, nil
}

// sniffDelimiter picks ';' for exports that use it on the header line.
func sniffDelimiter(blob []byte) rune {
	line := blob
	if i := bytes.IndexByte(blob, '\n'); i >= 0 {
		line = blob[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func stringRows(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for r, row := range rows {
		out[r] = make([]any, len(row))
		for c, v := range row {
			out[r][c] = v
		}
	}
	return out
}

// tableFromRows treats the first non-empty row as the header. Blank header
// cells get positional names; fully empty data rows are skipped.
func tableFromRows(name string, rows [][]any) internal.Table {
	t := internal.Table{Name: name, Columns: []string{}, Rows: [][]any{}}

	start := -1
	for i, row := range rows {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return t
	}

	for i, v := range rows[start] {
		h := util.NormalizeSpaces(cast.ToString(v))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		t.Columns = append(t.Columns, h)
	}

	for _, row := range rows[start+1:] {
		if blankRow(row) {
			continue
		}
		cells := make([]any, len(t.Columns))
		for c := range cells {
			switch {
			case c >= len(row):
				cells[c] = ""
			case row[c] == nil:
				cells[c] = ""
			default:
				if s, ok := row[c].(string); ok {
					cells[c] = strings.TrimSpace(s)
				} else {
					cells[c] = row[c]
				}
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func blankRow(row []any) bool {
	for _, c := range row {
		if !internal.IsNull(c) {
			return false
		}
	}
	return true
}
