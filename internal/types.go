package internal

import (
	"strings"

	"github.com/spf13/cast"
)

// Table is a loaded tabular dataset. Column names keep their original casing;
// a nil cell or a whitespace-only string is null.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

func (t Table) Empty() bool {
	return len(t.Columns) == 0 || len(t.Rows) == 0
}

// Cell returns the raw value at (row, col), or nil when out of range.
func (t Table) Cell(row, col int) any {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return nil
	}
	r := t.Rows[row]
	if col >= len(r) {
		return nil
	}
	return r[col]
}

func (t Table) Text(row, col int) string {
	v := t.Cell(row, col)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

func IsNull(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Loaded is what a workbook loader hands back: either one table or an
// ordered bundle of sheets.
type Loaded interface {
	isLoaded()
}

type SingleTable struct {
	Table Table
}

type SheetBundle struct {
	Sheets []Table
}

func (SingleTable) isLoaded() {}
func (SheetBundle) isLoaded() {}

// FirstTable extracts the table from a SingleTable, or the first sheet of a
// SheetBundle. A nil or empty bundle yields an empty table.
func FirstTable(l Loaded) Table {
	switch v := l.(type) {
	case SingleTable:
		return v.Table
	case SheetBundle:
		if len(v.Sheets) > 0 {
			return v.Sheets[0]
		}
	}
	return Table{}
}

type SurveyorCount struct {
	Surveyor     string `json:"surveyor"`
	TotalRecords int    `json:"totalRecords"`
}

type SchemaKind string

const (
	SchemaAggregated   SchemaKind = "aggregated"
	SchemaRaw          SchemaKind = "raw"
	SchemaUnrecognized SchemaKind = "unrecognized"
)

type AdvisoryLevel string

const (
	LevelInfo    AdvisoryLevel = "info"
	LevelWarning AdvisoryLevel = "warning"
	LevelError   AdvisoryLevel = "error"
)

// Advisory is a non-fatal diagnostic shown next to the section it concerns.
type Advisory struct {
	Level   AdvisoryLevel `json:"level"`
	Source  string        `json:"source"`
	Message string        `json:"message"`
}

type Area struct {
	Label       string
	Path        string
	HeatmapPath string
}

type SnapshotRow struct {
	ID        string
	Area      string
	Source    string
	Kind      SchemaKind
	Total     int
	Records   []SurveyorCount
	CreatedAt string
}
