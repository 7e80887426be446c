package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"avance/internal"
	"avance/internal/util"
)

// Column-name candidates, in priority order. Aggregated headers must match
// exactly (after normalization); raw headers match by substring.
var (
	aggregatedSurveyorNames = []string{"surveyor", "empadronador"}
	aggregatedTotalNames    = []string{"total records", "total_records", "total registros", "total_registros"}

	documentProbes = []string{"dni", "doc", "num_doc"}
	surveyorProbes = []string{"surveyor", "user", "registrar", "name", "empadronador", "usuario", "nombre"}
)

const (
	SurveyorColumn = "surveyor"
	TotalColumn    = "total records"
)

// Normalized is the outcome of NormalizeSurveyors. Kind tells which path was
// taken; SurveyorColumn/SourceColumn name the input columns that were used.
type Normalized struct {
	Kind           internal.SchemaKind      `json:"kind"`
	SurveyorColumn string                   `json:"surveyorColumn,omitempty"`
	SourceColumn   string                   `json:"sourceColumn,omitempty"`
	Records        []internal.SurveyorCount `json:"records"`
	Advisories     []internal.Advisory      `json:"advisories,omitempty"`
}

func (n Normalized) Recognized() bool {
	return n.Kind != internal.SchemaUnrecognized
}

func (n Normalized) Total() int {
	total := 0
	for _, r := range n.Records {
		total += r.TotalRecords
	}
	return total
}

// Table returns the records as a two-column (surveyor, total records) table,
// which NormalizeSurveyors recognizes as already aggregated.
func (n Normalized) Table() internal.Table {
	t := internal.Table{Columns: []string{SurveyorColumn, TotalColumn}, Rows: make([][]any, 0, len(n.Records))}
	for _, r := range n.Records {
		t.Rows = append(t.Rows, []any{r.Surveyor, r.TotalRecords})
	}
	return t
}

// NormalizeSurveyors turns a table of unknown shape into per-surveyor record
// counts. source names the input in advisories. The input is never modified.
func NormalizeSurveyors(source string, t internal.Table) Normalized {
	if t.Empty() {
		return unrecognized(source, "no data rows")
	}

	surveyorIdx := util.FindColumnExact(t.Columns, aggregatedSurveyorNames)
	totalIdx := util.FindColumnExact(t.Columns, aggregatedTotalNames)
	if surveyorIdx >= 0 && totalIdx >= 0 {
		return normalizeAggregated(source, t, surveyorIdx, totalIdx)
	}

	docIdx := util.FindColumn(t.Columns, documentProbes)
	if docIdx >= 0 {
		if nameIdx := util.FindColumn(t.Columns, surveyorProbes, docIdx); nameIdx >= 0 {
			return normalizeRaw(t, nameIdx, docIdx)
		}
	}

	return unrecognized(source, fmt.Sprintf("columns %s match neither the aggregated nor the per-document layout", quoteColumns(t.Columns)))
}

func normalizeAggregated(source string, t internal.Table, surveyorIdx, totalIdx int) Normalized {
	out := Normalized{
		Kind:           internal.SchemaAggregated,
		SurveyorColumn: t.Columns[surveyorIdx],
		SourceColumn:   t.Columns[totalIdx],
		Records:        make([]internal.SurveyorCount, 0, len(t.Rows)),
	}

	blank := 0
	for i := range t.Rows {
		name := t.Text(i, surveyorIdx)
		if name == "" {
			blank++
		}
		out.Records = append(out.Records, internal.SurveyorCount{
			Surveyor:     name,
			TotalRecords: util.ParseCount(t.Cell(i, totalIdx)),
		})
	}

	if blank > 0 {
		out.Advisories = append(out.Advisories, internal.Advisory{
			Level:   internal.LevelWarning,
			Source:  source,
			Message: fmt.Sprintf("%d row(s) have an empty surveyor", blank),
		})
	}
	return out
}

func normalizeRaw(t internal.Table, nameIdx, docIdx int) Normalized {
	counts := map[string]int{}
	order := []string{}
	for i, row := range t.Rows {
		name := t.Text(i, nameIdx)
		if name == "" {
			continue
		}
		if _, seen := counts[name]; !seen {
			order = append(order, name)
			counts[name] = 0
		}
		if docIdx < len(row) && !internal.IsNull(row[docIdx]) {
			counts[name]++
		}
	}

	records := make([]internal.SurveyorCount, 0, len(order))
	for _, name := range order {
		records = append(records, internal.SurveyorCount{Surveyor: name, TotalRecords: counts[name]})
	}
	sortByCount(records)

	return Normalized{
		Kind:           internal.SchemaRaw,
		SurveyorColumn: t.Columns[nameIdx],
		SourceColumn:   t.Columns[docIdx],
		Records:        records,
	}
}

// sortByCount orders by count descending, then surveyor ascending.
func sortByCount(records []internal.SurveyorCount) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].TotalRecords != records[j].TotalRecords {
			return records[i].TotalRecords > records[j].TotalRecords
		}
		return records[i].Surveyor < records[j].Surveyor
	})
}

func unrecognized(source, reason string) Normalized {
	return Normalized{
		Kind:    internal.SchemaUnrecognized,
		Records: []internal.SurveyorCount{},
		Advisories: []internal.Advisory{{
			Level:   internal.LevelWarning,
			Source:  source,
			Message: "unrecognized schema: " + reason,
		}},
	}
}

func quoteColumns(cols []string) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%q", c))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
