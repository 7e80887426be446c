package pipeline

import (
	"fmt"
	"strconv"

	"github.com/montanaflynn/stats"

	"avance/internal"
	"avance/internal/util"
)

type Tile struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

var (
	indicatorNameProbes  = []string{"indicator", "indicador"}
	indicatorValueProbes = []string{"value", "valor"}
)

// BuildIndicators reads the general indicators workbook. A table with an
// indicator/value column pair yields one tile per row; any other table yields
// one tile per column taken from its first data row.
func BuildIndicators(t internal.Table) []Tile {
	if t.Empty() {
		return []Tile{}
	}

	nameIdx := util.FindColumn(t.Columns, indicatorNameProbes)
	valueIdx := util.FindColumn(t.Columns, indicatorValueProbes, nameIdx)
	if nameIdx >= 0 && valueIdx >= 0 {
		out := make([]Tile, 0, len(t.Rows))
		for i := range t.Rows {
			label := t.Text(i, nameIdx)
			if label == "" {
				continue
			}
			out = append(out, Tile{Label: label, Value: formatValue(t.Cell(i, valueIdx))})
		}
		return out
	}

	out := make([]Tile, 0, len(t.Columns))
	for c, col := range t.Columns {
		out = append(out, Tile{Label: col, Value: formatValue(t.Cell(0, c))})
	}
	return out
}

// SurveyorTiles summarizes one area's normalized counts.
func SurveyorTiles(records []internal.SurveyorCount) []Tile {
	data := make(stats.Float64Data, 0, len(records))
	total := 0
	for _, r := range records {
		data = append(data, float64(r.TotalRecords))
		total += r.TotalRecords
	}

	tiles := []Tile{
		{Label: "Total records", Value: formatInt(total)},
		{Label: "Surveyors", Value: formatInt(len(records))},
	}
	if len(data) == 0 {
		return tiles
	}

	mean, _ := data.Mean()
	median, _ := data.Median()
	maxv, _ := data.Max()
	tiles = append(tiles,
		Tile{Label: "Mean per surveyor", Value: strconv.FormatFloat(mean, 'f', 1, 64)},
		Tile{Label: "Median per surveyor", Value: strconv.FormatFloat(median, 'f', 1, 64)},
		Tile{Label: "Max per surveyor", Value: formatInt(int(maxv))},
	)
	return tiles
}

func formatValue(v any) string {
	if internal.IsNull(v) {
		return "-"
	}
	if f, ok := util.ParseNumber(v); ok {
		if f == float64(int64(f)) {
			return formatInt(int(f))
		}
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	return fmt.Sprint(v)
}

// formatInt groups thousands with a dot: 12345 -> "12.345".
func formatInt(n int) string {
	s := strconv.Itoa(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
