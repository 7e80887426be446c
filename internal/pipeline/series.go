package pipeline

import (
	"fmt"
	"sort"
	"time"

	"avance/internal"
	"avance/internal/util"
)

var seriesDateProbes = []string{"fecha", "date"}

type Line struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// Series is the progress-over-time chart: Dates are ISO days ascending and
// every Line has one value per date.
type Series struct {
	Dates []string `json:"dates"`
	Lines []Line   `json:"lines"`
}

func (s Series) Empty() bool {
	return len(s.Dates) == 0 || len(s.Lines) == 0
}

// BuildSeries picks the date column by name (first column otherwise) and
// charts every other column holding at least one number. Rows whose date
// does not parse are dropped.
func BuildSeries(t internal.Table) (Series, error) {
	if t.Empty() {
		return Series{}, nil
	}

	dateIdx := util.FindColumn(t.Columns, seriesDateProbes)
	if dateIdx < 0 {
		dateIdx = 0
	}

	type point struct {
		date time.Time
		row  int
	}
	points := make([]point, 0, len(t.Rows))
	for i := range t.Rows {
		if d, ok := ParseDate(t.Cell(i, dateIdx)); ok {
			points = append(points, point{date: d, row: i})
		}
	}
	if len(points) == 0 {
		return Series{}, fmt.Errorf("column %q holds no dates", t.Columns[dateIdx])
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].date.Before(points[j].date) })

	out := Series{Dates: make([]string, 0, len(points))}
	for _, p := range points {
		out.Dates = append(out.Dates, p.date.Format("2006-01-02"))
	}

	for c, col := range t.Columns {
		if c == dateIdx {
			continue
		}
		line := Line{Name: col, Values: make([]*float64, 0, len(points))}
		numeric := false
		for _, p := range points {
			var v *float64
			if f, ok := util.ParseNumber(t.Cell(p.row, c)); ok {
				v = &f
				numeric = true
			}
			line.Values = append(line.Values, v)
		}
		if numeric {
			out.Lines = append(out.Lines, line)
		}
	}
	return out, nil
}
