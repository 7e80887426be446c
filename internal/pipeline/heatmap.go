package pipeline

import (
	"errors"
	"sort"
	"time"

	"avance/internal"
	"avance/internal/util"
)

const (
	CrosstabSheet = "crosstab"
	AnnotSheet    = "annot"

	heatmapColorscale = "YlGnBu"
)

var ErrEmptyHeatmap = errors.New("crosstab or annot sheet is empty")

// Heatmap is a surveyor x date matrix of daily progress. Values holds nil
// where the crosstab cell is empty or non-numeric.
type Heatmap struct {
	Area        string       `json:"area"`
	Surveyors   []string     `json:"surveyors"`
	Dates       []string     `json:"dates"`
	Values      [][]*float64 `json:"values"`
	Annotations [][]string   `json:"annotations"`
	ZMin        float64      `json:"zmin"`
	ZMax        float64      `json:"zmax"`
	Colorscale  string       `json:"colorscale"`
}

type heatmapColumn struct {
	index  int
	key    string
	label  string
	date   time.Time
	parsed bool
}

// BuildHeatmap lays out the crosstab sheet (first column = surveyor, other
// columns = dates) with annotations taken from the same-shaped annot sheet.
// Date columns are sorted ascending; headers that are not dates go last in
// their original order and keep their text as label.
func BuildHeatmap(area string, crosstab, annot internal.Table, zmax float64) (Heatmap, error) {
	if crosstab.Empty() || annot.Empty() || len(crosstab.Columns) < 2 {
		return Heatmap{}, ErrEmptyHeatmap
	}

	cols := dateColumns(crosstab.Columns)
	annotCols := map[string]int{}
	for _, c := range dateColumns(annot.Columns) {
		annotCols[c.key] = c.index
	}
	annotRows := map[string]int{}
	for i := range annot.Rows {
		if label := annot.Text(i, 0); label != "" {
			if _, dup := annotRows[label]; !dup {
				annotRows[label] = i
			}
		}
	}

	hm := Heatmap{
		Area:        area,
		Surveyors:   make([]string, 0, len(crosstab.Rows)),
		Dates:       make([]string, 0, len(cols)),
		Values:      make([][]*float64, 0, len(crosstab.Rows)),
		Annotations: make([][]string, 0, len(crosstab.Rows)),
		ZMin:        0,
		ZMax:        zmax,
		Colorscale:  heatmapColorscale,
	}
	for _, c := range cols {
		hm.Dates = append(hm.Dates, c.label)
	}

	for r := range crosstab.Rows {
		surveyor := crosstab.Text(r, 0)
		hm.Surveyors = append(hm.Surveyors, surveyor)

		ar, byLabel := annotRows[surveyor]
		if !byLabel {
			ar = r
		}

		values := make([]*float64, 0, len(cols))
		notes := make([]string, 0, len(cols))
		for _, c := range cols {
			var cell *float64
			if f, ok := util.ParseNumber(crosstab.Cell(r, c.index)); ok {
				cell = &f
			}
			values = append(values, cell)

			ac, ok := annotCols[c.key]
			if !ok {
				ac = c.index
			}
			notes = append(notes, annot.Text(ar, ac))
		}
		hm.Values = append(hm.Values, values)
		hm.Annotations = append(hm.Annotations, notes)
	}

	return hm, nil
}

func dateColumns(headers []string) []heatmapColumn {
	cols := make([]heatmapColumn, 0, len(headers))
	for i := 1; i < len(headers); i++ {
		c := heatmapColumn{index: i, key: headers[i], label: headers[i]}
		if d, ok := ParseDate(headers[i]); ok {
			c.date, c.parsed = d, true
			c.key = d.Format("2006-01-02")
			c.label = d.Format(DisplayDateLayout)
		}
		cols = append(cols, c)
	}
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].parsed != cols[j].parsed {
			return cols[i].parsed
		}
		if !cols[i].parsed {
			return false
		}
		return cols[i].date.Before(cols[j].date)
	})
	return cols
}
