package dashboard

import (
	"avance/internal"
	"avance/internal/pipeline"
)

// Figure is a plotly.js figure. The page script hands it to Plotly.newPlot
// as is.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type         string   `json:"type"`
	Name         string   `json:"name,omitempty"`
	Mode         string   `json:"mode,omitempty"`
	X            any      `json:"x,omitempty"`
	Y            any      `json:"y,omitempty"`
	Z            any      `json:"z,omitempty"`
	Text         any      `json:"text,omitempty"`
	TextTemplate string   `json:"texttemplate,omitempty"`
	Colorscale   string   `json:"colorscale,omitempty"`
	ZMin         *float64 `json:"zmin,omitempty"`
	ZMax         *float64 `json:"zmax,omitempty"`
	HoverGaps    *bool    `json:"hoverongaps,omitempty"`
}

type Axis struct {
	Title     string `json:"title,omitempty"`
	Type      string `json:"type,omitempty"`
	AutoRange any    `json:"autorange,omitempty"`
}

type Layout struct {
	Title  string `json:"title,omitempty"`
	Height int    `json:"height,omitempty"`
	XAxis  Axis   `json:"xaxis"`
	YAxis  Axis   `json:"yaxis"`
}

func countsFigure(area string, records []internal.SurveyorCount) Figure {
	x := make([]string, 0, len(records))
	y := make([]int, 0, len(records))
	for _, r := range records {
		x = append(x, r.Surveyor)
		y = append(y, r.TotalRecords)
	}
	return Figure{
		Data: []Trace{{Type: "bar", Name: area, X: x, Y: y}},
		Layout: Layout{
			Title: "Records per surveyor",
			XAxis: Axis{Title: pipeline.SurveyorColumn, Type: "category"},
			YAxis: Axis{Title: pipeline.TotalColumn},
		},
	}
}

func totalsFigure(totals []pipeline.AreaTotal) Figure {
	x := make([]string, 0, len(totals))
	y := make([]int, 0, len(totals))
	for _, t := range totals {
		x = append(x, t.Label)
		y = append(y, t.Total)
	}
	return Figure{
		Data:   []Trace{{Type: "bar", X: x, Y: y}},
		Layout: Layout{Title: "Records per area", XAxis: Axis{Type: "category"}},
	}
}

func seriesFigure(s pipeline.Series) Figure {
	fig := Figure{Layout: Layout{Title: "Daily progress", XAxis: Axis{Type: "date"}}}
	for _, line := range s.Lines {
		fig.Data = append(fig.Data, Trace{Type: "scatter", Mode: "lines+markers", Name: line.Name, X: s.Dates, Y: line.Values})
	}
	return fig
}

func heatmapFigure(h pipeline.Heatmap) Figure {
	zmin, zmax := h.ZMin, h.ZMax
	gaps := false
	height := 120 + 28*len(h.Surveyors)
	return Figure{
		Data: []Trace{{
			Type:         "heatmap",
			X:            h.Dates,
			Y:            h.Surveyors,
			Z:            h.Values,
			Text:         h.Annotations,
			TextTemplate: "%{text}",
			Colorscale:   h.Colorscale,
			ZMin:         &zmin,
			ZMax:         &zmax,
			HoverGaps:    &gaps,
		}},
		Layout: Layout{
			Title:  "Daily progress by surveyor, " + h.Area,
			Height: height,
			XAxis:  Axis{Type: "category"},
			YAxis:  Axis{Type: "category", AutoRange: "reversed"},
		},
	}
}
