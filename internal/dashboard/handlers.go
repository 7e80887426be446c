package dashboard

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"avance/internal"
	"avance/internal/pipeline"
	"avance/internal/util"
)

const historyLimit = 30

var indexTabs = []tab{
	{ID: "general", Title: "General"},
	{ID: "progress", Title: "Progress"},
	{ID: "breakdown", Title: "Departments"},
	{ID: "areas", Title: "Areas"},
	{ID: "map", Title: "Map"},
}

type sortLink struct {
	Name       string
	Href       string
	Active     bool
	Descending bool
}

type breakdownView struct {
	Columns []sortLink
	Rows    [][]string
}

type mapView struct {
	Available bool
}

type countsView struct {
	Area       internal.Area
	Normalized pipeline.Normalized
	Tiles      []pipeline.Tile
	ExportURL  string
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sortCol := q.Get("sort")
	desc := q.Get("desc") == "1"

	general := a.report.General()
	progress := a.report.Progress()
	breakdown := a.report.Breakdown(sortCol, desc)
	overview := a.report.Overview()
	_, mapAdv := a.report.MapPath()

	var progressChart, totalsChart *Figure
	if !progress.Series.Empty() {
		fig := seriesFigure(progress.Series)
		progressChart = &fig
	}
	if len(overview.Totals) > 0 {
		fig := totalsFigure(overview.Totals)
		totalsChart = &fig
	}

	p := page{
		Title: pageTitle,
		Tabs:  indexTabs,
		Sections: []template.HTML{
			a.renderSection("section_general", sectionView{ID: "general", Title: "General indicators", Advisories: general.Advisories, Data: general.Tiles}),
			a.renderSection("section_progress", sectionView{ID: "progress", Title: "Daily progress", Advisories: progress.Advisories, Chart: progressChart}),
			a.renderSection("section_breakdown", sectionView{ID: "breakdown", Title: "Department / province / area", Advisories: breakdown.Advisories, Data: newBreakdownView(breakdown.Table)}),
			a.renderSection("section_areas", sectionView{ID: "areas", Title: "Areas", Advisories: overview.Advisories, Data: overview.Totals, Chart: totalsChart}),
			a.renderSection("section_map", sectionView{ID: "map", Title: "Map", Advisories: mapAdv, Data: mapView{Available: len(mapAdv) == 0}}),
		},
	}
	a.renderPage(w, http.StatusOK, "index.html", p)
}

func newBreakdownView(b pipeline.Breakdown) breakdownView {
	v := breakdownView{Rows: b.Rows}
	for _, col := range b.Columns {
		active := col == b.SortColumn
		nextDesc := "0"
		if active && !b.Descending {
			nextDesc = "1"
		}
		v.Columns = append(v.Columns, sortLink{
			Name:       col,
			Href:       "/?sort=" + url.QueryEscape(col) + "&desc=" + nextDesc + "#breakdown",
			Active:     active,
			Descending: active && b.Descending,
		})
	}
	return v
}

// lookupArea resolves the {label} route parameter against the areas
// currently on disk.
func (a *App) lookupArea(r *http.Request) (internal.Area, bool) {
	label := chi.URLParam(r, "label")
	if unescaped, err := url.PathUnescape(label); err == nil {
		label = unescaped
	}
	areas, _ := a.report.Areas()
	return pipeline.FindArea(areas, label)
}

func (a *App) handleArea(w http.ResponseWriter, r *http.Request) {
	area, ok := a.lookupArea(r)
	if !ok {
		a.renderNotice(w, http.StatusNotFound, "Unknown area", internal.Advisory{
			Level:   internal.LevelWarning,
			Source:  "areas",
			Message: fmt.Sprintf("no area named %q", chi.URLParam(r, "label")),
		})
		return
	}

	counts := a.report.Counts(area)
	heat := a.report.HeatmapSection(area)

	var countsChart, heatChart *Figure
	if len(counts.Normalized.Records) > 0 {
		fig := countsFigure(area.Label, counts.Normalized.Records)
		countsChart = &fig
	}
	if heat.Heatmap != nil {
		fig := heatmapFigure(*heat.Heatmap)
		heatChart = &fig
	}

	sections := []template.HTML{
		a.renderSection("section_counts", sectionView{
			ID:         "counts",
			Title:      "Records per surveyor",
			Advisories: counts.Advisories,
			Data: countsView{
				Area:       area,
				Normalized: counts.Normalized,
				Tiles:      counts.Tiles,
				ExportURL:  "/areas/" + url.PathEscape(area.Label) + "/export.xlsx",
			},
			Chart: countsChart,
		}),
		a.renderSection("section_heatmap", sectionView{ID: "heatmap", Title: "Daily progress by surveyor", Advisories: heat.Advisories, Chart: heatChart}),
	}
	if a.db != nil {
		sections = append(sections, a.historySection(area))
	}

	a.renderPage(w, http.StatusOK, "area.html", page{Title: pageTitle, Subtitle: area.Label, Sections: sections})
}

func (a *App) historySection(area internal.Area) template.HTML {
	view := sectionView{ID: "history", Title: "Snapshot history"}
	list, err := a.db.ListSnapshots(area.Label, historyLimit)
	if err != nil {
		view.Advisories = append(view.Advisories, internal.Advisory{Level: internal.LevelError, Source: "history", Message: err.Error()})
		return a.renderSection("section_history", view)
	}
	view.Data = list
	if len(list) > 1 {
		x := make([]string, 0, len(list))
		y := make([]int, 0, len(list))
		for i := len(list) - 1; i >= 0; i-- {
			x = append(x, list[i].CreatedAt)
			y = append(y, list[i].Total)
		}
		view.Chart = &Figure{
			Data:   []Trace{{Type: "scatter", Mode: "lines+markers", X: x, Y: y}},
			Layout: Layout{Title: "Total records over time", XAxis: Axis{Type: "date"}},
		}
	}
	return a.renderSection("section_history", view)
}

func (a *App) handleAreaExport(w http.ResponseWriter, r *http.Request) {
	area, ok := a.lookupArea(r)
	if !ok {
		http.Error(w, "unknown area", http.StatusNotFound)
		return
	}
	n, adv := a.report.NormalizeArea(area)
	logger := a.logger.With(zap.String("area", area.Label))
	if !n.Recognized() {
		logger.Warn("export of unrecognized area", zap.Int("advisories", len(adv)))
	}

	dir, err := os.MkdirTemp("", "avance-export-")
	if err != nil {
		http.Error(w, "Failed to export", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	name := util.SnakeLower(area.Label) + ".xlsx"
	out := filepath.Join(dir, name)
	if err := pipeline.ExportCountsToXLSX(area.Label, n.Records, out); err != nil {
		logger.Error("export failed", zap.Error(err))
		http.Error(w, "Failed to export", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, out)
}

type areaResponse struct {
	Area           string                   `json:"area"`
	Kind           internal.SchemaKind      `json:"kind"`
	SurveyorColumn string                   `json:"surveyorColumn,omitempty"`
	SourceColumn   string                   `json:"sourceColumn,omitempty"`
	Total          int                      `json:"total"`
	Records        []internal.SurveyorCount `json:"records"`
	Heatmap        *pipeline.Heatmap        `json:"heatmap,omitempty"`
	Advisories     []internal.Advisory      `json:"advisories"`
}

func (a *App) handleAreaJSON(w http.ResponseWriter, r *http.Request) {
	area, ok := a.lookupArea(r)
	if !ok {
		a.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown area"})
		return
	}
	sec := a.report.Area(area)
	resp := areaResponse{
		Area:           area.Label,
		Kind:           sec.Normalized.Kind,
		SurveyorColumn: sec.Normalized.SurveyorColumn,
		SourceColumn:   sec.Normalized.SourceColumn,
		Total:          sec.Normalized.Total(),
		Records:        sec.Normalized.Records,
		Heatmap:        sec.Heatmap,
		Advisories:     sec.Advisories,
	}
	if resp.Records == nil {
		resp.Records = []internal.SurveyorCount{}
	}
	if resp.Advisories == nil {
		resp.Advisories = []internal.Advisory{}
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleMap(w http.ResponseWriter, r *http.Request) {
	path, adv := a.report.MapPath()
	if len(adv) > 0 {
		a.renderNotice(w, http.StatusNotFound, "Map", adv...)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, path)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"cache":  a.cache.Stats(),
	})
}

func (a *App) handlePurge(w http.ResponseWriter, r *http.Request) {
	a.cache.Purge()
	a.logger.Info("workbook cache purged")

	if target := r.FormValue("redirect"); localRedirect(target) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]bool{"purged": true})
}

// localRedirect accepts same-origin paths only. Browsers read "//host" and
// "/\host" as protocol-relative.
func localRedirect(target string) bool {
	if !strings.HasPrefix(target, "/") || len(target) > 1 && (target[1] == '/' || target[1] == '\\') {
		return false
	}
	return !strings.ContainsAny(target, "\r\n")
}

func (a *App) renderNotice(w http.ResponseWriter, status int, title string, adv ...internal.Advisory) {
	section := a.renderSection("section_notice", sectionView{ID: "notice", Title: title, Advisories: adv})
	a.renderPage(w, status, "area.html", page{Title: pageTitle, Subtitle: title, Sections: []template.HTML{section}})
}
