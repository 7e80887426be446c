package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"avance/internal"
	"avance/internal/config"
	"avance/internal/workbook"
)

// Report assembles dashboard sections from the data directory. Every
// section carries its own advisories; nothing here fails the whole page.
type Report struct {
	cfg   config.Config
	cache *workbook.Cache
}

func NewReport(cfg config.Config, cache *workbook.Cache) *Report {
	return &Report{cfg: cfg, cache: cache}
}

type GeneralSection struct {
	Tiles      []Tile
	Advisories []internal.Advisory
}

type ProgressSection struct {
	Series     Series
	Advisories []internal.Advisory
}

type BreakdownSection struct {
	Table      Breakdown
	Advisories []internal.Advisory
}

type AreaSection struct {
	Area       internal.Area
	Normalized Normalized
	Tiles      []Tile
	Heatmap    *Heatmap
	Advisories []internal.Advisory
}

type CountsSection struct {
	Normalized Normalized
	Tiles      []Tile
	Advisories []internal.Advisory
}

type HeatmapSection struct {
	Heatmap    *Heatmap
	Advisories []internal.Advisory
}

type AreaTotal struct {
	Label     string              `json:"label"`
	Kind      internal.SchemaKind `json:"kind"`
	Surveyors int                 `json:"surveyors"`
	Total     int                 `json:"total"`
}

type OverviewSection struct {
	Areas      []internal.Area
	Totals     []AreaTotal
	Advisories []internal.Advisory
}

func (r *Report) General() (out GeneralSection) {
	out.Tiles = []Tile{}
	defer guard("general indicators", &out.Advisories)

	path := r.cfg.DataPath(r.cfg.IndicatorsFile)
	t, adv := r.loadTable(path)
	out.Advisories = append(out.Advisories, adv...)
	out.Tiles = BuildIndicators(t)
	return out
}

func (r *Report) Progress() (out ProgressSection) {
	defer guard("progress", &out.Advisories)

	path := r.cfg.DataPath(r.cfg.ProgressFile)
	t, adv := r.loadTable(path)
	out.Advisories = append(out.Advisories, adv...)
	if t.Empty() {
		return out
	}
	series, err := BuildSeries(t)
	if err != nil {
		out.Advisories = append(out.Advisories, errorAdvisory(path, err))
		return out
	}
	out.Series = series
	return out
}

func (r *Report) Breakdown(sortColumn string, descending bool) (out BreakdownSection) {
	defer guard("breakdown", &out.Advisories)

	path := r.cfg.DataPath(r.cfg.BreakdownFile)
	t, adv := r.loadTable(path)
	out.Advisories = append(out.Advisories, adv...)
	if len(t.Columns) == 0 {
		sortColumn = ""
	}
	table, err := BuildBreakdown(t, sortColumn, descending)
	if err != nil {
		out.Advisories = append(out.Advisories, errorAdvisory(path, err))
		table, _ = BuildBreakdown(t, "", false)
	}
	out.Table = table
	return out
}

func (r *Report) Areas() ([]internal.Area, []internal.Advisory) {
	areas, adv, err := DiscoverAreas(r.cfg.DataDir, r.cfg.AreaFilePrefix)
	if err != nil {
		return []internal.Area{}, []internal.Advisory{{
			Level:   internal.LevelWarning,
			Source:  r.cfg.DataDir,
			Message: fmt.Sprintf("could not list area files: %v", err),
		}}
	}
	return areas, adv
}

// Overview normalizes every area and reports its totals.
func (r *Report) Overview() (out OverviewSection) {
	defer guard("areas", &out.Advisories)

	areas, adv := r.Areas()
	out.Areas = areas
	out.Advisories = append(out.Advisories, adv...)
	out.Totals = make([]AreaTotal, 0, len(areas))
	for _, a := range areas {
		n, nadv := r.NormalizeArea(a)
		out.Advisories = append(out.Advisories, nadv...)
		out.Totals = append(out.Totals, AreaTotal{Label: a.Label, Kind: n.Kind, Surveyors: len(n.Records), Total: n.Total()})
	}
	return out
}

// NormalizeArea loads an area workbook and normalizes it. A load failure is
// an advisory and the area counts as zero records.
func (r *Report) NormalizeArea(a internal.Area) (Normalized, []internal.Advisory) {
	t, adv := r.loadTable(a.Path)
	n := NormalizeSurveyors(filepath.Base(a.Path), t)
	return n, append(adv, n.Advisories...)
}

// Area combines the counts and heatmap sections of one area.
func (r *Report) Area(a internal.Area) AreaSection {
	counts := r.Counts(a)
	heat := r.HeatmapSection(a)
	return AreaSection{
		Area:       a,
		Normalized: counts.Normalized,
		Tiles:      counts.Tiles,
		Heatmap:    heat.Heatmap,
		Advisories: append(counts.Advisories, heat.Advisories...),
	}
}

func (r *Report) Counts(a internal.Area) (out CountsSection) {
	defer guard("area "+a.Label, &out.Advisories)

	n, adv := r.NormalizeArea(a)
	out.Normalized = n
	out.Advisories = append(out.Advisories, adv...)
	out.Tiles = SurveyorTiles(n.Records)
	return out
}

func (r *Report) HeatmapSection(a internal.Area) (out HeatmapSection) {
	defer guard("heatmap "+a.Label, &out.Advisories)

	out.Heatmap, out.Advisories = r.Heatmap(a)
	return out
}

// Heatmap returns nil with an advisory when the area has no usable
// crosstab/annot workbook.
func (r *Report) Heatmap(a internal.Area) (*Heatmap, []internal.Advisory) {
	name := filepath.Base(a.HeatmapPath)
	if _, err := os.Stat(a.HeatmapPath); err != nil {
		return nil, []internal.Advisory{{
			Level:   internal.LevelInfo,
			Source:  name,
			Message: fmt.Sprintf("no %s file in the data directory", name),
		}}
	}

	crosstab, err := r.cache.GetSheet(a.HeatmapPath, CrosstabSheet)
	var annot internal.Table
	if err == nil {
		annot, err = r.cache.GetSheet(a.HeatmapPath, AnnotSheet)
	}
	var hm Heatmap
	if err == nil {
		hm, err = BuildHeatmap(a.Label, crosstab, annot, r.cfg.HeatmapZMax)
	}

	switch {
	case err == nil:
		return &hm, nil
	case errors.Is(err, ErrEmptyHeatmap), errors.Is(err, workbook.ErrSheetNotFound):
		return nil, []internal.Advisory{{
			Level:   internal.LevelWarning,
			Source:  name,
			Message: fmt.Sprintf("sheets %q or %q are missing or empty", CrosstabSheet, AnnotSheet),
		}}
	default:
		return nil, []internal.Advisory{{
			Level:   internal.LevelError,
			Source:  name,
			Message: fmt.Sprintf("error processing heatmap for %s: %v", a.Label, err),
		}}
	}
}

// MapPath returns the static map file, or an advisory when it is missing.
func (r *Report) MapPath() (string, []internal.Advisory) {
	path := r.cfg.DataPath(r.cfg.MapFile)
	if _, err := os.Stat(path); err != nil {
		return "", []internal.Advisory{{
			Level:   internal.LevelInfo,
			Source:  filepath.Base(path),
			Message: "map file not found",
		}}
	}
	return path, nil
}

func (r *Report) loadTable(path string) (internal.Table, []internal.Advisory) {
	loaded, err := r.cache.Get(path)
	if err != nil {
		return internal.Table{}, []internal.Advisory{{
			Level:   internal.LevelWarning,
			Source:  filepath.Base(path),
			Message: fmt.Sprintf("could not load file: %v", err),
		}}
	}
	return internal.FirstTable(loaded), nil
}

func errorAdvisory(path string, err error) internal.Advisory {
	return internal.Advisory{Level: internal.LevelError, Source: filepath.Base(path), Message: err.Error()}
}

// guard turns a panic inside a section builder into a section-local error.
func guard(section string, advisories *[]internal.Advisory) {
	if rec := recover(); rec != nil {
		*advisories = append(*advisories, internal.Advisory{
			Level:   internal.LevelError,
			Source:  section,
			Message: fmt.Sprintf("section failed: %v", rec),
		})
	}
}
