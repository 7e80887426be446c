package pipeline

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"avance/internal"
	"avance/internal/config"
	"avance/internal/workbook"
)

type sheet struct {
	name string
	rows [][]any
}

func writeBook(t *testing.T, path string, sheets ...sheet) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			t.Fatal(err)
		}
		for r, row := range s.rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				_ = f.SetCellValue(s.name, cell, v)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return f
}

// numFmt applies a custom number format to cells of an already written book
// and saves it again.
func numFmt(t *testing.T, f *excelize.File, path, sheet, format string, cells ...string) {
	t.Helper()
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		t.Fatal(err)
	}
	for _, cell := range cells {
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func testReport(t *testing.T) (*Report, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		DataDir:        dir,
		AreaFilePrefix: "mcp_",
		IndicatorsFile: "indicadores_generales.xlsx",
		ProgressFile:   "avance_diario.xlsx",
		BreakdownFile:  "departamento_provincia_mcp.xlsx",
		MapFile:        "mapa.html",
		HeatmapZMax:    30,
	}
	return NewReport(cfg, workbook.NewCache()), dir
}

func TestReportMissingFilesAreAdvisories(t *testing.T) {
	r, _ := testReport(t)

	general := r.General()
	if len(general.Tiles) != 0 || len(general.Advisories) != 1 {
		t.Fatalf("general=%+v", general)
	}
	if adv := general.Advisories[0]; adv.Level != internal.LevelWarning || adv.Source != "indicadores_generales.xlsx" {
		t.Fatalf("advisory=%+v", adv)
	}

	progress := r.Progress()
	if !progress.Series.Empty() || len(progress.Advisories) != 1 {
		t.Fatalf("progress=%+v", progress)
	}

	breakdown := r.Breakdown("Registros", true)
	if len(breakdown.Table.Rows) != 0 || len(breakdown.Advisories) != 1 {
		t.Fatalf("breakdown=%+v", breakdown)
	}

	path, adv := r.MapPath()
	if path != "" || len(adv) != 1 || adv[0].Level != internal.LevelInfo {
		t.Fatalf("map=%q %+v", path, adv)
	}
}

func TestReportSections(t *testing.T) {
	r, dir := testReport(t)
	writeBook(t, filepath.Join(dir, "indicadores_generales.xlsx"), sheet{"Hoja1", [][]any{
		{"Indicador", "Valor"},
		{"Viviendas", 1200},
	}})
	writeBook(t, filepath.Join(dir, "avance_diario.xlsx"), sheet{"Hoja1", [][]any{
		{"Fecha", "Registros"},
		{"2024-05-02", 20},
		{"2024-05-01", 10},
	}})
	writeBook(t, filepath.Join(dir, "departamento_provincia_mcp.xlsx"), sheet{"Hoja1", [][]any{
		{"Departamento", "Registros"},
		{"Lima", 5},
		{"Cusco", 9},
	}})
	if err := os.WriteFile(filepath.Join(dir, "mapa.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	general := r.General()
	if len(general.Advisories) != 0 || !reflect.DeepEqual(general.Tiles, []Tile{{Label: "Viviendas", Value: "1.200"}}) {
		t.Fatalf("general=%+v", general)
	}

	progress := r.Progress()
	if len(progress.Advisories) != 0 || !reflect.DeepEqual(progress.Series.Dates, []string{"2024-05-01", "2024-05-02"}) {
		t.Fatalf("progress=%+v", progress)
	}

	breakdown := r.Breakdown("registros", true)
	if len(breakdown.Advisories) != 0 || breakdown.Table.Rows[0][0] != "Cusco" {
		t.Fatalf("breakdown=%+v", breakdown)
	}

	unknown := r.Breakdown("nope", true)
	if len(unknown.Advisories) != 1 || unknown.Advisories[0].Level != internal.LevelError {
		t.Fatalf("advisories=%+v", unknown.Advisories)
	}
	if unknown.Table.Rows[0][0] != "Lima" {
		t.Fatalf("unsorted fallback=%+v", unknown.Table.Rows)
	}

	path, adv := r.MapPath()
	if len(adv) != 0 || path != filepath.Join(dir, "mapa.html") {
		t.Fatalf("map=%q %+v", path, adv)
	}
}

func TestReportAreaWithHeatmap(t *testing.T) {
	r, dir := testReport(t)
	writeBook(t, filepath.Join(dir, "mcp_norte.xlsx"), sheet{"Hoja1", [][]any{
		{"usuario", "dni"},
		{"Ana", "1"},
		{"Luis", "2"},
		{"Ana", "3"},
	}})
	writeBook(t, filepath.Join(dir, "norte.xlsx"),
		sheet{CrosstabSheet, [][]any{{"empadronador", "2024-05-01"}, {"Ana", 2}, {"Luis", 1}}},
		sheet{AnnotSheet, [][]any{{"empadronador", "2024-05-01"}, {"Ana", "2"}, {"Luis", "1"}}},
	)

	areas, adv := r.Areas()
	if len(adv) != 0 || len(areas) != 1 {
		t.Fatalf("areas=%+v adv=%+v", areas, adv)
	}

	sec := r.Area(areas[0])
	if len(sec.Advisories) != 0 || sec.Normalized.Kind != internal.SchemaRaw {
		t.Fatalf("section=%+v", sec)
	}
	want := []internal.SurveyorCount{{Surveyor: "Ana", TotalRecords: 2}, {Surveyor: "Luis", TotalRecords: 1}}
	if !reflect.DeepEqual(sec.Normalized.Records, want) {
		t.Fatalf("records=%+v", sec.Normalized.Records)
	}
	if sec.Heatmap == nil || !reflect.DeepEqual(sec.Heatmap.Surveyors, []string{"Ana", "Luis"}) {
		t.Fatalf("heatmap=%+v", sec.Heatmap)
	}

	overview := r.Overview()
	if len(overview.Totals) != 1 {
		t.Fatalf("totals=%+v", overview.Totals)
	}
	if got := overview.Totals[0]; got != (AreaTotal{Label: "NORTE", Kind: internal.SchemaRaw, Surveyors: 2, Total: 3}) {
		t.Fatalf("total=%+v", got)
	}
}

func TestReportHeatmapAdvisories(t *testing.T) {
	r, dir := testReport(t)
	area := internal.Area{Label: "SUR", Path: filepath.Join(dir, "mcp_sur.xlsx"), HeatmapPath: filepath.Join(dir, "sur.xlsx")}

	hm, adv := r.Heatmap(area)
	if hm != nil || len(adv) != 1 || adv[0].Level != internal.LevelInfo {
		t.Fatalf("hm=%+v adv=%+v", hm, adv)
	}

	writeBook(t, area.HeatmapPath, sheet{"Hoja1", [][]any{{"a"}, {"b"}}})
	hm, adv = r.Heatmap(area)
	if hm != nil || len(adv) != 1 || adv[0].Level != internal.LevelWarning {
		t.Fatalf("hm=%+v adv=%+v", hm, adv)
	}

	// The area file itself is missing: counts are empty, the section still renders.
	sec := r.Area(area)
	if sec.Normalized.Kind != internal.SchemaUnrecognized || len(sec.Advisories) == 0 {
		t.Fatalf("section=%+v", sec)
	}
}

func TestReportTotalsIgnoreNumberFormat(t *testing.T) {
	r, dir := testReport(t)
	path := filepath.Join(dir, "mcp_norte.xlsx")
	f := writeBook(t, path, sheet{"Hoja1", [][]any{
		{"empadronador", "total registros"},
		{"Ana", 2.6},
		{"Luis", 1.5},
		{"Rosa", 1234.0},
	}})
	numFmt(t, f, path, "Hoja1", "0", "B2")
	numFmt(t, f, path, "Hoja1", "0.000", "B3")
	numFmt(t, f, path, "Hoja1", "#,##0", "B4")

	n, adv := r.NormalizeArea(internal.Area{Label: "NORTE", Path: path})
	if len(adv) != 0 || n.Kind != internal.SchemaAggregated {
		t.Fatalf("kind=%s adv=%+v", n.Kind, adv)
	}
	want := []internal.SurveyorCount{
		{Surveyor: "Ana", TotalRecords: 2},
		{Surveyor: "Luis", TotalRecords: 1},
		{Surveyor: "Rosa", TotalRecords: 1234},
	}
	if !reflect.DeepEqual(n.Records, want) {
		t.Fatalf("records=%+v", n.Records)
	}
}

func TestReportHeatmapDateTypedHeaders(t *testing.T) {
	r, dir := testReport(t)
	area := internal.Area{Label: "NORTE", Path: filepath.Join(dir, "mcp_norte.xlsx"), HeatmapPath: filepath.Join(dir, "norte.xlsx")}
	may3 := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	may1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	f := writeBook(t, area.HeatmapPath,
		sheet{CrosstabSheet, [][]any{{"empadronador", may3, may1}, {"Ana", 4, 2}}},
		sheet{AnnotSheet, [][]any{{"empadronador", may3, may1}, {"Ana", "4", "2*"}}},
	)
	numFmt(t, f, area.HeatmapPath, CrosstabSheet, "dd-mmm", "B1", "C1")
	numFmt(t, f, area.HeatmapPath, AnnotSheet, "dd-mmm", "B1", "C1")

	hm, adv := r.Heatmap(area)
	if len(adv) != 0 || hm == nil {
		t.Fatalf("hm=%+v adv=%+v", hm, adv)
	}
	if !reflect.DeepEqual(hm.Dates, []string{"01/05/2024", "03/05/2024"}) {
		t.Fatalf("dates=%v", hm.Dates)
	}
	if *hm.Values[0][0] != 2 || *hm.Values[0][1] != 4 {
		t.Fatalf("values=%v %v", *hm.Values[0][0], *hm.Values[0][1])
	}
	if !reflect.DeepEqual(hm.Annotations[0], []string{"2*", "4"}) {
		t.Fatalf("annotations=%v", hm.Annotations[0])
	}
}
