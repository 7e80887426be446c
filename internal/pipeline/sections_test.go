package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"avance/internal"
)

func TestBuildIndicatorsPairs(t *testing.T) {
	tbl := internal.Table{
		Columns: []string{"Indicador", "Valor"},
		Rows:    [][]any{{"Viviendas", "12345"}, {"", "9"}, {"Avance", "85%"}, {"Meta", nil}},
	}
	got := BuildIndicators(tbl)
	want := []Tile{{Label: "Viviendas", Value: "12.345"}, {Label: "Avance", Value: "85%"}, {Label: "Meta", Value: "-"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tiles=%+v", got)
	}
}

func TestBuildIndicatorsColumns(t *testing.T) {
	tbl := internal.Table{
		Columns: []string{"Registrados", "Pendientes"},
		Rows:    [][]any{{1500, 2.5}},
	}
	got := BuildIndicators(tbl)
	want := []Tile{{Label: "Registrados", Value: "1.500"}, {Label: "Pendientes", Value: "2.50"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tiles=%+v", got)
	}
	if len(BuildIndicators(internal.Table{})) != 0 {
		t.Fatal("empty table should give no tiles")
	}
}

func TestSurveyorTiles(t *testing.T) {
	got := SurveyorTiles([]internal.SurveyorCount{{Surveyor: "Ana", TotalRecords: 3}, {Surveyor: "Luis", TotalRecords: 2}, {Surveyor: "Eva", TotalRecords: 10}})
	want := []Tile{
		{Label: "Total records", Value: "15"},
		{Label: "Surveyors", Value: "3"},
		{Label: "Mean per surveyor", Value: "5.0"},
		{Label: "Median per surveyor", Value: "3.0"},
		{Label: "Max per surveyor", Value: "10"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tiles=%+v", got)
	}
	if len(SurveyorTiles(nil)) != 2 {
		t.Fatal("empty records should give the two count tiles")
	}
}

func TestBuildSeries(t *testing.T) {
	tbl := internal.Table{
		Columns: []string{"Avance", "Fecha", "Nota", "Meta"},
		Rows: [][]any{
			{"20", "2024-05-02", "ok", "50"},
			{"10", "2024-05-01", "ok", ""},
			{"x", "sin fecha", "", "1"},
		},
	}
	got, err := BuildSeries(tbl)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Dates, []string{"2024-05-01", "2024-05-02"}) {
		t.Fatalf("dates=%v", got.Dates)
	}
	if len(got.Lines) != 2 || got.Lines[0].Name != "Avance" || got.Lines[1].Name != "Meta" {
		t.Fatalf("lines=%+v", got.Lines)
	}
	if *got.Lines[0].Values[0] != 10 || *got.Lines[0].Values[1] != 20 {
		t.Fatalf("avance=%v", got.Lines[0].Values)
	}
	if got.Lines[1].Values[0] != nil || *got.Lines[1].Values[1] != 50 {
		t.Fatalf("meta=%v", got.Lines[1].Values)
	}

	if _, err := BuildSeries(internal.Table{Columns: []string{"a"}, Rows: [][]any{{"zz"}}}); err == nil {
		t.Fatal("expected error without dates")
	}
}

func TestBuildBreakdownSort(t *testing.T) {
	tbl := internal.Table{
		Columns: []string{"Departamento", "Provincia", "Registros"},
		Rows: [][]any{
			{"Lima", "Lima", "1.200"},
			{"Cusco", "Urubamba", 90},
			{"Puno", "Puno", ""},
			{"Piura", "Sullana", "300"},
		},
	}

	got, err := BuildBreakdown(tbl, " registros ", true)
	if err != nil {
		t.Fatal(err)
	}
	order := []string{}
	for _, r := range got.Rows {
		order = append(order, r[0])
	}
	if !reflect.DeepEqual(order, []string{"Lima", "Piura", "Cusco", "Puno"}) {
		t.Fatalf("order=%v", order)
	}
	if got.SortColumn != "Registros" {
		t.Fatalf("sort column=%s", got.SortColumn)
	}

	got, err = BuildBreakdown(tbl, "departamento", false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rows[0][0] != "Cusco" || got.Rows[3][0] != "Puno" {
		t.Fatalf("rows=%v", got.Rows)
	}

	unsorted, err := BuildBreakdown(tbl, "", false)
	if err != nil || unsorted.Rows[0][0] != "Lima" {
		t.Fatalf("unsorted=%v err=%v", unsorted.Rows, err)
	}

	if _, err := BuildBreakdown(tbl, "mcp", false); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("err=%v", err)
	}
}
