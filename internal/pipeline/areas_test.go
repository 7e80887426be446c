package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"avance/internal"
)

func TestAreaLabel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "mcp_san_juan.xlsx", want: "SAN JUAN"},
		{in: "/data/MCP_norte.csv", want: "NORTE"},
		{in: "mcp_la__playa.xls", want: "LA PLAYA"},
	}
	for _, tc := range cases {
		if got := AreaLabel("mcp_", tc.in); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.in, got, tc.want)
		}
	}
	if got := HeatmapFile("SAN JUAN"); got != "san_juan.xlsx" {
		t.Fatalf("heatmap file=%s", got)
	}
}

func TestDiscoverAreas(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"mcp_sur.xlsx", "mcp_norte.csv", "mcp_.xlsx", "~$mcp_lock.xlsx", "mcp_notes.txt", "avance_diario.xlsx"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "mcp_dir.xlsx"), 0o755); err != nil {
		t.Fatal(err)
	}

	areas, adv, err := DiscoverAreas(dir, "mcp_")
	if err != nil {
		t.Fatal(err)
	}
	if len(areas) != 2 || len(adv) != 0 {
		t.Fatalf("areas=%+v", areas)
	}
	if areas[0].Label != "NORTE" || areas[1].Label != "SUR" {
		t.Fatalf("labels=%s,%s", areas[0].Label, areas[1].Label)
	}
	if areas[1].HeatmapPath != filepath.Join(dir, "sur.xlsx") {
		t.Fatalf("heatmap=%s", areas[1].HeatmapPath)
	}

	if a, ok := FindArea(areas, " sur "); !ok || a.Label != "SUR" {
		t.Fatalf("find=%+v %v", a, ok)
	}
	if _, _, err := DiscoverAreas(filepath.Join(dir, "absent"), "mcp_"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDiscoverAreasDuplicateLabels(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"mcp_norte.csv", "mcp_norte.xlsx", "MCP_Norte.xls", "mcp_sur.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	areas, adv, err := DiscoverAreas(dir, "mcp_")
	if err != nil {
		t.Fatal(err)
	}
	if len(areas) != 2 || areas[0].Label != "NORTE" || areas[1].Label != "SUR" {
		t.Fatalf("areas=%+v", areas)
	}
	if areas[0].Path != filepath.Join(dir, "mcp_norte.xlsx") {
		t.Fatalf("kept=%s", areas[0].Path)
	}
	if len(adv) != 2 {
		t.Fatalf("advisories=%+v", adv)
	}
	for _, a := range adv {
		if a.Level != internal.LevelWarning || !strings.Contains(a.Message, "mcp_norte.xlsx") {
			t.Fatalf("advisory=%+v", a)
		}
	}
}
