package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("HEATMAP_ZMAX", "")
	t.Setenv("WATCH_DATA_DIR", "off")
	t.Setenv("SNAPSHOT_INTERVAL_SEC", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != dir {
		t.Fatalf("DataDir=%s", cfg.DataDir)
	}
	if cfg.DBPath != filepath.Join(dir, "app.db") {
		t.Fatalf("DBPath=%s", cfg.DBPath)
	}
	if cfg.HeatmapZMax != 30 {
		t.Fatalf("HeatmapZMax=%v", cfg.HeatmapZMax)
	}
	if cfg.WatchDataDir {
		t.Fatal("WatchDataDir should be off")
	}
	if cfg.SnapshotIntervalSec != 300 {
		t.Fatalf("SnapshotIntervalSec=%d", cfg.SnapshotIntervalSec)
	}
	if got := cfg.DataPath("x.xlsx"); got != filepath.Join(dir, "x.xlsx") {
		t.Fatalf("DataPath=%s", got)
	}
}

func TestOutputPath(t *testing.T) {
	out := t.TempDir()
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("OUTPUT_DIR", out)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.OutputPath("norte.xlsx"); got != filepath.Join(out, "norte.xlsx") {
		t.Fatalf("OutputPath=%s", got)
	}
	abs := filepath.Join(t.TempDir(), "elsewhere.xlsx")
	if got := cfg.OutputPath(abs); got != abs {
		t.Fatalf("OutputPath=%s", got)
	}
}
