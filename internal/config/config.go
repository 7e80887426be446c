package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir        string
	AreaFilePrefix string
	IndicatorsFile string
	ProgressFile   string
	BreakdownFile  string
	MapFile        string

	DBPath    string
	OutputDir string

	ListenAddr   string
	WatchDataDir bool
	HeatmapZMax  float64

	SnapshotIntervalSec int

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	dataDir := getEnv("DATA_DIR", filepath.Join(cwd, "data"))
	cfg := Config{
		DataDir:        dataDir,
		AreaFilePrefix: getEnv("AREA_FILE_PREFIX", "mcp_"),
		IndicatorsFile: getEnv("INDICATORS_FILE", "indicadores_generales.xlsx"),
		ProgressFile:   getEnv("PROGRESS_FILE", "avance_diario.xlsx"),
		BreakdownFile:  getEnv("BREAKDOWN_FILE", "departamento_provincia_mcp.xlsx"),
		MapFile:        getEnv("MAP_FILE", "mapa.html"),

		DBPath:    getEnv("DB_PATH", filepath.Join(dataDir, "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		ListenAddr:   getEnv("LISTEN_ADDR", ":8501"),
		WatchDataDir: getEnvBool("WATCH_DATA_DIR", true),
		HeatmapZMax:  getEnvFloat("HEATMAP_ZMAX", 30),

		SnapshotIntervalSec: getEnvInt("SNAPSHOT_INTERVAL_SEC", 300),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	return cfg, nil
}

// DataPath resolves a file name relative to the data directory.
func (c Config) DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// OutputPath resolves a file name relative to the output directory.
func (c Config) OutputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.OutputDir, name)
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
