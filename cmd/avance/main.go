package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"avance/internal"
	"avance/internal/config"
	"avance/internal/dashboard"
	"avance/internal/listener"
	"avance/internal/logging"
	"avance/internal/pipeline"
	"avance/internal/storage"
	"avance/internal/util"
	"avance/internal/workbook"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(cfg.Require("DATA_DIR", cfg.DataDir))

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	must(err)
	defer func() { _ = logger.Sync() }()

	cache := workbook.NewCache()
	report := pipeline.NewReport(cfg, cache)

	cmd := os.Args[1]
	switch cmd {
	case "serve":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		addr := fs.String("addr", cfg.ListenAddr, "listen address")
		withHistory := fs.Bool("history", true, "show snapshot history on area pages")
		_ = fs.Parse(os.Args[2:])

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		var db *storage.DB
		if *withHistory {
			db, err = storage.Open(cfg.DBPath)
			must(err)
			defer db.Close()
		}

		if cfg.WatchDataDir {
			w, err := workbook.NewWatcher(cfg.DataDir, cache, logger)
			if err != nil {
				logger.Warn("data dir watcher disabled", zap.String("dir", cfg.DataDir), zap.Error(err))
			} else {
				go func() {
					if err := w.Run(ctx); err != nil {
						logger.Error("data dir watcher stopped", zap.Error(err))
					}
				}()
			}
		}

		app, err := dashboard.NewApp(cfg, cache, db, logger)
		must(err)
		must(app.ListenAndServe(ctx, *addr))
	case "normalize":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "area workbook path (.xlsx, .xls, .csv)")
		asJSON := fs.Bool("json", false, "print JSON instead of a table")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		loaded, err := workbook.Load(*input)
		must(err)
		n := pipeline.NormalizeSurveyors(filepath.Base(*input), internal.FirstTable(loaded))
		logging.Advisories(logger, n.Advisories)
		if *asJSON {
			printJSON(n)
			return
		}
		fmt.Printf("schema=%s records=%d\n", n.Kind, n.Total())
		printCounts(n.Records)
	case "areas":
		areas, adv := report.Areas()
		logging.Advisories(logger, adv)
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "AREA\tSCHEMA\tSURVEYORS\tTOTAL\tFILE")
		for _, a := range areas {
			n, nadv := report.NormalizeArea(a)
			logging.Advisories(logger.With(zap.String("area", a.Label)), nadv)
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", a.Label, n.Kind, len(n.Records), n.Total(), filepath.Base(a.Path))
		}
		must(tw.Flush())
	case "snapshot":
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		svc := listener.NewService(db, cfg, cache, logger)
		rows, err := svc.RunCycle(context.Background())
		must(err)
		fmt.Printf("snapshot done areas=%d\n", len(rows))
	case "history":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		area := fs.String("area", "", "area label")
		limit := fs.Int("limit", 20, "max snapshots")
		latestRows := fs.Bool("rows", false, "also print the surveyor counts of the latest snapshot")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*area) == "" {
			must(fmt.Errorf("--area is required"))
		}
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		label := strings.ToUpper(util.NormalizeSpaces(*area))
		list, err := db.ListSnapshots(label, *limit)
		must(err)
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TAKEN AT\tSCHEMA\tTOTAL\tID")
		for _, s := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.CreatedAt, s.Kind, s.Total, s.ID)
		}
		must(tw.Flush())
		if *latestRows {
			latest, err := db.LatestSnapshot(label)
			must(err)
			if latest == nil {
				must(fmt.Errorf("no snapshots for area %s", label))
			}
			fmt.Println()
			printCounts(latest.Records)
		}
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		label := fs.String("area", "", "area label")
		out := fs.String("out", "", "output xlsx path (default OUTPUT_DIR/<area>.xlsx)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*label) == "" {
			must(fmt.Errorf("--area is required"))
		}
		areas, adv := report.Areas()
		logging.Advisories(logger, adv)
		area, ok := pipeline.FindArea(areas, *label)
		if !ok {
			must(fmt.Errorf("unknown area: %s", *label))
		}
		if strings.TrimSpace(*out) == "" {
			*out = cfg.OutputPath(util.SnakeLower(area.Label) + ".xlsx")
		}
		n, nadv := report.NormalizeArea(area)
		logging.Advisories(logger, nadv)
		if !n.Recognized() {
			must(fmt.Errorf("area %s has an unrecognized schema", area.Label))
		}
		must(pipeline.ExportCountsToXLSX(area.Label, n.Records, *out))
		fmt.Printf("exported %d surveyors to %s\n", len(n.Records), *out)
	case "snapshot:listen":
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		svc := listener.NewService(db, cfg, cache, logger)
		must(svc.Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

func printCounts(records []internal.SurveyorCount) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", pipeline.SurveyorColumn, pipeline.TotalColumn)
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\n", r.Surveyor, r.TotalRecords)
	}
	must(tw.Flush())
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	must(enc.Encode(v))
}

func usage() {
	fmt.Println("usage: avance <command>")
	fmt.Println("commands:")
	fmt.Println("  serve [--addr=:8501] [--history=true]")
	fmt.Println("  normalize --input=./data/mcp_norte.xlsx [--json]")
	fmt.Println("  areas")
	fmt.Println("  snapshot")
	fmt.Println("  history --area=NORTE [--limit=20] [--rows]")
	fmt.Println("  export:xlsx --area=NORTE [--out=./out/norte.xlsx]")
	fmt.Println("  snapshot:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
