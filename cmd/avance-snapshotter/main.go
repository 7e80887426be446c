package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"avance/internal/config"
	"avance/internal/listener"
	"avance/internal/logging"
	"avance/internal/storage"
	"avance/internal/workbook"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(cfg.Require("DB_PATH", cfg.DBPath))

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	must(err)
	defer func() { _ = logger.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := listener.NewService(db, cfg, workbook.NewCache(), logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
