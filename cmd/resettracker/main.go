package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"ResetTracker/internal/app"
	"ResetTracker/internal/config"
	"ResetTracker/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run the pipeline once and exit")
	resync := flag.Bool("resync", false, "purge and rewrite each location's records from this run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *resync {
		cfg.Pipeline.Mode = "resync"
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application failed to start", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if *once {
		if _, err := application.RunOnce(ctx); err != nil {
			logger.Error("run failed", "error", err)
			application.Close()
			os.Exit(1)
		}
		return
	}

	if err := application.Serve(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		application.Close()
		os.Exit(1)
	}
}
