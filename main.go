package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/thushan/switchback/internal/app"
	"github.com/thushan/switchback/internal/env"
	"github.com/thushan/switchback/internal/logger"
	"github.com/thushan/switchback/internal/version"
	"github.com/thushan/switchback/pkg/format"
)

func main() {
	startTime := time.Now()
	vlog := log.New(log.Writer(), "", 0)
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.PrintVersionInfo(true, vlog)
		os.Exit(0)
	}
	version.PrintVersionInfo(false, vlog)

	lcfg := buildLoggerConfig()
	logInstance, styledLogger, cleanup, err := logger.NewWithTheme(lcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	slog.SetDefault(logInstance)

	styledLogger.Info("Initialising", "version", version.Version, "pid", os.Getpid())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(startTime, styledLogger)
	if err != nil {
		logger.Fatal(logInstance, cleanup, logger.ExitSetupFailed, "Failed to create application", "error", err)
	}

	if err := application.Start(ctx); err != nil {
		logger.Fatal(logInstance, cleanup, logger.ExitStartFailed, "Failed to start application", "error", err)
	}

	<-ctx.Done()
	styledLogger.Info("Shutdown signal received")

	if err := application.Stop(context.Background()); err != nil {
		styledLogger.Error("Error during shutdown", "error", err)
	}

	reportProcessStats(styledLogger, startTime)
	styledLogger.Info("Switchback has shutdown")
}

func reportProcessStats(logger logger.StyledLogger, startTime time.Time) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	logger.Info("Process Stats",
		"uptime", format.Duration(time.Since(startTime)),
		"heap_alloc", format.Bytes(mem.HeapAlloc),
		"total_alloc", format.Bytes(mem.TotalAlloc),
		"num_gc", mem.NumGC,
		"goroutines", runtime.NumGoroutine(),
	)
}

// buildLoggerConfig reads logging settings from the environment so logging is
// up before the config file is parsed
func buildLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      env.GetEnvOrDefault("SWITCHBACK_LOG_LEVEL", "info"),
		FileOutput: env.GetEnvBoolOrDefault("SWITCHBACK_FILE_OUTPUT", true),
		LogDir:     env.GetEnvOrDefault("SWITCHBACK_LOG_DIR", "./logs"),
		MaxSize:    env.GetEnvIntOrDefault("SWITCHBACK_LOG_MAX_SIZE", 100),
		MaxBackups: env.GetEnvIntOrDefault("SWITCHBACK_LOG_MAX_BACKUPS", 5),
		MaxAge:     env.GetEnvIntOrDefault("SWITCHBACK_LOG_MAX_AGE", 30),
		Theme:      env.GetEnvOrDefault("SWITCHBACK_THEME", "default"),
	}
}
