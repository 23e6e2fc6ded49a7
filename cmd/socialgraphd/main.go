// Command socialgraphd serves the social-graph API over HTTP.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/dan-solli/socialgraph/pkg/config"
	"github.com/dan-solli/socialgraph/pkg/logging"
	"github.com/dan-solli/socialgraph/pkg/metrics"
	"github.com/dan-solli/socialgraph/pkg/socialgraph"
	"github.com/dan-solli/socialgraph/pkg/trace"
	"github.com/dan-solli/socialgraph/pkg/web"
)

func main() {
	f := pflag.NewFlagSet("socialgraphd", pflag.ExitOnError)
	f.String("db", "socialgraph.db", "Path to the SQLite database file")
	f.Int("port", 8080, "Port to listen on")
	f.String("verbosity", "info", "Log level (debug, info, warn, error)")
	f.Bool("json-logs", false, "Emit JSON logs instead of compact console output")
	f.String("trace-file", "", "Path to a JSONL operation-trace file (disabled when empty)")
	_ = f.Parse(os.Args[1:])

	cfg, err := config.Load(f)
	if err != nil {
		logging.Fatal("failed to load configuration", "error", err)
	}

	level := parseLevel(cfg.Verbosity)
	if cfg.JSONLogs {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}

	collector := metrics.NewCollector()

	var exporter trace.Exporter = trace.NewNoopExporter()
	if cfg.TraceFile != "" {
		exporter, err = trace.NewFileExporter(cfg.TraceFile)
		if err != nil {
			logging.Fatal("failed to open trace file", "path", cfg.TraceFile, "error", err)
		}
	}
	defer exporter.Close()

	service, err := socialgraph.New(socialgraph.Config{
		DBPath:  cfg.DBPath,
		Metrics: collector,
		Trace:   exporter,
	})
	if err != nil {
		logging.Fatal("failed to open store", "db", cfg.DBPath, "error", err)
	}
	defer service.Close()

	server := web.NewServer(service, collector.Registry())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logging.Error("shutdown failed", "error", err)
		}
	case err := <-errCh:
		if err != nil {
			logging.Fatal("server failed", "error", err)
		}
	}
}

func parseLevel(verbosity string) slog.Level {
	switch verbosity {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
