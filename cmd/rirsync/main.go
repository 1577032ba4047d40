package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/rirsync/rirsync/internal/adapter/filesystem"
	"github.com/rirsync/rirsync/internal/adapter/sqlite"
	"github.com/rirsync/rirsync/internal/adapter/transport"
	"github.com/rirsync/rirsync/internal/config"
	"github.com/rirsync/rirsync/internal/logger"
	"github.com/rirsync/rirsync/internal/port"
	"github.com/rirsync/rirsync/internal/service/fetcher"
)

const version = "1.0.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitSetupFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "Path to configuration file (optional)")
	destDir := flag.String("dest", "", "Destination directory (overrides configuration)")
	skipBulk := flag.Bool("skip-bulk", false, "Skip the authenticated ARIN bulk download even if an API key is set")
	historyN := flag.Int("history", 0, "Print the N most recent fetch log entries and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return ExitSetupFailure
	}
	if *destDir != "" {
		cfg.Destination.Dir = *destDir
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return ExitSetupFailure
	}
	defer logger.Sync()

	zapLogger := logger.GetZapLogger()
	zapLogger.Info("starting rirsync",
		zap.String("version", version),
		zap.String("destination", cfg.Destination.Dir),
		zap.Int("sources", len(cfg.Sources)),
	)

	// Initialize filesystem manager (creates the destination dir)
	fsManager, err := filesystem.NewManager(cfg.Destination.Dir, cfg.Fetch.GetBufferSize())
	if err != nil {
		zapLogger.Error("failed to create destination directory", zap.Error(err))
		return ExitSetupFailure
	}

	// Open fetch history store. History is observability only, so a
	// broken database degrades to an unrecorded run instead of failing it.
	var history port.FetchLogRepository
	store, err := sqlite.Open(cfg.DatabasePath())
	if err != nil {
		zapLogger.Warn("fetch history unavailable",
			zap.String("path", cfg.DatabasePath()),
			zap.Error(err),
		)
	} else {
		defer store.Close()
		history = store
	}

	if *historyN > 0 {
		if history == nil {
			zapLogger.Error("fetch history unavailable")
			return ExitSetupFailure
		}
		if err := printHistory(history, *historyN); err != nil {
			zapLogger.Error("failed to read fetch history", zap.Error(err))
			return ExitSetupFailure
		}
		return ExitSuccess
	}

	// Create transport client
	client := transport.New(transport.Config{
		Timeout:        cfg.Fetch.GetTimeout(),
		FTPDialTimeout: cfg.Fetch.GetFTPDialTimeout(),
		BufferSize:     cfg.Fetch.GetBufferSize(),
		UserAgent:      cfg.Fetch.UserAgent,
	})

	// Create fetcher service
	svc := fetcher.New(&fetcher.Config{
		Sources:          cfg.DomainSources(),
		StalePartialAge:  cfg.Fetch.GetStalePartialAge(),
		HistoryRetention: cfg.Database.GetRetention(),
		Bulk: fetcher.BulkConfig{
			Enabled:   cfg.Bulk.Enabled,
			Endpoint:  cfg.Bulk.Endpoint,
			EntryName: cfg.Bulk.EntryName,
		},
	}, client, fsManager, history, zapLogger)

	// The API key is read from the environment exactly once, here; the
	// fetcher receives it as an explicit option.
	apiKey := os.Getenv(cfg.Bulk.APIKeyEnv)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	summary, err := svc.Run(ctx, fetcher.Options{
		APIKey:   apiKey,
		SkipBulk: *skipBulk,
	})
	if err != nil {
		zapLogger.Error("run aborted", zap.Error(err))
		return ExitSetupFailure
	}

	zapLogger.Info("run complete",
		zap.Int("fetched", summary.Fetched),
		zap.Int("failed", summary.Failed),
		zap.Bool("bulk", summary.BulkAttempted && summary.BulkError == nil),
	)
	return ExitSuccess
}

// printHistory writes recent fetch log entries to stdout, newest first
func printHistory(history port.FetchLogRepository, n int) error {
	results, err := history.ListRecent(n)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tREGISTRY\tFILE\tSTATUS\tSIZE\tERROR")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.FinishedAt.Local().Format(time.RFC3339),
			r.Registry,
			r.Filename,
			r.Status,
			humanize.Bytes(uint64(r.Bytes)),
			r.Error,
		)
	}
	return w.Flush()
}
