// Package fetcher downloads the configured registry dumps into the
// destination directory, one sequential pass per run. Failures are
// isolated per source: a dead mirror never blocks the others, and
// rerunning the program is the recovery mechanism.
package fetcher

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/rirsync/rirsync/internal/domain"
	"github.com/rirsync/rirsync/internal/port"
)

// Config contains fetcher settings
type Config struct {
	Sources          []domain.Source
	StalePartialAge  time.Duration
	HistoryRetention time.Duration
	Bulk             BulkConfig
}

// BulkConfig contains settings for the authenticated ARIN bulk download
type BulkConfig struct {
	Enabled   bool
	Endpoint  string
	EntryName string
}

// Options are per-run parameters resolved by the caller. The service
// itself never reads the environment; the API key arrives here.
type Options struct {
	APIKey   string
	SkipBulk bool
}

// Service is the Fetcher
type Service struct {
	cfg     *Config
	client  port.Getter
	fs      port.FileSystem
	history port.FetchLogRepository
	logger  *zap.Logger
}

// New creates a fetcher service
func New(cfg *Config, client port.Getter, fs port.FileSystem, history port.FetchLogRepository, logger *zap.Logger) *Service {
	return &Service{
		cfg:     cfg,
		client:  client,
		fs:      fs,
		history: history,
		logger:  logger,
	}
}

// Run downloads every configured source in order, then performs the
// authenticated bulk download when an API key is present. Per-source
// failures are recorded and skipped; Run returns an error only when the
// run as a whole could not proceed.
func (s *Service) Run(ctx context.Context, opts Options) (*domain.Summary, error) {
	if n, err := s.fs.CleanStalePartials(s.cfg.StalePartialAge); err != nil {
		s.logger.Warn("failed to sweep stale partial downloads", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("removed stale partial downloads", zap.Int("count", n))
	}

	summary := &domain.Summary{}

	for _, src := range s.cfg.Sources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := s.fetchOne(ctx, src)
		summary.Add(result)
		s.record(result)
	}

	s.logger.Info("fixed source list complete",
		zap.Int("fetched", summary.Fetched),
		zap.Int("failed", summary.Failed),
		zap.String("total_size", humanize.Bytes(uint64(summary.TotalBytes))),
	)
	if summary.Failed > 0 {
		s.logger.Warn("some sources failed; rerun to retry them",
			zap.Int("failed", summary.Failed),
			zap.Int("total", len(s.cfg.Sources)),
		)
	}

	s.purgeHistory()

	if s.cfg.Bulk.Enabled && !opts.SkipBulk && opts.APIKey != "" {
		summary.BulkAttempted = true
		if err := s.runBulk(ctx, opts.APIKey); err != nil {
			// A bad key or corrupt archive does not change the
			// run's exit status.
			summary.BulkError = err
			s.logger.Error("bulk download failed", zap.Error(err))
		}
	}

	return summary, nil
}

// fetchOne downloads a single source and writes it to the destination
func (s *Service) fetchOne(ctx context.Context, src domain.Source) *domain.FetchResult {
	result := &domain.FetchResult{
		Registry:  src.Registry,
		URL:       src.URL,
		StartedAt: time.Now(),
	}

	fail := func(err error) *domain.FetchResult {
		result.Status = domain.StatusFailed
		result.Error = err.Error()
		result.FinishedAt = time.Now()
		s.logger.Error("download failed",
			zap.String("registry", src.Registry),
			zap.String("url", src.URL),
			zap.Error(err),
		)
		return result
	}

	filename, err := src.Filename()
	if err != nil {
		return fail(err)
	}
	result.Filename = filename

	s.logger.Debug("downloading",
		zap.String("registry", src.Registry),
		zap.String("url", src.URL),
	)

	body, _, err := s.client.Get(ctx, src.URL)
	if err != nil {
		return fail(&domain.FetchError{URL: src.URL, Err: err})
	}
	defer body.Close()

	path, written, err := s.fs.WriteFile(filename, body)
	if err != nil {
		return fail(&domain.FetchError{URL: src.URL, Err: err})
	}

	result.Status = domain.StatusOK
	result.Bytes = written
	result.FinishedAt = time.Now()

	s.logger.Info("downloaded",
		zap.String("registry", src.Registry),
		zap.String("file", path),
		zap.String("size", humanize.Bytes(uint64(written))),
	)
	return result
}

// record persists a result to the fetch log, best effort
func (s *Service) record(result *domain.FetchResult) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(result); err != nil {
		s.logger.Warn("failed to record fetch result",
			zap.String("url", result.URL),
			zap.Error(err),
		)
	}
}

// purgeHistory trims fetch log rows past the retention period
func (s *Service) purgeHistory() {
	if s.history == nil || s.cfg.HistoryRetention <= 0 {
		return
	}
	if n, err := s.history.PurgeOlderThan(s.cfg.HistoryRetention); err != nil {
		s.logger.Warn("failed to purge fetch history", zap.Error(err))
	} else if n > 0 {
		s.logger.Debug("purged fetch history rows", zap.Int("count", n))
	}
}
