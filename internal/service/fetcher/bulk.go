package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/rirsync/rirsync/internal/archive"
)

// bulkArchiveName is the temporary filename for the downloaded archive
const bulkArchiveName = "bulkwhois.zip"

// runBulk performs the authenticated ARIN bulk WHOIS download: fetch
// the zip into a fresh temp dir, extract the database file, move it to
// the destination. The temp dir (and with it the archive) is removed on
// every exit path. The API key travels as a query parameter and must
// never reach a log line, so only the configured endpoint is logged.
func (s *Service) runBulk(ctx context.Context, apiKey string) error {
	s.logger.Warn("the bulk WHOIS archive contains non-public data and must not be redistributed")

	endpoint, err := url.Parse(s.cfg.Bulk.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid bulk endpoint: %w", err)
	}
	query := endpoint.Query()
	query.Set("apikey", apiKey)
	endpoint.RawQuery = query.Encode()

	tmpDir, err := s.fs.MakeTempDir("rirsync-bulk-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err := s.fs.RemoveAll(tmpDir); err != nil {
			s.logger.Warn("failed to remove bulk temp dir",
				zap.String("dir", tmpDir),
				zap.Error(err),
			)
		}
	}()

	s.logger.Info("downloading bulk WHOIS archive",
		zap.String("endpoint", s.cfg.Bulk.Endpoint),
	)

	body, _, err := s.client.Get(ctx, endpoint.String())
	if err != nil {
		return fmt.Errorf("bulk download failed: %w", err)
	}
	defer body.Close()

	archivePath := filepath.Join(tmpDir, bulkArchiveName)
	written, err := s.fs.WriteTo(archivePath, body)
	if err != nil {
		return fmt.Errorf("failed to write bulk archive: %w", err)
	}

	extracted, err := archive.ExtractEntry(archivePath, s.cfg.Bulk.EntryName, tmpDir)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", s.cfg.Bulk.EntryName, err)
	}

	finalPath, err := s.fs.MoveIntoDest(extracted, s.cfg.Bulk.EntryName)
	if err != nil {
		return fmt.Errorf("failed to move %s into destination: %w", s.cfg.Bulk.EntryName, err)
	}

	s.logger.Info("bulk WHOIS database ready",
		zap.String("file", finalPath),
		zap.String("archive_size", humanize.Bytes(uint64(written))),
	)
	return nil
}
