package port

import (
	"context"
	"io"
	"time"

	"github.com/rirsync/rirsync/internal/domain"
)

// Getter retrieves the body of a single URL. Implementations follow the
// scheme's standard redirect rules and treat non-success responses as
// errors. The returned size is -1 when the server does not announce one.
type Getter interface {
	Get(ctx context.Context, rawURL string) (body io.ReadCloser, size int64, err error)
}

// FileSystem defines the interface for destination directory operations
type FileSystem interface {
	// DestDir returns the destination directory
	DestDir() string

	// WriteFile streams reader to <dest>/<name> via a temp file and
	// rename, replacing any existing file of that name.
	// Returns: final path, bytes written, error
	WriteFile(name string, reader io.Reader) (string, int64, error)

	// WriteTo streams reader to an absolute path (used for temporary
	// archives outside the destination directory).
	WriteTo(path string, reader io.Reader) (int64, error)

	// MoveIntoDest moves a file into the destination directory under
	// the given name, falling back to copy+remove across filesystems.
	MoveIntoDest(srcPath, name string) (string, error)

	// MakeTempDir creates a fresh temporary working directory
	MakeTempDir(prefix string) (string, error)

	// RemoveAll removes a path and everything under it
	RemoveAll(path string) error

	// CleanStalePartials removes leftover partial downloads older than
	// the given age. Returns the number of files deleted.
	CleanStalePartials(olderThan time.Duration) (int, error)
}

// FetchLogRepository persists per-source download outcomes
type FetchLogRepository interface {
	// Record inserts one fetch result and sets its ID
	Record(result *domain.FetchResult) error

	// ListRecent returns the most recent results, newest first
	ListRecent(limit int) ([]*domain.FetchResult, error)

	// PurgeOlderThan deletes results finished before now-olderThan.
	// Returns the number of rows removed.
	PurgeOlderThan(olderThan time.Duration) (int, error)
}
