// Package transport retrieves source URLs over HTTP, HTTPS, and FTP
// behind a single Getter interface. It knows nothing about filenames or
// destinations and never logs URLs; callers decide what is safe to log.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/rirsync/rirsync/internal/domain"
	"github.com/rirsync/rirsync/internal/port"
)

// Config contains transfer settings shared by all schemes
type Config struct {
	Timeout        time.Duration // total per-request timeout
	FTPDialTimeout time.Duration
	BufferSize     int // HTTP transport read/write buffer size
	UserAgent      string
}

// Client dispatches retrieval by URL scheme
type Client struct {
	http *httpGetter
	ftp  *ftpGetter
}

// Ensure Client implements port.Getter
var _ port.Getter = (*Client)(nil)

// New creates a transport client
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Minute
	}
	if cfg.FTPDialTimeout == 0 {
		cfg.FTPDialTimeout = 30 * time.Second
	}
	return &Client{
		http: newHTTPGetter(cfg),
		ftp:  newFTPGetter(cfg),
	}
}

// Get retrieves rawURL and returns its body as a stream. Size is -1
// when the remote side does not announce one.
func (c *Client) Get(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrInvalidSource, err)
	}

	switch u.Scheme {
	case "http", "https":
		return c.http.get(ctx, rawURL)
	case "ftp":
		return c.ftp.get(ctx, u)
	default:
		return nil, 0, fmt.Errorf("%w: %q", domain.ErrUnsupportedScheme, u.Scheme)
	}
}
