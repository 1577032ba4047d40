package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// httpGetter fetches http:// and https:// URLs
type httpGetter struct {
	client    *http.Client
	userAgent string
}

func newHTTPGetter(cfg Config) *httpGetter {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1024 * 1024
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,

		// Buffer sizes for large dump transfers
		WriteBufferSize: bufferSize,
		ReadBufferSize:  bufferSize,

		ForceAttemptHTTP2: true,

		// The dumps are already gzipped; transparent decompression
		// would corrupt the on-disk files.
		DisableCompression: true,

		ResponseHeaderTimeout: 30 * time.Second,
	}

	return &httpGetter{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
	}
}

func (g *httpGetter) get(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		// Do failures come back as *url.Error with the full request
		// URL in the message. The bulk endpoint carries the API key
		// in its query string, so the query is dropped before the
		// error can reach a log line.
		return nil, 0, fmt.Errorf("request to %s failed: %w", redactQuery(req.URL), unwrapURLError(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return resp.Body, resp.ContentLength, nil
}

// redactQuery returns the URL without its query string
func redactQuery(u *url.URL) string {
	redacted := *u
	redacted.RawQuery = ""
	return redacted.String()
}

// unwrapURLError strips the *url.Error layer, whose message embeds the
// full URL, keeping the underlying cause (and its errors.Is chain,
// context cancellation included).
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}
