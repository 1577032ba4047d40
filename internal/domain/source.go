package domain

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Source is a single registry dump to download: a registry label and
// the URL it is published at. The output filename is derived from the
// URL, not stored.
type Source struct {
	Registry string
	URL      string
}

// Filename returns the final path segment of the source URL, which is
// the name the downloaded file is stored under. Two sources sharing a
// final segment overwrite each other; that is accepted behavior, the
// later download wins.
func (s Source) Filename() (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}

	switch u.Scheme {
	case "http", "https", "ftp":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	// path.Base strips a trailing slash, which would silently turn a
	// directory URL into a filename. Reject those outright.
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return "", fmt.Errorf("%w: no filename in %q", ErrInvalidSource, s.URL)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("%w: no filename in %q", ErrInvalidSource, s.URL)
	}
	return name, nil
}

// Validate checks that the source has a registry label and a URL with a
// derivable filename.
func (s Source) Validate() error {
	if s.Registry == "" {
		return fmt.Errorf("%w: empty registry", ErrInvalidSource)
	}
	if s.URL == "" {
		return fmt.Errorf("%w: empty URL", ErrInvalidSource)
	}
	_, err := s.Filename()
	return err
}
