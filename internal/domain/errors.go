package domain

import "errors"

// Common domain errors
var (
	ErrInvalidSource     = errors.New("invalid source")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	ErrEntryNotFound     = errors.New("archive entry not found")
)

// FetchError represents a per-source failure that can be logged and
// skipped. The run continues with the next source when it occurs.
type FetchError struct {
	URL string
	Err error
}

// Error returns the error message
func (e *FetchError) Error() string {
	if e.Err != nil {
		return e.URL + ": " + e.Err.Error()
	}
	return e.URL
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}
