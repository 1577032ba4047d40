package domain

import "time"

// FetchStatus describes the outcome of a single download attempt.
type FetchStatus string

const (
	StatusOK     FetchStatus = "ok"
	StatusFailed FetchStatus = "failed"
)

// FetchResult records the outcome of one source download within a run.
type FetchResult struct {
	ID         int64
	Registry   string
	URL        string
	Filename   string
	Bytes      int64
	Status     FetchStatus
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed reports whether the attempt did not produce an output file.
func (r *FetchResult) Failed() bool {
	return r.Status != StatusOK
}

// Summary aggregates the outcomes of one full run.
type Summary struct {
	Results    []*FetchResult
	Fetched    int
	Failed     int
	TotalBytes int64

	// BulkAttempted is true when the authenticated bulk download was
	// started; BulkError carries its failure, if any.
	BulkAttempted bool
	BulkError     error
}

// Add appends a result and updates the aggregate counters.
func (s *Summary) Add(r *FetchResult) {
	s.Results = append(s.Results, r)
	if r.Failed() {
		s.Failed++
		return
	}
	s.Fetched++
	s.TotalBytes += r.Bytes
}
