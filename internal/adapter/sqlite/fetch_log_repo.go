package sqlite

import (
	"database/sql"
	"time"

	"github.com/rirsync/rirsync/internal/domain"
	"github.com/rirsync/rirsync/internal/port"
)

// Ensure Store implements port.FetchLogRepository
var _ port.FetchLogRepository = (*Store)(nil)

// Record inserts one fetch result and sets its ID
func (s *Store) Record(result *domain.FetchResult) error {
	query := `
		INSERT INTO fetch_log (
			registry, url, filename, bytes, status, error, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.Exec(query,
		result.Registry, result.URL, result.Filename, result.Bytes,
		string(result.Status), nullable(result.Error),
		result.StartedAt.UTC(), result.FinishedAt.UTC())
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	result.ID = id
	return nil
}

// ListRecent returns the most recent results, newest first
func (s *Store) ListRecent(limit int) ([]*domain.FetchResult, error) {
	query := `
		SELECT id, registry, url, filename, bytes, status, error, started_at, finished_at
		FROM fetch_log
		ORDER BY finished_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.FetchResult
	for rows.Next() {
		r := &domain.FetchResult{}
		var status string
		var errText sql.NullString

		if err := rows.Scan(&r.ID, &r.Registry, &r.URL, &r.Filename, &r.Bytes,
			&status, &errText, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}

		r.Status = domain.FetchStatus(status)
		if errText.Valid {
			r.Error = errText.String
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// PurgeOlderThan deletes results finished before now-olderThan
func (s *Store) PurgeOlderThan(olderThan time.Duration) (int, error) {
	threshold := time.Now().Add(-olderThan).UTC()

	res, err := s.db.Exec(`DELETE FROM fetch_log WHERE finished_at < ?`, threshold)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	return int(n), err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
