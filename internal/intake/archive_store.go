package intake

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrArchiveNotFound is returned when no archived record exists for a session.
var ErrArchiveNotFound = errors.New("intake: archived record not found")

// ArchiveStore writes completed case records to Postgres so they outlive the
// Redis session TTL and can be pulled into the clinic's EMR review queue.
type ArchiveStore struct {
	db *sql.DB
}

// NewArchiveStore wraps an open database handle.
func NewArchiveStore(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

// Archive upserts the record keyed by session id. Called once per completed
// session, but safe to call again if the completion turn is retried.
func (s *ArchiveStore) Archive(ctx context.Context, rec *Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("intake: encode archive record %s: %w", rec.SessionID, err)
	}

	query := `
		INSERT INTO intake_records (session_id, phase, status, record, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id)
		DO UPDATE SET phase = $2, status = $3, record = $4, completed_at = $5`

	if _, err := s.db.ExecContext(ctx, query,
		rec.SessionID, string(rec.Phase), string(rec.Status), payload, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("intake: archive record %s: %w", rec.SessionID, err)
	}
	return nil
}

// Get loads an archived record by session id.
func (s *ArchiveStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	var payload []byte
	query := `SELECT record FROM intake_records WHERE session_id = $1`
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArchiveNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("intake: load archived record %s: %w", sessionID, err)
	}

	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("intake: decode archived record %s: %w", sessionID, err)
	}
	return &rec, nil
}

// ListRecent returns session ids of records archived in the given window,
// newest first. Used by the admin review endpoint.
func (s *ArchiveStore) ListRecent(ctx context.Context, since time.Time, limit int) ([]string, error) {
	query := `
		SELECT session_id FROM intake_records
		WHERE completed_at >= $1
		ORDER BY completed_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("intake: list archived records: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("intake: scan archived record: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("intake: iterate archived records: %w", err)
	}
	return ids, nil
}
