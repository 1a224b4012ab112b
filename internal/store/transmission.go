package store

import (
	"database/sql"
	"time"
)

// Transmission is one byte written to the controller.
type Transmission struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Count     int       `json:"count"`
	Reason    string    `json:"reason"`
	SentAt    time.Time `json:"sentAt"`
}

// TransmissionRepository provides access to the transmission journal.
type TransmissionRepository struct {
	db *sql.DB
}

// Transmissions returns the transmission repository for this store.
func (s *Store) Transmissions() *TransmissionRepository {
	return &TransmissionRepository{db: s.db}
}

// Record appends a transmission and fills in its ID.
func (r *TransmissionRepository) Record(t *Transmission) error {
	if t.SentAt.IsZero() {
		t.SentAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO transmissions (session_id, count, reason, sent_at) VALUES (?, ?, ?, ?)`,
		t.SessionID, t.Count, t.Reason, t.SentAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// ListBySession returns a session's transmissions in the order they were sent.
func (r *TransmissionRepository) ListBySession(sessionID string) ([]*Transmission, error) {
	return r.query(
		`SELECT id, session_id, count, reason, sent_at FROM transmissions
		 WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
}

// Recent returns up to limit transmissions across all sessions, newest first.
func (r *TransmissionRepository) Recent(limit int) ([]*Transmission, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.query(
		`SELECT id, session_id, count, reason, sent_at FROM transmissions
		 ORDER BY id DESC LIMIT ?`,
		limit,
	)
}

func (r *TransmissionRepository) query(q string, args ...any) ([]*Transmission, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Transmission
	for rows.Next() {
		t := &Transmission{}
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Count, &t.Reason, &t.SentAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
