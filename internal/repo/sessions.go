package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const tsLayout = time.RFC3339

// SessionRow is a stored browser session. Body is the JSON journey state.
type SessionRow struct {
	ID        string
	Username  string
	Body      []byte
	CreatedAt string
	UpdatedAt string
	ExpiresAt string
}

// Expired reports whether the row is past its idle expiry at now.
func (s SessionRow) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.UTC().Format(tsLayout)
}

// GetSession returns a live session; expired and unknown ids are ErrNotFound.
func (r Repo) GetSession(ctx context.Context, id string, now time.Time) (SessionRow, error) {
	var s SessionRow
	var body string
	err := r.DB.QueryRowContext(ctx, `SELECT id,username,body,created_at,updated_at,expires_at FROM sessions WHERE id=?`, id).
		Scan(&s.ID, &s.Username, &body, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if s.Expired(now) {
		return SessionRow{}, ErrNotFound
	}
	s.Body = []byte(body)
	return s, nil
}

// SaveSession inserts or replaces a session body and slides its expiry to now+idle.
func (r Repo) SaveSession(ctx context.Context, id, username string, body []byte, now time.Time, idle time.Duration) error {
	ts := now.UTC().Format(tsLayout)
	expires := now.Add(idle).UTC().Format(tsLayout)
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sessions(id,username,body,created_at,updated_at,expires_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET username=excluded.username, body=excluded.body, updated_at=excluded.updated_at, expires_at=excluded.expires_at`,
		id, username, string(body), ts, ts, expires)
	return err
}

// DeleteSession removes a session.
func (r Repo) DeleteSession(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessions returns the most recently used sessions, live or not.
func (r Repo) ListSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,username,body,created_at,updated_at,expires_at FROM sessions ORDER BY updated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []SessionRow
	for rows.Next() {
		var s SessionRow
		var body string
		if err := rows.Scan(&s.ID, &s.Username, &body, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt); err != nil {
			return nil, err
		}
		s.Body = []byte(body)
		res = append(res, s)
	}
	return res, rows.Err()
}

// PurgeExpiredSessions deletes every session whose expiry is not after now.
func (r Repo) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at<=?`, now.UTC().Format(tsLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
