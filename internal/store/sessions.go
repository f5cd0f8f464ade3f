package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erazemk/toolshare/internal/model"
)

// Session is a persisted login: the sealed backend token and the user
// record returned alongside it.
type Session struct {
	ID          string
	TokenSealed []byte
	User        model.User
	CreatedAt   time.Time
	LastSeenAt  time.Time
}

// SaveSession inserts or replaces a session.
func SaveSession(ctx context.Context, db *sql.DB, s *Session) error {
	userJSON, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("encoding session user: %w", err)
	}

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.LastSeenAt = now

	_, err = db.ExecContext(ctx,
		`INSERT INTO sessions (id, token_sealed, user_json, created_at, last_seen_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     token_sealed = excluded.token_sealed,
		     user_json = excluded.user_json,
		     last_seen_at = excluded.last_seen_at`,
		s.ID, s.TokenSealed, string(userJSON), s.CreatedAt, s.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// GetSession returns a session by ID, or nil if it does not exist.
func GetSession(ctx context.Context, db *sql.DB, id string) (*Session, error) {
	s := &Session{}
	var userJSON string
	err := db.QueryRowContext(ctx,
		`SELECT id, token_sealed, user_json, created_at, last_seen_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.TokenSealed, &userJSON, &s.CreatedAt, &s.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	if err := json.Unmarshal([]byte(userJSON), &s.User); err != nil {
		return nil, fmt.Errorf("decoding session user: %w", err)
	}
	return s, nil
}

// UpdateSessionUser replaces the stored user record of a session.
func UpdateSessionUser(ctx context.Context, db *sql.DB, id string, user model.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding session user: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`UPDATE sessions SET user_json = ?, last_seen_at = ? WHERE id = ?`,
		string(userJSON), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating session user: %w", err)
	}
	return nil
}

// TouchSession records that a session was used at seen.
func TouchSession(ctx context.Context, db *sql.DB, id string, seen time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = ? WHERE id = ?`, seen.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func DeleteSession(ctx context.Context, db *sql.DB, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// PruneSessions deletes sessions not used since before and returns how many
// were removed.
func PruneSessions(ctx context.Context, db *sql.DB, before time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_seen_at < ?`, before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	return result.RowsAffected()
}
