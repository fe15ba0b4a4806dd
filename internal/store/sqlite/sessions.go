package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/google/uuid"
)

type SessionsStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSessionsStore(db *sql.DB) *SessionsStore {
	return &SessionsStore{db: db, now: time.Now}
}

func (s *SessionsStore) CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at, ip, user_agent) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, formatTime(s.now()), formatTime(expiresAt), ip, userAgent,
	)
	if err != nil {
		return "", fmt.Errorf("store.sqlite.CreateSession: %w", err)
	}
	return id, nil
}

func (s *SessionsStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	const op = "store.sqlite.GetSession"

	var (
		sess             domain.Session
		created, expires string
		revoked          sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = ?`, sessionID,
	).Scan(&sess.ID, &sess.UserID, &created, &expires, &revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if sess.CreatedAt, err = parseTime(created); err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if sess.ExpiresAt, err = parseTime(expires); err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if revoked.Valid || !sess.ExpiresAt.After(s.now()) {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *SessionsStore) RevokeSession(ctx context.Context, sessionID string, when time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`, formatTime(when), sessionID,
	)
	if err != nil {
		return fmt.Errorf("store.sqlite.RevokeSession: %w", err)
	}
	return nil
}
