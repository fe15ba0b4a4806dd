package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/google/uuid"
)

type StatsStore struct {
	db *sql.DB
}

func NewStatsStore(db *sql.DB) *StatsStore {
	return &StatsStore{db: db}
}

func (s *StatsStore) IncrementViews(ctx context.Context) (int64, error) {
	var views int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO stats (id, views) VALUES (1, 1)
		 ON CONFLICT (id) DO UPDATE SET views = views + 1
		 RETURNING views`,
	).Scan(&views)
	if err != nil {
		return 0, fmt.Errorf("store.sqlite.IncrementViews: %w", err)
	}
	return views, nil
}

func (s *StatsStore) Views(ctx context.Context) (int64, error) {
	var views int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(views), 0) FROM stats WHERE id = 1`).Scan(&views)
	if err != nil {
		return 0, fmt.Errorf("store.sqlite.Views: %w", err)
	}
	return views, nil
}

type DispatchLogStore struct {
	db *sql.DB
}

func NewDispatchLogStore(db *sql.DB) *DispatchLogStore {
	return &DispatchLogStore{db: db}
}

func (s *DispatchLogStore) AddDispatchLog(ctx context.Context, entry domain.DispatchLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatch_logs (id, recipient, subject, provider, status, error, sent_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Recipient, entry.Subject, entry.Provider, string(entry.Status), entry.Error, formatTime(entry.SentAt),
	)
	if err != nil {
		return fmt.Errorf("store.sqlite.AddDispatchLog: %w", err)
	}
	return nil
}

func (s *DispatchLogStore) ListDispatchLogs(ctx context.Context, limit int) ([]domain.DispatchLog, error) {
	const op = "store.sqlite.ListDispatchLogs"

	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipient, subject, provider, status, error, sent_at FROM dispatch_logs ORDER BY sent_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.DispatchLog
	for rows.Next() {
		var (
			l    domain.DispatchLog
			sent string
		)
		if err := rows.Scan(&l.ID, &l.Recipient, &l.Subject, &l.Provider, &l.Status, &l.Error, &sent); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if l.SentAt, err = parseTime(sent); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
