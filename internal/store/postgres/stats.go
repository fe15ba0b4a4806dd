package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsStore struct {
	pool *pgxpool.Pool
}

func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

func (s *StatsStore) IncrementViews(ctx context.Context) (int64, error) {
	const q = `
		INSERT INTO page_stats (id, views) VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET views = page_stats.views + 1
		RETURNING views
	`
	var views int64
	if err := s.pool.QueryRow(ctx, q).Scan(&views); err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return views, nil
}

func (s *StatsStore) Views(ctx context.Context) (int64, error) {
	var views int64
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(views), 0) FROM page_stats`).Scan(&views); err != nil {
		return 0, fmt.Errorf("get views: %w", err)
	}
	return views, nil
}

type DispatchLogStore struct {
	pool *pgxpool.Pool
}

func NewDispatchLogStore(pool *pgxpool.Pool) *DispatchLogStore {
	return &DispatchLogStore{pool: pool}
}

func (s *DispatchLogStore) AddDispatchLog(ctx context.Context, entry domain.DispatchLog) error {
	const q = `
		INSERT INTO dispatch_logs (recipient, subject, provider, status, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, q, entry.Recipient, entry.Subject, entry.Provider, string(entry.Status), entry.Error, entry.SentAt)
	if err != nil {
		return fmt.Errorf("add dispatch log: %w", err)
	}
	return nil
}

func (s *DispatchLogStore) ListDispatchLogs(ctx context.Context, limit int) ([]domain.DispatchLog, error) {
	const q = `
		SELECT id, recipient, subject, provider, status, error, sent_at
		FROM dispatch_logs
		ORDER BY sent_at DESC, id DESC
		LIMIT $1
	`
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list dispatch logs: %w", err)
	}
	defer rows.Close()

	var out []domain.DispatchLog
	for rows.Next() {
		var (
			l      domain.DispatchLog
			id     int64
			status string
		)
		if err := rows.Scan(&id, &l.Recipient, &l.Subject, &l.Provider, &status, &l.Error, &l.SentAt); err != nil {
			return nil, fmt.Errorf("scan dispatch log: %w", err)
		}
		l.ID = strconv.FormatInt(id, 10)
		l.Status = domain.DispatchStatus(status)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dispatch logs: %w", err)
	}
	return out, nil
}
