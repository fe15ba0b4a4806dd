package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LoginFailuresStore persists throttle history in the login_failures table.
type LoginFailuresStore struct {
	pool *pgxpool.Pool
}

func NewLoginFailuresStore(pool *pgxpool.Pool) *LoginFailuresStore {
	return &LoginFailuresStore{pool: pool}
}

func (s *LoginFailuresStore) Add(ctx context.Context, key string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO login_failures (client_key, failed_at) VALUES ($1, $2)`, key, at)
	if err != nil {
		return fmt.Errorf("add login failure: %w", err)
	}
	return nil
}

func (s *LoginFailuresStore) Window(ctx context.Context, key string, from, to time.Time) ([]time.Time, error) {
	if _, err := s.pool.Exec(ctx, `DELETE FROM login_failures WHERE client_key = $1 AND failed_at < $2`, key, from); err != nil {
		return nil, fmt.Errorf("prune login failures: %w", err)
	}

	const q = `
		SELECT failed_at
		FROM login_failures
		WHERE client_key = $1 AND failed_at >= $2 AND failed_at <= $3
		ORDER BY failed_at
	`
	rows, err := s.pool.Query(ctx, q, key, from, to)
	if err != nil {
		return nil, fmt.Errorf("list login failures: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan login failure: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list login failures: %w", err)
	}
	return out, nil
}

func (s *LoginFailuresStore) Clear(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM login_failures WHERE client_key = $1`, key); err != nil {
		return fmt.Errorf("clear login failures: %w", err)
	}
	return nil
}
