package postgres

import (
	"context"
	"errors"
	"fmt"

	"Newsletterwebserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscribersStore struct {
	pool *pgxpool.Pool
}

func NewSubscribersStore(pool *pgxpool.Pool) *SubscribersStore {
	return &SubscribersStore{pool: pool}
}

func (s *SubscribersStore) AddSubscriber(ctx context.Context, email string) (domain.Subscriber, error) {
	const q = `
		INSERT INTO subscribers (email)
		VALUES ($1)
		ON CONFLICT ON CONSTRAINT subscribers_email_uq DO NOTHING
		RETURNING id, email, created_at
	`

	var (
		sub    domain.Subscriber
		idUUID pgtype.UUID
	)
	err := s.pool.QueryRow(ctx, q, email).Scan(&idUUID, &sub.Email, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscriber{}, domain.ErrAlreadySubscribed
		}
		return domain.Subscriber{}, fmt.Errorf("add subscriber: %w", err)
	}
	sub.ID = uuidOrEmpty(idUUID)
	return sub, nil
}

func (s *SubscribersStore) CountSubscribers(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return n, nil
}

func (s *SubscribersStore) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, email, created_at FROM subscribers ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var out []domain.Subscriber
	for rows.Next() {
		var (
			sub    domain.Subscriber
			idUUID pgtype.UUID
		)
		if err := rows.Scan(&idUUID, &sub.Email, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		sub.ID = uuidOrEmpty(idUUID)
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return out, nil
}

func (s *SubscribersStore) DeleteSubscriber(ctx context.Context, email string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subscribers WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
