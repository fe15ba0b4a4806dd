package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/google/uuid"
)

type SubscribersStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSubscribersStore(db *sql.DB) *SubscribersStore {
	return &SubscribersStore{db: db, now: time.Now}
}

func (s *SubscribersStore) AddSubscriber(ctx context.Context, email string) (domain.Subscriber, error) {
	const op = "store.sqlite.AddSubscriber"

	sub := domain.Subscriber{ID: uuid.NewString(), Email: email, CreatedAt: s.now().UTC()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscribers (id, email, created_at) VALUES (?, ?, ?) ON CONFLICT (email) DO NOTHING`,
		sub.ID, sub.Email, formatTime(sub.CreatedAt),
	)
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return domain.Subscriber{}, domain.ErrAlreadySubscribed
	}
	return sub, nil
}

func (s *SubscribersStore) CountSubscribers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store.sqlite.CountSubscribers: %w", err)
	}
	return n, nil
}

func (s *SubscribersStore) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	const op = "store.sqlite.ListSubscribers"

	rows, err := s.db.QueryContext(ctx, `SELECT id, email, created_at FROM subscribers ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Subscriber
	for rows.Next() {
		var (
			sub     domain.Subscriber
			created string
		)
		if err := rows.Scan(&sub.ID, &sub.Email, &created); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if sub.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *SubscribersStore) DeleteSubscriber(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscribers WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("store.sqlite.DeleteSubscriber: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
