package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

func (s *UsersStore) CreateUser(ctx context.Context, email, companyName, passwordHash string, role domain.UserRole) (domain.User, error) {
	const q = `
		INSERT INTO users (email, company_name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, company_name, role, status, created_at, last_login_at
	`

	u, err := scanUser(s.pool.QueryRow(ctx, q, email, companyName, passwordHash, string(role)))
	if err != nil {
		return domain.User{}, mapUserWriteError(err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	const q = `
		SELECT id, email, company_name, role, status, created_at, last_login_at
		FROM users
		WHERE id = $1
	`

	uid, ok := parseUUID(id)
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	u, err := scanUser(s.pool.QueryRow(ctx, q, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	const q = `
		SELECT id, email, company_name, role, status, created_at, last_login_at, password_hash
		FROM users
		WHERE email = $1
		LIMIT 1
	`

	var hash string
	u, err := scanUser(s.pool.QueryRow(ctx, q, email), &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by email: %w", err)
	}
	return domain.UserWithPassword{User: u, PasswordHash: hash}, nil
}

func (s *UsersStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	const q = `
		SELECT id, email, company_name, role, status, created_at, last_login_at
		FROM users
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (s *UsersStore) SetUserStatus(ctx context.Context, id string, status domain.UserStatus) error {
	uid, ok := parseUUID(id)
	if !ok {
		return domain.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `UPDATE users SET status = $2 WHERE id = $1`, uid, string(status))
	if err != nil {
		return fmt.Errorf("set user status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	uid, ok := parseUUID(userID)
	if !ok {
		return domain.ErrNotFound
	}
	_, err := s.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, uid, when)
	if err != nil {
		return fmt.Errorf("set last login: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row, extra ...any) (domain.User, error) {
	var (
		u           domain.User
		idUUID      pgtype.UUID
		role        string
		status      string
		lastLoginTS pgtype.Timestamptz
	)
	dest := append([]any{&idUUID, &u.Email, &u.CompanyName, &role, &status, &u.CreatedAt, &lastLoginTS}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.User{}, err
	}
	u.ID = uuidOrEmpty(idUUID)
	u.Role = domain.UserRole(role)
	u.Status = domain.UserStatus(status)
	u.LastLoginAt = timestamptzPtr(lastLoginTS)
	return u, nil
}

func mapUserWriteError(err error) error {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		if pgerr.ConstraintName == "users_email_uq" {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("unique violation (%s): %w", pgerr.ConstraintName, err)
	}
	return fmt.Errorf("create user: %w", err)
}
