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

type UsersStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewUsersStore(db *sql.DB) *UsersStore {
	return &UsersStore{db: db, now: time.Now}
}

const userColumns = `id, email, company_name, role, status, created_at, last_login_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, extra ...any) (domain.User, error) {
	var (
		u         domain.User
		created   string
		lastLogin sql.NullString
	)
	dest := append([]any{&u.ID, &u.Email, &u.CompanyName, &u.Role, &u.Status, &created, &lastLogin}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.User{}, err
	}
	var err error
	if u.CreatedAt, err = parseTime(created); err != nil {
		return domain.User{}, err
	}
	if u.LastLoginAt, err = parseTimePtr(lastLogin); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *UsersStore) CreateUser(ctx context.Context, email, companyName, passwordHash string, role domain.UserRole) (domain.User, error) {
	const op = "store.sqlite.CreateUser"

	u := domain.User{
		ID:          uuid.NewString(),
		Email:       email,
		CompanyName: companyName,
		Role:        role,
		Status:      domain.UserStatusActive,
		CreatedAt:   s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, company_name, password_hash, role, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.CompanyName, passwordHash, string(u.Role), string(u.Status), formatTime(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("store.sqlite.GetUserByID: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	var hash string
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+`, password_hash FROM users WHERE email = ?`, email)
	u, err := scanUser(row, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("store.sqlite.GetUserByEmail: %w", err)
	}
	return domain.UserWithPassword{User: u, PasswordHash: hash}, nil
}

func (s *UsersStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	const op = "store.sqlite.ListUsers"

	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *UsersStore) SetUserStatus(ctx context.Context, id string, status domain.UserStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("store.sqlite.SetUserStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *UsersStore) SetLastLogin(ctx context.Context, id string, when time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, formatTime(when), id); err != nil {
		return fmt.Errorf("store.sqlite.SetLastLogin: %w", err)
	}
	return nil
}
