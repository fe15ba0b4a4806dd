package filestore

import (
	"context"
	"sort"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/google/uuid"
)

type UsersStore struct {
	file *jsonFile[[]domain.UserWithPassword]
	now  func() time.Time
}

func NewUsersStore(dir string) *UsersStore {
	return &UsersStore{
		file: newJSONFile[[]domain.UserWithPassword](dir, UsersFile),
		now:  time.Now,
	}
}

func (s *UsersStore) CreateUser(_ context.Context, email, companyName, passwordHash string, role domain.UserRole) (domain.User, error) {
	u := domain.UserWithPassword{
		User: domain.User{
			ID:          uuid.NewString(),
			Email:       email,
			CompanyName: companyName,
			Role:        role,
			Status:      domain.UserStatusActive,
			CreatedAt:   s.now().UTC(),
		},
		PasswordHash: passwordHash,
	}
	err := s.file.update(func(list []domain.UserWithPassword) ([]domain.UserWithPassword, error) {
		for _, existing := range list {
			if existing.Email == email {
				return nil, domain.ErrEmailTaken
			}
		}
		return append(list, u), nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return u.User, nil
}

func (s *UsersStore) GetUserByID(_ context.Context, id string) (domain.User, error) {
	u, err := s.find(func(u domain.UserWithPassword) bool { return u.ID == id })
	return u.User, err
}

func (s *UsersStore) GetUserByEmail(_ context.Context, email string) (domain.UserWithPassword, error) {
	return s.find(func(u domain.UserWithPassword) bool { return u.Email == email })
}

func (s *UsersStore) find(match func(domain.UserWithPassword) bool) (domain.UserWithPassword, error) {
	list, err := s.file.read()
	if err != nil {
		return domain.UserWithPassword{}, err
	}
	for _, u := range list {
		if match(u) {
			return u, nil
		}
	}
	return domain.UserWithPassword{}, domain.ErrNotFound
}

func (s *UsersStore) ListUsers(_ context.Context) ([]domain.User, error) {
	list, err := s.file.read()
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(list))
	for _, u := range list {
		out = append(out, u.User)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *UsersStore) SetUserStatus(_ context.Context, id string, status domain.UserStatus) error {
	return s.modify(id, func(u *domain.UserWithPassword) { u.Status = status })
}

func (s *UsersStore) SetLastLogin(_ context.Context, id string, when time.Time) error {
	w := when.UTC()
	return s.modify(id, func(u *domain.UserWithPassword) { u.LastLoginAt = &w })
}

func (s *UsersStore) modify(id string, fn func(*domain.UserWithPassword)) error {
	return s.file.update(func(list []domain.UserWithPassword) ([]domain.UserWithPassword, error) {
		for i := range list {
			if list[i].ID == id {
				fn(&list[i])
				return list, nil
			}
		}
		return nil, domain.ErrNotFound
	})
}
