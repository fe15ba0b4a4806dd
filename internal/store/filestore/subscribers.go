package filestore

import (
	"context"
	"strings"
	"time"

	"Newsletterwebserver/internal/domain"
)

// SubscribersStore keeps subscribers.json as a plain array of email
// addresses. The file carries no ids or dates, so the email doubles as id.
type SubscribersStore struct {
	file *jsonFile[[]string]
}

func NewSubscribersStore(dir string) *SubscribersStore {
	return &SubscribersStore{file: newJSONFile[[]string](dir, SubscribersFile)}
}

func (s *SubscribersStore) AddSubscriber(_ context.Context, email string) (domain.Subscriber, error) {
	key := normalizeEmail(email)
	err := s.file.update(func(list []string) ([]string, error) {
		for _, e := range list {
			if normalizeEmail(e) == key {
				return nil, domain.ErrAlreadySubscribed
			}
		}
		return append(list, email), nil
	})
	if err != nil {
		return domain.Subscriber{}, err
	}
	return domain.Subscriber{ID: email, Email: email, CreatedAt: time.Now().UTC()}, nil
}

func (s *SubscribersStore) CountSubscribers(_ context.Context) (int, error) {
	list, err := s.file.read()
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

func (s *SubscribersStore) ListSubscribers(_ context.Context) ([]domain.Subscriber, error) {
	list, err := s.file.read()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Subscriber, 0, len(list))
	for _, e := range list {
		out = append(out, domain.Subscriber{ID: e, Email: e})
	}
	return out, nil
}

func (s *SubscribersStore) DeleteSubscriber(_ context.Context, email string) error {
	key := normalizeEmail(email)
	return s.file.update(func(list []string) ([]string, error) {
		for i, e := range list {
			if normalizeEmail(e) == key {
				return append(list[:i], list[i+1:]...), nil
			}
		}
		return nil, domain.ErrNotFound
	})
}

// Older files may hold addresses saved before input was normalized.
func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
