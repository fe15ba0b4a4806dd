package filestore

import (
	"context"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/google/uuid"
)

// DispatchLogStore appends to dispatch_log.json, keeping the newest
// maxDispatchLogs entries.
type DispatchLogStore struct {
	file *jsonFile[[]domain.DispatchLog]
}

const maxDispatchLogs = 5000

func NewDispatchLogStore(dir string) *DispatchLogStore {
	return &DispatchLogStore{file: newJSONFile[[]domain.DispatchLog](dir, DispatchFile)}
}

func (s *DispatchLogStore) AddDispatchLog(_ context.Context, entry domain.DispatchLog) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	entry.SentAt = entry.SentAt.UTC()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return s.file.update(func(list []domain.DispatchLog) ([]domain.DispatchLog, error) {
		list = append(list, entry)
		if len(list) > maxDispatchLogs {
			list = list[len(list)-maxDispatchLogs:]
		}
		return list, nil
	})
}

// ListDispatchLogs returns the newest entries first.
func (s *DispatchLogStore) ListDispatchLogs(_ context.Context, limit int) ([]domain.DispatchLog, error) {
	list, err := s.file.read()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]domain.DispatchLog, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}
