package filestore

import (
	"context"
	"sort"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/google/uuid"
)

type SubmissionsStore struct {
	file *jsonFile[[]domain.Submission]
	now  func() time.Time
}

func NewSubmissionsStore(dir string) *SubmissionsStore {
	return &SubmissionsStore{
		file: newJSONFile[[]domain.Submission](dir, SubmissionsFile),
		now:  time.Now,
	}
}

func (s *SubmissionsStore) CreateSubmission(_ context.Context, in domain.NewSubmission) (domain.Submission, error) {
	sub := domain.Submission{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		CompanyName: in.CompanyName,
		Category:    in.Category,
		Title:       in.Title,
		Description: in.Description,
		LinkURL:     in.LinkURL,
		ImageURL:    in.ImageURL,
		Status:      domain.SubmissionPending,
		CreatedAt:   s.now().UTC(),
	}
	err := s.file.update(func(list []domain.Submission) ([]domain.Submission, error) {
		return append(list, sub), nil
	})
	if err != nil {
		return domain.Submission{}, err
	}
	return sub, nil
}

func (s *SubmissionsStore) GetSubmission(_ context.Context, id string) (domain.Submission, error) {
	list, err := s.file.read()
	if err != nil {
		return domain.Submission{}, err
	}
	for _, sub := range list {
		if sub.ID == id {
			return sub, nil
		}
	}
	return domain.Submission{}, domain.ErrNotFound
}

// ListSubmissions returns submissions newest first. An empty status lists all.
func (s *SubmissionsStore) ListSubmissions(_ context.Context, status domain.SubmissionStatus) ([]domain.Submission, error) {
	return s.filter(func(sub domain.Submission) bool {
		return status == "" || sub.Status == status
	})
}

func (s *SubmissionsStore) ListSubmissionsByUser(_ context.Context, userID string) ([]domain.Submission, error) {
	return s.filter(func(sub domain.Submission) bool { return sub.UserID == userID })
}

func (s *SubmissionsStore) filter(keep func(domain.Submission) bool) ([]domain.Submission, error) {
	list, err := s.file.read()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Submission, 0, len(list))
	for _, sub := range list {
		if keep(sub) {
			out = append(out, sub)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *SubmissionsStore) ReviewSubmission(_ context.Context, id string, to domain.SubmissionStatus, when time.Time) (domain.Submission, error) {
	var reviewed domain.Submission
	err := s.file.update(func(list []domain.Submission) ([]domain.Submission, error) {
		for i := range list {
			if list[i].ID != id {
				continue
			}
			if !list[i].Status.CanTransition(to) {
				return nil, domain.ErrInvalidTransition
			}
			w := when.UTC()
			list[i].Status = to
			list[i].ReviewedAt = &w
			reviewed = list[i]
			return list, nil
		}
		return nil, domain.ErrNotFound
	})
	if err != nil {
		return domain.Submission{}, err
	}
	return reviewed, nil
}
