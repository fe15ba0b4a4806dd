package service

import (
	"context"
	"strings"
	"time"

	"Newsletterwebserver/internal/domain"
)

type SubmissionsStore interface {
	CreateSubmission(ctx context.Context, in domain.NewSubmission) (domain.Submission, error)
	GetSubmission(ctx context.Context, id string) (domain.Submission, error)
	ListSubmissions(ctx context.Context, status domain.SubmissionStatus) ([]domain.Submission, error)
	ListSubmissionsByUser(ctx context.Context, userID string) ([]domain.Submission, error)
	ReviewSubmission(ctx context.Context, id string, to domain.SubmissionStatus, when time.Time) (domain.Submission, error)
}

type SubmissionService struct {
	Submissions SubmissionsStore
	Now         func() time.Time
}

func (s *SubmissionService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Submit stores a merchant offer as pending.
func (s *SubmissionService) Submit(ctx context.Context, author domain.User, in domain.NewSubmission) (domain.Submission, error) {
	in.UserID = author.ID
	in.CompanyName = author.CompanyName
	in.Category = strings.TrimSpace(in.Category)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.LinkURL = strings.TrimSpace(in.LinkURL)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	if err := validateStruct(in); err != nil {
		return domain.Submission{}, err
	}
	return s.Submissions.CreateSubmission(ctx, in)
}

func (s *SubmissionService) ListByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	return s.Submissions.ListSubmissionsByUser(ctx, userID)
}

func (s *SubmissionService) List(ctx context.Context, status domain.SubmissionStatus) ([]domain.Submission, error) {
	return s.Submissions.ListSubmissions(ctx, status)
}

func (s *SubmissionService) Approved(ctx context.Context) ([]domain.Submission, error) {
	return s.Submissions.ListSubmissions(ctx, domain.SubmissionApproved)
}

func (s *SubmissionService) Approve(ctx context.Context, id string) (domain.Submission, error) {
	return s.review(ctx, id, domain.SubmissionApproved)
}

func (s *SubmissionService) Reject(ctx context.Context, id string) (domain.Submission, error) {
	return s.review(ctx, id, domain.SubmissionRejected)
}

func (s *SubmissionService) review(ctx context.Context, id string, to domain.SubmissionStatus) (domain.Submission, error) {
	cur, err := s.Submissions.GetSubmission(ctx, id)
	if err != nil {
		return domain.Submission{}, err
	}
	if !cur.Status.CanTransition(to) {
		return domain.Submission{}, domain.ErrInvalidTransition
	}
	return s.Submissions.ReviewSubmission(ctx, id, to, s.now())
}
