package service

import (
	"context"

	"Newsletterwebserver/internal/domain"
)

type AdminUsersStore interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	SetUserStatus(ctx context.Context, id string, status domain.UserStatus) error
}

type AdminService struct {
	Users       AdminUsersStore
	Subscribers SubscribersStore
	Submissions SubmissionsStore
	Views       ViewsStore
}

type Dashboard struct {
	Subscribers int
	Users       int
	Pending     int
	Approved    int
	Views       int64
}

func (s *AdminService) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.Subscribers, err = s.Subscribers.CountSubscribers(ctx); err != nil {
		return Dashboard{}, err
	}
	users, err := s.Users.ListUsers(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d.Users = len(users)

	pending, err := s.Submissions.ListSubmissions(ctx, domain.SubmissionPending)
	if err != nil {
		return Dashboard{}, err
	}
	d.Pending = len(pending)
	approved, err := s.Submissions.ListSubmissions(ctx, domain.SubmissionApproved)
	if err != nil {
		return Dashboard{}, err
	}
	d.Approved = len(approved)

	if s.Views != nil {
		if d.Views, err = s.Views.Views(ctx); err != nil {
			return Dashboard{}, err
		}
	}
	return d, nil
}

func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Users.ListUsers(ctx)
}

func (s *AdminService) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return s.Users.GetUserByID(ctx, id)
}

// SetUserStatus enables or disables an account. An admin cannot disable
// their own account.
func (s *AdminService) SetUserStatus(ctx context.Context, actorID, userID string, status domain.UserStatus) error {
	switch status {
	case domain.UserStatusActive, domain.UserStatusDisabled:
	default:
		return domain.NewValidationError(map[string]string{"status": "valeur invalide"})
	}
	if actorID == userID && status == domain.UserStatusDisabled {
		return domain.ErrForbidden
	}
	return s.Users.SetUserStatus(ctx, userID, status)
}
