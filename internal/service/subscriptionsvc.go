package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"time"

	"Newsletterwebserver/internal/domain"
)

type SubscribersStore interface {
	AddSubscriber(ctx context.Context, email string) (domain.Subscriber, error)
	CountSubscribers(ctx context.Context) (int, error)
	ListSubscribers(ctx context.Context) ([]domain.Subscriber, error)
	DeleteSubscriber(ctx context.Context, email string) error
}

// SubscribeResult carries the subscriber count after the call so pages can
// show it without a second round trip.
type SubscribeResult struct {
	Email             string
	AlreadySubscribed bool
	Count             int
}

type SubscriptionService struct {
	Subscribers SubscribersStore
}

// Subscribe normalizes and validates email, then adds it once. Invalid input
// returns a *domain.ValidationError; a duplicate is reported through
// AlreadySubscribed, not as an error.
func (s *SubscriptionService) Subscribe(ctx context.Context, email string) (SubscribeResult, error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return SubscribeResult{}, domain.NewValidationError(map[string]string{"email": "Adresse email invalide"})
	}

	res := SubscribeResult{Email: email}
	if _, err := s.Subscribers.AddSubscriber(ctx, email); err != nil {
		if !errors.Is(err, domain.ErrAlreadySubscribed) {
			return SubscribeResult{}, err
		}
		res.AlreadySubscribed = true
	}

	n, err := s.Subscribers.CountSubscribers(ctx)
	if err != nil {
		return SubscribeResult{}, err
	}
	res.Count = n
	return res, nil
}

func (s *SubscriptionService) Count(ctx context.Context) (int, error) {
	return s.Subscribers.CountSubscribers(ctx)
}

func (s *SubscriptionService) List(ctx context.Context) ([]domain.Subscriber, error) {
	return s.Subscribers.ListSubscribers(ctx)
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, email string) error {
	return s.Subscribers.DeleteSubscriber(ctx, NormalizeEmail(email))
}

// Recipients returns every subscriber address in list order.
func (s *SubscriptionService) Recipients(ctx context.Context) ([]string, error) {
	subs, err := s.Subscribers.ListSubscribers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub.Email)
	}
	return out, nil
}

// ExportCSV writes email,created_at rows with a header line.
func (s *SubscriptionService) ExportCSV(ctx context.Context, w io.Writer) error {
	subs, err := s.Subscribers.ListSubscribers(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"email", "created_at"}); err != nil {
		return err
	}
	for _, sub := range subs {
		created := ""
		if !sub.CreatedAt.IsZero() {
			created = sub.CreatedAt.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{sub.Email, created}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
