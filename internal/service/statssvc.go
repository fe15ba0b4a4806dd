package service

import (
	"context"

	"Newsletterwebserver/internal/domain"
)

type ViewsStore interface {
	IncrementViews(ctx context.Context) (int64, error)
	Views(ctx context.Context) (int64, error)
}

type StatsService struct {
	Subscribers SubscribersStore
	Views       ViewsStore
}

func (s *StatsService) RecordView(ctx context.Context) (int64, error) {
	return s.Views.IncrementViews(ctx)
}

func (s *StatsService) Stats(ctx context.Context) (domain.Stats, error) {
	n, err := s.Subscribers.CountSubscribers(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	views, err := s.Views.Views(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{Subscribers: n, Views: views}, nil
}
