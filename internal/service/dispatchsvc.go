package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"Newsletterwebserver/internal/domain"
	"Newsletterwebserver/internal/email"
)

type DispatchLogStore interface {
	AddDispatchLog(ctx context.Context, entry domain.DispatchLog) error
	ListDispatchLogs(ctx context.Context, limit int) ([]domain.DispatchLog, error)
}

// DispatchService sends one newsletter body to every subscriber, one message
// per recipient, and records each outcome. Failed sends are not retried.
type DispatchService struct {
	Subscribers SubscribersStore
	Submissions SubmissionsStore
	Logs        DispatchLogStore
	Sender      email.Sender

	FromEmail string
	FromName  string
	Subject   string

	Now    func() time.Time
	Logger *slog.Logger

	// OnResult, when set, observes every recipient outcome as it happens.
	OnResult func(domain.DispatchLog)
}

type DispatchReport struct {
	Sent   int
	Failed int
}

func (s *DispatchService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *DispatchService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// RenderDigest builds the newsletter from approved submissions.
func (s *DispatchService) RenderDigest(ctx context.Context) (string, error) {
	subs, err := s.Submissions.ListSubmissions(ctx, domain.SubmissionApproved)
	if err != nil {
		return "", err
	}
	return email.RenderDigest(subs)
}

func (s *DispatchService) SendToAll(ctx context.Context, html string) (DispatchReport, error) {
	if s.Sender == nil {
		return DispatchReport{}, errors.New("no mail sender configured")
	}
	subs, err := s.Subscribers.ListSubscribers(ctx)
	if err != nil {
		return DispatchReport{}, err
	}

	var report DispatchReport
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if s.send(ctx, sub.Email, html) {
			report.Sent++
		} else {
			report.Failed++
		}
	}
	s.logger().Info("newsletter dispatched", "provider", s.Sender.Provider(), "sent", report.Sent, "failed", report.Failed)
	return report, nil
}

// SendTest sends html to a single address.
func (s *DispatchService) SendTest(ctx context.Context, to, html string) error {
	if s.Sender == nil {
		return errors.New("no mail sender configured")
	}
	to = NormalizeEmail(to)
	if !ValidEmail(to) {
		return domain.NewValidationError(map[string]string{"email": "adresse email invalide"})
	}
	if !s.send(ctx, to, html) {
		return errors.New("test send failed")
	}
	return nil
}

func (s *DispatchService) send(ctx context.Context, to, html string) bool {
	err := s.Sender.Send(ctx, email.Message{
		FromName:  s.FromName,
		FromEmail: s.FromEmail,
		ToEmail:   to,
		Subject:   s.Subject,
		HTMLBody:  html,
	})

	entry := domain.DispatchLog{
		Recipient: to,
		Subject:   s.Subject,
		Provider:  s.Sender.Provider(),
		Status:    domain.DispatchSent,
		SentAt:    s.now(),
	}
	if err != nil {
		entry.Status = domain.DispatchFailed
		entry.Error = err.Error()
		s.logger().Warn("newsletter send failed", "recipient", to, "provider", entry.Provider, "err", err)
	}
	if s.Logs != nil {
		if lerr := s.Logs.AddDispatchLog(ctx, entry); lerr != nil {
			s.logger().Error("write dispatch log", "recipient", to, "err", lerr)
		}
	}
	if s.OnResult != nil {
		s.OnResult(entry)
	}
	return err == nil
}

func (s *DispatchService) RecentLogs(ctx context.Context, limit int) ([]domain.DispatchLog, error) {
	if s.Logs == nil {
		return nil, nil
	}
	return s.Logs.ListDispatchLogs(ctx, limit)
}
