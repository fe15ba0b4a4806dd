package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
)

type MailgunSender struct {
	mg *mailgun.MailgunImpl
}

// NewMailgunSender uses apiBase when set, e.g. https://api.eu.mailgun.net/v3
// for EU domains.
func NewMailgunSender(domain, apiKey, apiBase string) (*MailgunSender, error) {
	if domain == "" || apiKey == "" {
		return nil, errors.New("mailgun domain and api key required")
	}
	mg := mailgun.NewMailgun(domain, apiKey)
	if apiBase != "" {
		mg.SetAPIBase(apiBase)
	}
	return &MailgunSender{mg: mg}, nil
}

func (s *MailgunSender) Provider() string { return ProviderMailgun }

func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	from := msg.FromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)
	}
	m := s.mg.NewMessage(from, msg.Subject, msg.TextBody, msg.ToEmail)
	if msg.HTMLBody != "" {
		m.SetHtml(msg.HTMLBody)
	}

	if _, _, err := s.mg.Send(ctx, m); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}
