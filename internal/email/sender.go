// Package email delivers newsletter messages through SMTP or a
// transactional email API, and renders the weekly digest.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Newsletterwebserver/internal/config"
)

const (
	ProviderSMTP    = "smtp"
	ProviderBrevo   = "brevo"
	ProviderMailgun = "mailgun"
)

type Message struct {
	FromName  string
	FromEmail string
	ToEmail   string
	Subject   string
	HTMLBody  string
	TextBody  string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.FromEmail) == "" {
		return errors.New("sender address required")
	}
	if strings.TrimSpace(m.ToEmail) == "" {
		return errors.New("recipient address required")
	}
	if m.HTMLBody == "" && m.TextBody == "" {
		return errors.New("message body required")
	}
	return nil
}

// Sender delivers one message. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Provider() string
}

// NewSender builds the sender for provider, or for cfg.Provider when
// provider is empty.
func NewSender(cfg config.MailConfig, provider string) (Sender, error) {
	if provider == "" {
		provider = cfg.Provider
	}
	switch provider {
	case ProviderSMTP:
		return NewSMTPSender(SMTPSettings{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			TLSMode:  cfg.SMTPTLSMode,
		})
	case ProviderBrevo:
		return NewBrevoSender(cfg.BrevoAPIKey)
	case ProviderMailgun:
		return NewMailgunSender(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", provider)
	}
}
