package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	TLSMode  string
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends through an SMTP relay. TLS mode "tls" dials with implicit
// TLS; "starttls" and "none" dial in clear and upgrade when the server offers
// STARTTLS.
type SMTPSender struct {
	dialer dialer
}

func NewSMTPSender(settings SMTPSettings) (*SMTPSender, error) {
	if settings.Host == "" {
		return nil, errors.New("smtp host required")
	}
	if settings.Port == 0 {
		settings.Port = 587
	}

	d := gomail.NewDialer(settings.Host, settings.Port, settings.Username, settings.Password)
	switch settings.TLSMode {
	case "tls":
		d.SSL = true
		d.TLSConfig = &tls.Config{ServerName: settings.Host, MinVersion: tls.VersionTLS12}
	case "", "starttls":
		d.TLSConfig = &tls.Config{ServerName: settings.Host, MinVersion: tls.VersionTLS12}
	case "none":
	default:
		return nil, fmt.Errorf("unknown smtp tls mode %q", settings.TLSMode)
	}
	return &SMTPSender{dialer: d}, nil
}

func (s *SMTPSender) Provider() string { return ProviderSMTP }

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.FromEmail, msg.FromName)
	m.SetHeader("To", msg.ToEmail)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
